package main

import "github.com/shouni/fic-comment-pipe-go/cmd"

func main() {
	cmd.Execute()
}

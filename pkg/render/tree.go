// Package render は保存済みコメントを木構造に組み直し、テキストまたはJSONで出力します。
package render

import (
	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

// Node はコメントツリーの1ノードです。
type Node struct {
	domain.Comment
	Replies []*Node `json:"replies,omitempty"`
}

// BuildTree はコメント一覧を親子関係に沿って組み立て、最上位コメントを順に返します。
// 親が一覧に含まれないコメントは最上位として扱います。兄弟の順序は入力順を保ちます。
func BuildTree(comments []domain.Comment) []*Node {
	nodes := make(map[string]*Node, len(comments))
	for _, c := range comments {
		nodes[c.CommentID] = &Node{Comment: c}
	}

	var roots []*Node
	for _, c := range comments {
		n := nodes[c.CommentID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok && parent != n {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// Count はツリー内のコメント数を返します。
func Count(roots []*Node) int {
	n := 0
	walk(roots, func(*Node, int) { n++ })
	return n
}

// walk は深さ優先・前順でノードを訪問します。深い返信チェーンでも再帰しません。
func walk(roots []*Node, visit func(n *Node, depth int)) {
	type entry struct {
		node  *Node
		depth int
	}
	stack := make([]entry, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, entry{roots[i], 0})
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(e.node, e.depth)
		for i := len(e.node.Replies) - 1; i >= 0; i-- {
			stack = append(stack, entry{e.node.Replies[i], e.depth + 1})
		}
	}
}

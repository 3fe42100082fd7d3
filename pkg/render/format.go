package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format は出力形式です。
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const (
	indentUnit = "  "
	timeLayout = "2006-01-02 15:04"
)

// ParseFormat は文字列を Format に変換します。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("未対応の出力形式です: %q (text または json)", s)
	}
}

// Render はツリーを指定された形式の文字列にします。
func Render(roots []*Node, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return JSON(roots)
	case FormatText, "":
		return Text(roots), nil
	default:
		return "", fmt.Errorf("未対応の出力形式です: %q", format)
	}
}

// Text は返信の深さに応じてインデントしたテキストを返します。
func Text(roots []*Node) string {
	var b strings.Builder
	walk(roots, func(n *Node, depth int) {
		prefix := strings.Repeat(indentUnit, depth)
		b.WriteString(prefix)
		b.WriteString(header(n))
		b.WriteByte('\n')
		if n.Body == nil {
			return
		}
		for _, line := range strings.Split(*n.Body, "\n") {
			b.WriteString(prefix + indentUnit + line + "\n")
		}
	})
	return b.String()
}

func header(n *Node) string {
	if n.IsDeleted() {
		return fmt.Sprintf("#%s (削除済み)", n.CommentID)
	}

	parts := []string{"#" + n.CommentID}
	if n.Author != nil {
		parts = append(parts, *n.Author)
	}
	if n.Chapter != nil {
		parts = append(parts, fmt.Sprintf("第%d章", *n.Chapter))
	}
	if n.PostedAt != nil {
		parts = append(parts, n.PostedAt.UTC().Format(timeLayout))
	}
	return strings.Join(parts, " | ")
}

// JSON はツリーをインデント付きJSONにします。
func JSON(roots []*Node) (string, error) {
	if roots == nil {
		roots = []*Node{}
	}
	data, err := json.MarshalIndent(roots, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSONへの変換に失敗しました: %w", err)
	}
	return string(data) + "\n", nil
}

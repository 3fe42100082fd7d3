package thread

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrUnrecognizedNode は既知の3種のどれにも当てはまらないスレッド要素を表します。
// マークアップの変更を黙って誤分類しないために使用します。
var ErrUnrecognizedNode = errors.New("unrecognized thread node")

var commentIDPattern = regexp.MustCompile(`^comment_(\d+)$`)

// Kind はスレッド要素の種別です。
type Kind int

const (
	KindComment Kind = iota + 1
	KindCollapsedStub
	KindNestedSubthread
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindCollapsedStub:
		return "collapsed_stub"
	case KindNestedSubthread:
		return "nested_subthread"
	default:
		return "unknown"
	}
}

// Node は分類済みのスレッド要素です。Kind に応じたフィールドのみが設定されます。
type Node struct {
	Kind Kind
	Sel  *goquery.Selection

	// KindComment
	CommentID string
	HasHeader bool

	// KindCollapsedStub
	ExpandURL string

	// KindNestedSubthread
	Children []*goquery.Selection
}

// Classify はスレッドの li 要素を1つ分類します。判定は上から順に評価されます。
//  1. 属性が class="comment" のみ → 折りたたみスレッド
//  2. 属性なし → 直前のコメントに続く返信リスト
//  3. それ以外 → コメント（id="comment_N" が必須）
func Classify(item *goquery.Selection) (Node, error) {
	if item.Length() == 0 {
		return Node{}, fmt.Errorf("%w: 空の要素です", ErrUnrecognizedNode)
	}
	attrs := item.Nodes[0].Attr

	switch {
	case isBareCommentWrapper(attrs):
		href, ok := item.Find("a[href]").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return Node{}, fmt.Errorf("%w: 展開リンクのない折りたたみスレッドです", ErrUnrecognizedNode)
		}
		return Node{Kind: KindCollapsedStub, Sel: item, ExpandURL: strings.TrimSpace(href)}, nil

	case len(attrs) == 0:
		list := item.ChildrenFiltered("ol").First()
		if list.Length() == 0 {
			return Node{}, fmt.Errorf("%w: 子リストのない属性なし要素です", ErrUnrecognizedNode)
		}
		return Node{Kind: KindNestedSubthread, Sel: item, Children: Items(list)}, nil

	default:
		id, _ := item.Attr("id")
		m := commentIDPattern.FindStringSubmatch(id)
		if m == nil {
			return Node{}, fmt.Errorf("%w: コメントIDを持たない要素です (id=%q, class=%q)",
				ErrUnrecognizedNode, id, attrValue(attrs, "class"))
		}
		return Node{
			Kind:      KindComment,
			Sel:       item,
			CommentID: m[1],
			HasHeader: item.Find(bylineSelector).Length() > 0,
		}, nil
	}
}

func isBareCommentWrapper(attrs []html.Attribute) bool {
	if len(attrs) != 1 || attrs[0].Key != "class" {
		return false
	}
	classes := strings.Fields(attrs[0].Val)
	return len(classes) == 1 && classes[0] == "comment"
}

func attrValue(attrs []html.Attribute, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

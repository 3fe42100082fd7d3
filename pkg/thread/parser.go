package thread

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// rootThreadSelector はページ内のコメントスレッドの最上位リストです。
// 返信リストも同じクラスを持つため、文書順で最初のものを採用します。
const rootThreadSelector = "ol.thread"

// ParseDocument はページのボディを HTML として解析します。
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTMLの解析に失敗しました: %w", err)
	}
	return doc, nil
}

// RootThread はページの最上位スレッドリストを返します。存在しない場合は false を返します。
func RootThread(doc *goquery.Document) (*goquery.Selection, bool) {
	root := doc.Find(rootThreadSelector).First()
	return root, root.Length() > 0
}

// Items はリスト直下の li 要素を順序どおりに返します。
func Items(list *goquery.Selection) []*goquery.Selection {
	children := list.ChildrenFiltered("li")
	items := make([]*goquery.Selection, 0, children.Length())
	children.Each(func(_ int, li *goquery.Selection) {
		items = append(items, li)
	})
	return items
}

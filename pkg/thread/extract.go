package thread

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

const (
	bylineSelector   = "h4.heading.byline"
	chapterSelector  = "span.parent"
	datetimeSelector = "span.posted.datetime"

	// 年・月・日・時刻の各要素を連結した形式 (例: "2019 Mar 7 11:05PM")
	postedAtLayout = "2006 Jan 2 3:04PM"
)

// ErrMissingField はコメントに必須の要素が欠けていることを表します。
var ErrMissingField = errors.New("required comment field missing")

var lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

// Extraction は CommentExtractor の結果です。
type Extraction struct {
	Comment domain.Comment
	// Deleted はヘッダーを持たない削除済みコメントであることを示します。
	Deleted bool
}

// Extract はコメント要素から保存用のレコードを組み立てます。ParentID は設定しません。
func Extract(work domain.WorkID, node Node) (Extraction, error) {
	if node.Kind != KindComment {
		return Extraction{}, fmt.Errorf("%s 要素からはコメントを抽出できません", node.Kind)
	}

	c := domain.Comment{WorkID: work, CommentID: node.CommentID}
	if !node.HasHeader {
		return Extraction{Comment: c, Deleted: true}, nil
	}
	header := node.Sel.Find(bylineSelector).First()

	author := extractAuthor(header)
	c.Author = &author

	chapter, err := extractChapter(node.Sel)
	if err != nil {
		return Extraction{}, fmt.Errorf("comment_id %s: %w", node.CommentID, err)
	}
	c.Chapter = &chapter

	postedAt, err := extractPostedAt(header)
	if err != nil {
		return Extraction{}, fmt.Errorf("comment_id %s: %w", node.CommentID, err)
	}
	c.PostedAt = &postedAt

	body, err := extractBody(node.Sel)
	if err != nil {
		return Extraction{}, fmt.Errorf("comment_id %s: %w", node.CommentID, err)
	}
	c.Body = &body

	return Extraction{Comment: c}, nil
}

// extractAuthor はリンク付きのユーザー名を優先し、なければゲスト名の span を使います。
func extractAuthor(header *goquery.Selection) string {
	if link := header.ChildrenFiltered("a").First(); link.Length() > 0 {
		return strings.TrimSpace(link.Text())
	}
	return strings.TrimSpace(header.ChildrenFiltered("span").Not(chapterSelector + ", " + datetimeSelector).First().Text())
}

// extractChapter は "on Chapter N" から章番号を取り出します。
// 単一章の作品ではラベル自体が省略されるため 1 を返します。
func extractChapter(comment *goquery.Selection) (int, error) {
	label := comment.Find(chapterSelector).First()
	if label.Length() == 0 {
		return 1, nil
	}
	fields := strings.Fields(label.Text())
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: 章ラベルが空です", ErrMissingField)
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, fmt.Errorf("章番号を解析できません (%q): %w", label.Text(), err)
	}
	return n, nil
}

// extractPostedAt は year/month/date/time の各 span から投稿日時を組み立てます。
// 要素間の空白やテキストノードは無視されます。
func extractPostedAt(header *goquery.Selection) (time.Time, error) {
	stamp := header.Find(datetimeSelector).First()
	if stamp.Length() == 0 {
		return time.Time{}, fmt.Errorf("%w: 投稿日時", ErrMissingField)
	}

	parts := make(map[string]string, 4)
	stamp.Children().Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		if fields := strings.Fields(class); len(fields) > 0 {
			parts[fields[0]] = strings.TrimSpace(s.Text())
		}
	})

	for _, key := range []string{"year", "month", "date", "time"} {
		if parts[key] == "" {
			return time.Time{}, fmt.Errorf("%w: 投稿日時の %s", ErrMissingField, key)
		}
	}

	value := fmt.Sprintf("%s %s %s %s", parts["year"], parts["month"], parts["date"], strings.ToUpper(parts["time"]))
	t, err := time.Parse(postedAtLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("投稿日時を解析できません (%q): %w", value, err)
	}
	return t, nil
}

// extractBody は段落ごとの内部HTMLを改行で連結します。<br> は改行に変換します。
func extractBody(comment *goquery.Selection) (string, error) {
	var (
		paragraphs []string
		renderErr  error
	)
	comment.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		inner, err := p.Html()
		if err != nil {
			renderErr = err
			return false
		}
		paragraphs = append(paragraphs, lineBreak.ReplaceAllString(inner, "\n"))
		return true
	})
	if renderErr != nil {
		return "", fmt.Errorf("本文の描画に失敗しました: %w", renderErr)
	}
	return strings.Join(paragraphs, "\n"), nil
}

package thread

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://archiveofourown.org"

const postedAtHTML = `<span class="posted datetime">
	<span class="day">Thu</span>
	<span class="date">7</span>
	<abbr class="month" title="March">Mar</abbr>
	<span class="year">2019</span>
	<span class="time">11:05PM</span>
	<abbr class="timezone" title="UTC">UTC</abbr>
</span>`

// commentHTML はヘッダー付きのコメント要素を返します。chapter が 0 の場合は章ラベルを省略します。
func commentHTML(id, author string, chapter int, paragraphs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<li class="comment group odd" id="comment_%s" role="article">`, id)
	fmt.Fprintf(&b, `<h4 class="heading byline"><a href="/users/%[1]s/pseuds/%[1]s">%[1]s</a> `, author)
	if chapter > 0 {
		fmt.Fprintf(&b, `<span class="parent">on <a href="/works/1/chapters/%d">Chapter %d</a></span> `, chapter, chapter)
	}
	b.WriteString(postedAtHTML)
	b.WriteString(`</h4><blockquote class="userstuff">`)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", p)
	}
	b.WriteString(`</blockquote></li>`)
	return b.String()
}

func deletedHTML(id string) string {
	return fmt.Sprintf(`<li class="comment group" id="comment_%s" role="article"><p class="message">(Previous comment deleted.)</p></li>`, id)
}

func nestedHTML(children ...string) string {
	return `<li><ol class="thread">` + strings.Join(children, "") + `</ol></li>`
}

func stubHTML(href string) string {
	return fmt.Sprintf(`<li class="comment"><a href="%s">1 more comment in this thread</a></li>`, href)
}

func threadPage(items ...string) string {
	return `<html><body><div id="comments_placeholder"><ol class="thread">` +
		strings.Join(items, "") + `</ol></div></body></html>`
}

// mustItems は threadPage 形式のHTMLから最上位の li 要素を取り出します。
func mustItems(t *testing.T, page string) []*goquery.Selection {
	t.Helper()
	doc, err := ParseDocument([]byte(page))
	require.NoError(t, err)
	root, ok := RootThread(doc)
	require.True(t, ok)
	return Items(root)
}

func mustItem(t *testing.T, li string) *goquery.Selection {
	t.Helper()
	items := mustItems(t, threadPage(li))
	require.Len(t, items, 1)
	return items[0]
}

type fakeResponse struct {
	body string
	err  error
}

// fakeFetcher は URL ごとに固定の応答を返します。
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: make(map[string]fakeResponse)}
}

func (f *fakeFetcher) on(url, body string) *fakeFetcher {
	f.responses[url] = fakeResponse{body: body}
	return f
}

func (f *fakeFetcher) fail(url string, err error) *fakeFetcher {
	f.responses[url] = fakeResponse{err: err}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	resp, ok := f.responses[url]
	if !ok {
		return nil, fmt.Errorf("unexpected fetch: %s", url)
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return []byte(resp.body), nil
}

func strPtr(s string) *string { return &s }

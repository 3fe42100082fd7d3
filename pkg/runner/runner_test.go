package runner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
	"github.com/shouni/fic-comment-pipe-go/pkg/fetcher"
	"github.com/shouni/fic-comment-pipe-go/pkg/store"
	"github.com/shouni/fic-comment-pipe-go/pkg/thread"
)

const testBaseURL = "https://archiveofourown.org"

type stubFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("unexpected fetch: %s", url)
	}
	return []byte(body), nil
}

func comment(id string) string {
	return fmt.Sprintf(`<li class="comment group" id="comment_%[1]s" role="article">
<h4 class="heading byline"><a href="/users/u%[1]s">u%[1]s</a>
<span class="posted datetime"><span class="date">1</span> <abbr class="month">Feb</abbr> <span class="year">2020</span> <span class="time">1:00PM</span></span></h4>
<blockquote class="userstuff"><p>body %[1]s</p></blockquote></li>`, id)
}

func page(nav string, items ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	b.WriteString(nav)
	if len(items) > 0 {
		b.WriteString(`<ol class="thread">` + strings.Join(items, "") + `</ol>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func pagination(total int) string {
	var b strings.Builder
	b.WriteString(`<ol class="pagination actions" role="navigation"><li class="previous"><span class="disabled">← Previous</span></li>`)
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&b, `<li><a href="?page=%d">%d</a></li>`, i, i)
	}
	b.WriteString(`<li class="next"><a rel="next" href="?page=2">Next →</a></li></ol>`)
	return b.String()
}

func newTestRunner(t *testing.T, f *stubFetcher, s store.CommentStore) *Runner {
	t.Helper()
	w, err := thread.NewWalker(f, s, testBaseURL)
	require.NoError(t, err)
	return NewRunner(f, w, testBaseURL+"/")
}

func TestRunner_URLs(t *testing.T) {
	r := NewRunner(nil, nil, testBaseURL+"/")
	assert.Equal(t, testBaseURL+"/works/123?view_adult=true&view_full_work=true&show_comments=true", r.LandingURL("123"))
	assert.Equal(t, testBaseURL+"/works/123?view_adult=true&view_full_work=true&show_comments=true&page=4", r.PageURL("123", 4))
}

func TestRun_SinglePageWithoutPagination(t *testing.T) {
	f := newStubFetcher()
	s := store.NewMemory()
	r := newTestRunner(t, f, s)

	f.pages[r.LandingURL("7")] = page("", comment("1"))
	f.pages[r.PageURL("7", 1)] = page("", comment("1"), `<li><ol class="thread">`+comment("2")+`</ol></li>`)

	report, err := r.Run(context.Background(), "7", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalPages)
	require.Len(t, report.Pages, 1)
	assert.Equal(t, 2, report.Totals.Scraped)
	assert.Equal(t, []string{r.LandingURL("7"), r.PageURL("7", 1)}, f.calls)

	c, ok := s.Get("2")
	require.True(t, ok)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, "1", *c.ParentID)
	assert.Equal(t, domain.WorkID("7"), c.WorkID)
}

func TestRun_RestartPageSkipsEarlierPages(t *testing.T) {
	f := newStubFetcher()
	r := newTestRunner(t, f, store.NewMemory())

	f.pages[r.LandingURL("7")] = page(pagination(3), comment("1"))
	f.pages[r.PageURL("7", 2)] = page(pagination(3), comment("2"))
	f.pages[r.PageURL("7", 3)] = page(pagination(3), comment("3"))

	report, err := r.Run(context.Background(), "7", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalPages)
	require.Len(t, report.Pages, 2)
	assert.Equal(t, 2, report.Pages[0].Page)
	assert.Equal(t, 3, report.Pages[1].Page)
	assert.NotContains(t, f.calls, r.PageURL("7", 1))
}

func TestRun_RestartPageBeyondLastPage(t *testing.T) {
	f := newStubFetcher()
	r := newTestRunner(t, f, store.NewMemory())
	f.pages[r.LandingURL("7")] = page(pagination(3))

	report, err := r.Run(context.Background(), "7", 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Contains(t, err.Error(), "全 3 ページ")
	assert.Equal(t, 3, report.TotalPages)
	assert.Empty(t, report.Pages)
	assert.Equal(t, []string{r.LandingURL("7")}, f.calls)
}

func TestRun_PageWithoutThreadContinues(t *testing.T) {
	f := newStubFetcher()
	r := newTestRunner(t, f, store.NewMemory())

	f.pages[r.LandingURL("7")] = page(pagination(2))
	f.pages[r.PageURL("7", 1)] = page(pagination(2))
	f.pages[r.PageURL("7", 2)] = page(pagination(2), comment("9"))

	report, err := r.Run(context.Background(), "7", 1)
	require.NoError(t, err)
	require.Len(t, report.Pages, 2)
	assert.False(t, report.Pages[0].HasThread)
	assert.True(t, report.Pages[1].HasThread)
	assert.Equal(t, 1, report.Totals.Scraped)
}

func TestRun_PageFailureStopsWorkKeepsEarlierCommits(t *testing.T) {
	f := newStubFetcher()
	s := store.NewMemory()
	r := newTestRunner(t, f, s)

	f.pages[r.LandingURL("7")] = page(pagination(3))
	f.pages[r.PageURL("7", 1)] = page(pagination(3), comment("1"))
	f.errs[r.PageURL("7", 2)] = &fetcher.StatusError{URL: r.PageURL("7", 2), StatusCode: http.StatusServiceUnavailable}

	report, err := r.Run(context.Background(), "7", 1)
	require.Error(t, err)

	var statusErr *fetcher.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 1, s.Len())
	assert.Len(t, report.Pages, 2)
	assert.NotContains(t, f.calls, r.PageURL("7", 3))
}

func TestRun_LandingFailure(t *testing.T) {
	f := newStubFetcher()
	r := newTestRunner(t, f, store.NewMemory())
	f.errs[r.LandingURL("7")] = &fetcher.StatusError{URL: r.LandingURL("7"), StatusCode: http.StatusNotFound}

	report, err := r.Run(context.Background(), "7", 1)
	require.Error(t, err)
	assert.Empty(t, report.Pages)
	assert.Len(t, f.calls, 1)
}

func TestRun_AbortedWalkStopsWork(t *testing.T) {
	f := newStubFetcher()
	r := newTestRunner(t, f, store.NewMemory())

	f.pages[r.LandingURL("7")] = page(pagination(2))
	f.pages[r.PageURL("7", 1)] = page(pagination(2), comment("1"), `<li class="comment"><a href="/comments/5">more</a></li>`)
	f.errs[testBaseURL+"/comments/5"] = &fetcher.StatusError{StatusCode: http.StatusInternalServerError}

	_, err := r.Run(context.Background(), "7", 1)
	assert.ErrorIs(t, err, thread.ErrAborted)
	assert.NotContains(t, f.calls, r.PageURL("7", 2))
}

func TestCountPages(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    int
		wantErr bool
	}{
		{name: "no pagination", html: page(""), want: 1},
		{name: "five pages", html: page(pagination(5)), want: 5},
		{name: "label not numeric", html: page(`<ol class="pagination actions"><li>a</li><li>…</li><li>next</li></ol>`), wantErr: true},
		{name: "too few items", html: page(`<ol class="pagination actions"><li>1</li></ol>`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := thread.ParseDocument([]byte(tt.html))
			require.NoError(t, err)

			got, err := CountPages(doc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadPagination)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

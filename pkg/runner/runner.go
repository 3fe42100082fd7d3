package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
	"github.com/shouni/fic-comment-pipe-go/pkg/thread"
)

// ----------------------------------------------------------------
// インターフェース定義 (DI対象)
// ----------------------------------------------------------------

// PageFetcher はレート制限付きのページ取得機能を提供します。
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ThreadWalker はコメントスレッドの走査と保存を行います。
// thread.Walker がこのインターフェースを実装します。
type ThreadWalker interface {
	Walk(ctx context.Context, work domain.WorkID, page int, items []*goquery.Selection, parentID *string) (thread.WalkStats, error)
}

// ----------------------------------------------------------------
// ワークフロー管理者 (Runner)
// ----------------------------------------------------------------

var (
	// ErrBadPagination はページ送りのラベルが数値でないことを表します。
	ErrBadPagination = errors.New("pagination label is not a number")
	// ErrPageOutOfRange は再開ページが作品のページ数を超えていることを表します。
	ErrPageOutOfRange = errors.New("restart page beyond last comment page")
)

const paginationSelector = "ol.pagination.actions"

// Runner は1作品分のコメントページを順に取得し、各ページのスレッドを ThreadWalker に渡します。
type Runner struct {
	fetcher PageFetcher
	walker  ThreadWalker
	baseURL string
}

// NewRunner は依存関係を注入して Runner を初期化します。
func NewRunner(fetcher PageFetcher, walker ThreadWalker, baseURL string) *Runner {
	return &Runner{
		fetcher: fetcher,
		walker:  walker,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// PageReport は1ページ分の集計です。
type PageReport struct {
	Page      int
	HasThread bool
	Stats     thread.WalkStats
}

// WorkReport は Run の実行結果を保持します。
type WorkReport struct {
	WorkID     domain.WorkID
	TotalPages int
	Pages      []PageReport
	Totals     thread.WalkStats
}

func (r *WorkReport) addPage(p PageReport) {
	r.Pages = append(r.Pages, p)
	r.Totals.Add(p.Stats)
}

// LandingURL は作品のコメント表示ページの URL を返します。
func (r *Runner) LandingURL(work domain.WorkID) string {
	return fmt.Sprintf("%s/works/%s?view_adult=true&view_full_work=true&show_comments=true",
		r.baseURL, url.PathEscape(string(work)))
}

// PageURL は N ページ目のコメントページの URL を返します。
func (r *Runner) PageURL(work domain.WorkID, page int) string {
	return r.LandingURL(work) + "&page=" + strconv.Itoa(page)
}

// Run は作品のコメントページを restartPage から最終ページまで処理します。
// restartPage が 1 未満の場合は 1 から開始し、最終ページを超える場合は
// ErrPageOutOfRange を返します。
//
// いずれかのページ取得やスレッド走査に失敗した時点で処理を止め、
// それまでの集計とエラーを返します。保存済みのコメントはそのまま残ります。
func (r *Runner) Run(ctx context.Context, work domain.WorkID, restartPage int) (*WorkReport, error) {
	report := &WorkReport{WorkID: work}

	slog.Info("作品のコメントページを確認中", slog.String("work_id", string(work)))

	landing, err := r.fetcher.Fetch(ctx, r.LandingURL(work))
	if err != nil {
		return report, fmt.Errorf("作品 %s のページ取得に失敗しました: %w", work, err)
	}
	doc, err := thread.ParseDocument(landing)
	if err != nil {
		return report, err
	}

	total, err := CountPages(doc)
	if err != nil {
		return report, fmt.Errorf("作品 %s: %w", work, err)
	}
	report.TotalPages = total

	if restartPage < 1 {
		restartPage = 1
	}
	if restartPage > total {
		slog.Warn("再開ページが最終ページを超えています",
			slog.String("work_id", string(work)),
			slog.Int("total_pages", total),
			slog.Int("start_page", restartPage),
		)
		return report, fmt.Errorf("作品 %s: ページ %d (全 %d ページ): %w", work, restartPage, total, ErrPageOutOfRange)
	}

	slog.Info("コメントページ数を取得しました",
		slog.String("work_id", string(work)),
		slog.Int("total_pages", total),
		slog.Int("start_page", restartPage),
	)

	for page := restartPage; page <= total; page++ {
		pr, err := r.runPage(ctx, work, page)
		report.addPage(pr)
		if err != nil {
			return report, err
		}
	}

	slog.Info("作品の処理が完了しました",
		slog.String("work_id", string(work)),
		slog.Int("scraped", report.Totals.Scraped),
		slog.Int("duplicates", report.Totals.Duplicates),
		slog.Int("deleted", report.Totals.Deleted),
	)
	return report, nil
}

// runPage は1ページ分を取得して走査します。
func (r *Runner) runPage(ctx context.Context, work domain.WorkID, page int) (PageReport, error) {
	pr := PageReport{Page: page}

	body, err := r.fetcher.Fetch(ctx, r.PageURL(work, page))
	if err != nil {
		return pr, fmt.Errorf("作品 %s ページ %d の取得に失敗しました: %w", work, page, err)
	}
	doc, err := thread.ParseDocument(body)
	if err != nil {
		return pr, err
	}

	root, ok := thread.RootThread(doc)
	if !ok {
		slog.Info("このページにはコメントがありません",
			slog.String("work_id", string(work)),
			slog.Int("page", page),
		)
		return pr, nil
	}
	pr.HasThread = true

	stats, err := r.walker.Walk(ctx, work, page, thread.Items(root), nil)
	pr.Stats = stats
	if err != nil {
		return pr, err
	}

	slog.Info("ページの処理が完了しました",
		slog.String("work_id", string(work)),
		slog.Int("page", page),
		slog.Int("scraped", stats.Scraped),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("deleted", stats.Deleted),
		slog.Int("expanded", stats.Expanded),
	)
	return pr, nil
}

// CountPages はコメントのページ数を返します。ページ送りが無い場合は 1 です。
// 総ページ数はページ送りの最後から2番目の項目に表示されています。
func CountPages(doc *goquery.Document) (int, error) {
	nav := doc.Find(paginationSelector).First()
	if nav.Length() == 0 {
		return 1, nil
	}

	items := nav.ChildrenFiltered("li")
	if items.Length() < 2 {
		return 0, fmt.Errorf("%w: 項目が %d 件しかありません", ErrBadPagination, items.Length())
	}
	label := strings.TrimSpace(items.Eq(items.Length() - 2).Text())
	n, err := strconv.Atoi(label)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrBadPagination, label)
	}
	return n, nil
}

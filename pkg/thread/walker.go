package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
	"github.com/shouni/fic-comment-pipe-go/pkg/store"
)

var (
	// ErrAborted はスレッドの走査が途中で打ち切られたことを表します。
	// それまでに保存されたコメントはコミット済みのまま残ります。
	ErrAborted = errors.New("thread walk aborted")
	// ErrMissingThread は展開先のページにスレッドリストが無いことを表します。
	ErrMissingThread = errors.New("thread list not found")
)

// Fetcher はレート制限付きのページ取得です。fetcher.Client が実装します。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// WalkStats は1回の走査で処理したコメントの内訳です。
type WalkStats struct {
	Scraped    int
	Duplicates int
	Deleted    int
	Expanded   int // 展開した折りたたみスレッドの数
}

// Add は other の値を加算します。
func (s *WalkStats) Add(other WalkStats) {
	s.Scraped += other.Scraped
	s.Duplicates += other.Duplicates
	s.Deleted += other.Deleted
	s.Expanded += other.Expanded
}

// frame は走査スタックの1段です。
// scopeParent はこの段のコメントが記録する親、current は後続の返信リストや
// 折りたたみスレッドが引き継ぐ親です。
type frame struct {
	items       []*goquery.Selection
	next        int
	scopeParent *string
	current     *string
}

// Walker はスレッドツリーを深さ優先で走査し、コメントを親子関係つきで保存します。
type Walker struct {
	fetcher Fetcher
	store   store.CommentStore
	baseURL *url.URL
}

// NewWalker は Walker を作成します。baseURL は折りたたみスレッドの相対リンク解決に使います。
func NewWalker(fetcher Fetcher, commentStore store.CommentStore, baseURL string) (*Walker, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("無効なベースURLです: %q", baseURL)
	}
	return &Walker{fetcher: fetcher, store: commentStore, baseURL: u}, nil
}

// Walk は items を起点にスレッドを走査します。parentID が nil・空文字・"0" の場合、
// 最上位のコメントは親なしとして保存されます。
//
// 失敗時は ErrAborted をラップしたエラーと、それまでの集計を返します。
func (w *Walker) Walk(ctx context.Context, work domain.WorkID, page int, items []*goquery.Selection, parentID *string) (WalkStats, error) {
	var stats WalkStats
	parent := normalizeParent(parentID)
	stack := []*frame{{items: items, scopeParent: parent, current: parent}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, w.abort(work, page, err)
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.items) {
			stack = stack[:len(stack)-1]
			continue
		}
		item := top.items[top.next]
		top.next++

		node, err := Classify(item)
		if err != nil {
			return stats, w.abort(work, page, err)
		}

		switch node.Kind {
		case KindComment:
			if err := w.visitComment(ctx, work, page, node, top.scopeParent, &stats); err != nil {
				return stats, w.abort(work, page, err)
			}
			id := node.CommentID
			top.current = &id

		case KindNestedSubthread:
			stack = append(stack, &frame{items: node.Children, scopeParent: top.current, current: top.current})

		case KindCollapsedStub:
			// 折りたたみスレッドは新しい祖先を作らず、直前のコメントの返信として扱う
			children, err := w.expand(ctx, work, page, node.ExpandURL)
			if err != nil {
				return stats, w.abort(work, page, err)
			}
			stats.Expanded++
			stack = append(stack, &frame{items: children, scopeParent: top.current, current: top.current})
		}
	}

	return stats, nil
}

// visitComment は1件のコメントを保存します。保存済みの場合は何もしません。
func (w *Walker) visitComment(ctx context.Context, work domain.WorkID, page int, node Node, parent *string, stats *WalkStats) error {
	exists, err := w.store.Exists(ctx, node.CommentID)
	if err != nil {
		return err
	}
	if exists {
		stats.Duplicates++
		slog.Info("保存済みのコメントをスキップしました",
			slog.String("work_id", string(work)),
			slog.Int("page", page),
			slog.String("comment_id", node.CommentID),
		)
		return nil
	}

	ex, err := Extract(work, node)
	if err != nil {
		return err
	}
	if parent != nil {
		p := *parent
		ex.Comment.ParentID = &p
	}

	if err := w.store.Insert(ctx, ex.Comment); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			stats.Duplicates++
			return nil
		}
		return err
	}

	attrs := []any{
		slog.String("work_id", string(work)),
		slog.Int("page", page),
		slog.String("comment_id", node.CommentID),
		slog.String("parent_id", derefOr(parent, "-")),
	}
	if ex.Deleted {
		stats.Deleted++
		slog.Info("削除済みコメントを保存しました", attrs...)
		return nil
	}
	stats.Scraped++
	slog.Info("コメントを保存しました", append(attrs, slog.String("author", derefOr(ex.Comment.Author, "")))...)
	return nil
}

// expand は折りたたみスレッドのリンク先を取得し、そのスレッドの要素を返します。
func (w *Walker) expand(ctx context.Context, work domain.WorkID, page int, href string) ([]*goquery.Selection, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("展開リンクを解析できません (%q): %w", href, err)
	}
	target := w.baseURL.ResolveReference(ref).String()

	slog.Info("折りたたまれたスレッドを展開中",
		slog.String("work_id", string(work)),
		slog.Int("page", page),
		slog.String("url", target),
	)

	body, err := w.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("スレッドの展開に失敗しました: %w", err)
	}
	doc, err := ParseDocument(body)
	if err != nil {
		return nil, err
	}
	root, ok := RootThread(doc)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingThread, target)
	}
	return Items(root), nil
}

func (w *Walker) abort(work domain.WorkID, page int, cause error) error {
	slog.Error("スレッドの走査を中断しました",
		slog.String("work_id", string(work)),
		slog.Int("page", page),
		slog.Any("error", cause),
	)
	return fmt.Errorf("%w: 作品 %s ページ %d: %w", ErrAborted, work, page, cause)
}

func normalizeParent(parentID *string) *string {
	if parentID == nil || *parentID == "" || *parentID == "0" {
		return nil
	}
	p := *parentID
	return &p
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

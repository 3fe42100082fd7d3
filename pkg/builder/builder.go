package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shouni/fic-comment-pipe-go/pkg/fetcher"
	"github.com/shouni/fic-comment-pipe-go/pkg/runner"
	"github.com/shouni/fic-comment-pipe-go/pkg/store"
	"github.com/shouni/fic-comment-pipe-go/pkg/thread"
)

// StoreKind は保存先の種類です。
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreMemory   StoreKind = "memory"
)

// ErrMissingDSN は Postgres を選んだのに接続文字列が無いことを表します。
var ErrMissingDSN = errors.New("database url is required for the postgres store")

// Options はクロールに必要な依存関係の設定値です。
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Cooldown  time.Duration
	Interval  time.Duration
	Store     StoreKind
	DSN       string
}

// ParseStoreKind は文字列を StoreKind に変換します。
func ParseStoreKind(s string) (StoreKind, error) {
	switch k := StoreKind(strings.ToLower(strings.TrimSpace(s))); k {
	case StorePostgres, StoreMemory:
		return k, nil
	default:
		return "", fmt.Errorf("未対応の保存先です: %q (postgres または memory)", s)
	}
}

// BuildFetcher は、レート制限付きの HTTP クライアントを初期化します。
func BuildFetcher(opts Options) *fetcher.Client {
	return fetcher.New(fetcher.Config{
		Timeout:   opts.Timeout,
		Cooldown:  opts.Cooldown,
		Interval:  opts.Interval,
		UserAgent: opts.UserAgent,
	})
}

// BuildStore は保存先を初期化し、必要ならスキーマを作成します。
// 戻り値の close は、どの終了経路でも呼び出す必要があります。
func BuildStore(ctx context.Context, opts Options) (store.CommentStore, func(), error) {
	switch opts.Store {
	case StoreMemory:
		return store.NewMemory(), func() {}, nil
	case StorePostgres, "":
		if opts.DSN == "" {
			return nil, nil, ErrMissingDSN
		}
		pool, err := store.OpenPool(ctx, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("未対応の保存先です: %q", opts.Store)
	}
}

// BuildRunner は、取得・走査・保存の依存関係を組み立てて Runner を返します。
func BuildRunner(client runner.PageFetcher, commentStore store.CommentStore, baseURL string) (*runner.Runner, error) {
	walker, err := thread.NewWalker(client, commentStore, baseURL)
	if err != nil {
		return nil, fmt.Errorf("Walkerの初期化エラー: %w", err)
	}
	return runner.NewRunner(client, walker, baseURL), nil
}

// BuildBatchRunner は、複数作品を順に処理する BatchRunner を返します。
func BuildBatchRunner(client runner.PageFetcher, commentStore store.CommentStore, baseURL string) (*runner.BatchRunner, error) {
	r, err := BuildRunner(client, commentStore, baseURL)
	if err != nil {
		return nil, err
	}
	return runner.NewBatchRunner(r), nil
}

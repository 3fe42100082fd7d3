package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"golang.org/x/time/rate"
)

// --- グローバル定数 ---

const (
	DefaultCooldown  = 60 * time.Second // 429 応答時の待機時間
	DefaultInterval  = 5 * time.Second  // リクエスト間の最小間隔
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "fic-comment-pipe/1.0"
)

// StatusError は 429 以外の 4xx/5xx 応答を表す終端エラーです。
type StatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: ステータス %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Config は Client の設定を保持します。ゼロ値はデフォルト値で補完されます。
type Config struct {
	Timeout   time.Duration
	Cooldown  time.Duration
	Interval  time.Duration // 0 以下の場合は間隔制御を行いません
	UserAgent string
}

// Client はレート制限付きの HTTP GET を提供します。
type Client struct {
	kit       *httpkit.Client
	limiter   *rate.Limiter
	cooldown  time.Duration
	userAgent string
}

// New は Client の新しいインスタンスを作成します。
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Interval), 1)
	}

	return &Client{
		kit:       httpkit.New(cfg.Timeout, httpkit.WithMaxRetries(0)),
		limiter:   limiter,
		cooldown:  cfg.Cooldown,
		userAgent: cfg.UserAgent,
	}
}

// Get は1回だけ GET を発行し、ステータスコードとボディを返します。
//
// ボディの読み込みと判定は httpkit.HandleResponse に任せます。2xx 以外の応答では
// ボディは nil で、4xx は *httpkit.NonRetryableHTTPError、5xx はそれ以外のエラーになります。
// httpkit.MaxResponseBodySize を超えるボディは切り詰めずにエラーとします。
func (c *Client) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.kit.Do(req)
	if err != nil {
		return 0, nil, err
	}

	body, err := httpkit.HandleResponse(resp)
	return resp.StatusCode, body, err
}

// Fetch は URL を取得し、成功時のボディを返します。
//
// 429 応答の場合は cooldown だけ待機して無期限にリトライします。待機は ctx の
// キャンセルでのみ中断されます。その他の 4xx/5xx は *StatusError として即座に返します。
// 通信エラーとサイズ超過もリトライせずに返します。
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	operation := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		status, body, err := c.Get(ctx, url)
		switch {
		case isTooManyRequests(err):
			return nil, err
		case status >= http.StatusBadRequest:
			return nil, backoff.Permanent(&StatusError{URL: url, StatusCode: status, Err: err})
		case err != nil:
			return nil, backoff.Permanent(fmt.Errorf("GET %s: %w", url, err))
		}
		return body, nil
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("リクエストが 429 で拒否されました。待機後に再試行します。",
			slog.String("url", url),
			slog.Duration("cooldown", wait),
		)
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(c.cooldown), ctx)
	return backoff.RetryNotifyWithData(operation, policy, notify)
}

// FetchBytes は Fetch と同じです。feed.Fetcher を満たします。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return c.Fetch(ctx, url)
}

func isTooManyRequests(err error) bool {
	var nonRetryable *httpkit.NonRetryableHTTPError
	return errors.As(err, &nonRetryable) && nonRetryable.StatusCode == http.StatusTooManyRequests
}

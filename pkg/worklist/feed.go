package worklist

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/mmcdole/gofeed"
	"github.com/shouni/go-web-exact/v2/pkg/feed"

	"github.com/shouni/fic-comment-pipe-go/pkg/domain"
)

// FeedParser はフィードの取得とパース機能を提供します。feed.Parser が実装します。
type FeedParser interface {
	FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

var workLinkPattern = regexp.MustCompile(`/works/(\d+)`)

// FeedSource は作品フィード (Atom/RSS) のエントリから作品IDを集めます。
type FeedSource struct {
	parser FeedParser
}

// NewFeedSource は fetcher を使う feed.Parser で FeedSource を作成します。
// fetcher.Client がレート制限と 429 の待機を担います。
func NewFeedSource(fetcher feed.Fetcher) *FeedSource {
	return &FeedSource{parser: feed.NewParser(fetcher)}
}

// WorkIDs はフィードに含まれる作品IDをエントリ順に返します。
func (s *FeedSource) WorkIDs(ctx context.Context, feedURL string) ([]domain.WorkID, error) {
	slog.Info("フィードURLを解析中", slog.String("feed_url", feedURL))

	rssFeed, err := s.parser.FetchAndParse(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	ids := WorkIDsFromLinks(feed.NewFeedAdapter(rssFeed))
	slog.Info("フィードから作品IDを抽出",
		slog.String("feed_title", rssFeed.Title),
		slog.Int("extracted_count", len(ids)),
	)
	if len(ids) == 0 {
		return nil, fmt.Errorf("フィード (%s) から作品IDが一つも抽出されませんでした: %w", feedURL, ErrNoWorks)
	}
	return ids, nil
}

// WorkIDsFromLinks はリンク一覧から作品ページのIDを順に取り出します。作品以外のリンクは無視します。
func WorkIDsFromLinks(source feed.LinkSource) []domain.WorkID {
	var ids []domain.WorkID
	for _, link := range feed.GetAllLinks(source) {
		if m := workLinkPattern.FindStringSubmatch(link); m != nil {
			ids = append(ids, domain.WorkID(m[1]))
		}
	}
	return dedupe(ids)
}

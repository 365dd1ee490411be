// Package news は外部フィードからのニュース記事集約を提供する。
//
// 設定されたフィードURL群を定期的にフェッチし、パースした記事を
// サニタイズしてストアに冪等に保存する。フェッチにはSSRF防止付きの
// HTTPクライアントを使用する。
package news

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/volunteerhub/internal/model"
	"github.com/hitoshi/volunteerhub/internal/repository"
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// Sanitizer は記事サニタイズのインターフェース。
type Sanitizer interface {
	SanitizeText(input string) string
	SanitizeSummary(rawHTML string) string
}

// FetchStats は1フィードのフェッチ結果。
type FetchStats struct {
	Source   string
	Total    int
	Inserted int
}

// Fetcher は個別フィードURLのHTTPフェッチとパースを行う。
// SSRF検証、gofeedによるパース、サニタイズ、NewsRepositoryへの保存を実行する。
type Fetcher struct {
	newsRepo    repository.NewsRepository
	ssrfGuard   SSRFValidator
	sanitizer   Sanitizer
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(
	newsRepo repository.NewsRepository,
	ssrfGuard SSRFValidator,
	sanitizer Sanitizer,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *Fetcher {
	return &Fetcher{
		newsRepo:    newsRepo,
		ssrfGuard:   ssrfGuard,
		sanitizer:   sanitizer,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// FetchFeed は1つのフィードURLをフェッチし、記事をストアに保存する。
// 個々の記事の保存失敗はログに記録して続行する。
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) (FetchStats, error) {
	start := time.Now()
	stats := FetchStats{Source: feedURL}

	// SSRF検証
	if err := f.ssrfGuard.ValidateURL(feedURL); err != nil {
		f.logger.Error("feed URL failed SSRF validation",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return stats, fmt.Errorf("unsafe feed URL: %w", err)
	}

	client := f.ssrfGuard.NewSafeClient(f.timeout)
	body, err := f.fetchBody(ctx, client, feedURL)
	if err != nil {
		return stats, err
	}

	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		// 設定URLがHTMLページの場合はlink rel="alternate"から
		// フィードを自動検出して1回だけ再試行する
		discoveredURL := discoverFeedURL(body, feedURL)
		if discoveredURL == "" || discoveredURL == feedURL {
			f.logger.Error("feed parse failed",
				slog.String("feed_url", feedURL),
				slog.String("error", err.Error()),
			)
			return stats, fmt.Errorf("parse feed: %w", err)
		}

		f.logger.Info("discovered feed link in HTML page",
			slog.String("feed_url", feedURL),
			slog.String("discovered_url", discoveredURL),
		)

		if err := f.ssrfGuard.ValidateURL(discoveredURL); err != nil {
			return stats, fmt.Errorf("unsafe discovered feed URL: %w", err)
		}
		body, err = f.fetchBody(ctx, client, discoveredURL)
		if err != nil {
			return stats, err
		}
		parsedFeed, err = parser.ParseString(string(body))
		if err != nil {
			f.logger.Error("discovered feed parse failed",
				slog.String("feed_url", discoveredURL),
				slog.String("error", err.Error()),
			)
			return stats, fmt.Errorf("parse discovered feed: %w", err)
		}
	}

	items := f.convertItems(feedURL, parsedFeed.Items)
	stats.Total = len(items)

	for _, item := range items {
		created, err := f.newsRepo.Upsert(ctx, item)
		if err != nil {
			f.logger.Error("news item upsert failed",
				slog.String("feed_url", feedURL),
				slog.String("guid", item.GUID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if created {
			stats.Inserted++
		}
	}

	f.logger.Info("feed fetch completed",
		slog.String("feed_url", feedURL),
		slog.Int("items_total", stats.Total),
		slog.Int("items_inserted", stats.Inserted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return stats, nil
}

// fetchBody はフィードURLにGETリクエストを送り、サイズ上限付きで
// レスポンスボディを読み込む。
func (f *Fetcher) fetchBody(ctx context.Context, client *http.Client, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "VolunteerHub/1.0 News Aggregator")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		f.logger.Error("feed request failed",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("feed returned non-OK status",
			slog.String("feed_url", feedURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return body, nil
}

// FetchAll は全フィードURLを順にフェッチする。
// 1つのフィードの失敗は他のフィードの処理を妨げない。
func (f *Fetcher) FetchAll(ctx context.Context, feedURLs []string) []FetchStats {
	results := make([]FetchStats, 0, len(feedURLs))
	for _, feedURL := range feedURLs {
		if ctx.Err() != nil {
			break
		}
		stats, err := f.FetchFeed(ctx, feedURL)
		if err != nil {
			// 失敗の詳細はFetchFeed内でログ済み
			continue
		}
		results = append(results, stats)
	}
	return results
}

// convertItems はgofeedの記事をサニタイズ済みのNewsItemに変換する。
// タイトルまたはリンクを欠く記事はスキップする。
func (f *Fetcher) convertItems(source string, items []*gofeed.Item) []*model.NewsItem {
	now := time.Now()
	result := make([]*model.NewsItem, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		title := f.sanitizer.SanitizeText(item.Title)
		if title == "" || item.Link == "" {
			continue
		}

		news := &model.NewsItem{
			ID:        uuid.New().String(),
			Source:    source,
			GUID:      item.GUID,
			Title:     title,
			Link:      item.Link,
			Summary:   f.sanitizer.SanitizeSummary(item.Description),
			FetchedAt: now,
		}

		// GUIDを欠くフィードはリンクで同一性を判定する
		if news.GUID == "" {
			news.GUID = item.Link
		}

		if item.PublishedParsed != nil {
			news.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			news.PublishedAt = *item.UpdatedParsed
		} else {
			news.PublishedAt = now
		}

		result = append(result, news)
	}

	return result
}

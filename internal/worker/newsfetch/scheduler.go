// Package newsfetch は外部ニュースフィードの定期取り込みワーカーを提供する。
// 設定されたフィードURLを一定間隔で巡回し、取り込み結果をメトリクスに記録する。
package newsfetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/volunteerhub/internal/news"
)

// FeedFetcher は個別フィードの取り込みインターフェース。
// news.Fetcherが満たす。
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (news.FetchStats, error)
}

// MetricsRecorder はニュース取り込みメトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordNewsItemsInserted(count int)
	RecordNewsFetchFailure()
}

// Scheduler はニュースフィードの巡回スケジューラ。
// フィードは件数が少ないため直列にフェッチする。
// 1フィードの失敗は他のフィードの処理を妨げない。
type Scheduler struct {
	fetcher  FeedFetcher
	feedURLs []string
	metrics  MetricsRecorder
	logger   *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewScheduler(
	fetcher FeedFetcher,
	feedURLs []string,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		fetcher:  fetcher,
		feedURLs: feedURLs,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start は指定間隔でフィード巡回を繰り返し実行する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ニュース取り込みスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("feed_count", len(s.feedURLs)),
	)

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ニュース取り込みスケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は全フィードを1回巡回する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	if len(s.feedURLs) == 0 {
		s.logger.Info("取り込み対象のフィードが設定されていません")
		return
	}

	start := time.Now()
	totalInserted := 0
	failed := 0

	for _, feedURL := range s.feedURLs {
		if ctx.Err() != nil {
			return
		}

		stats, err := s.fetcher.FetchFeed(ctx, feedURL)
		if err != nil {
			// 失敗の詳細はFetchFeed内でログ済み
			failed++
			if s.metrics != nil {
				s.metrics.RecordNewsFetchFailure()
			}
			continue
		}

		totalInserted += stats.Inserted
		if s.metrics != nil && stats.Inserted > 0 {
			s.metrics.RecordNewsItemsInserted(stats.Inserted)
		}
	}

	s.logger.Info("ニュース取り込みサイクルが完了しました",
		slog.Int("feed_count", len(s.feedURLs)),
		slog.Int("failed_count", failed),
		slog.Int("items_inserted", totalInserted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

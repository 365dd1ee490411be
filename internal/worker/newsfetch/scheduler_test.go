package newsfetch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/volunteerhub/internal/news"
)

type mockFetcher struct {
	fetchFn func(ctx context.Context, feedURL string) (news.FetchStats, error)
	calls   []string
}

func (m *mockFetcher) FetchFeed(ctx context.Context, feedURL string) (news.FetchStats, error) {
	m.calls = append(m.calls, feedURL)
	return m.fetchFn(ctx, feedURL)
}

type mockMetrics struct {
	inserted int
	failures int
}

func (m *mockMetrics) RecordNewsItemsInserted(count int) { m.inserted += count }
func (m *mockMetrics) RecordNewsFetchFailure()           { m.failures++ }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func TestScheduler_RunOnce_FetchesAllFeeds(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, feedURL string) (news.FetchStats, error) {
			return news.FetchStats{Source: feedURL, Total: 3, Inserted: 2}, nil
		},
	}
	metrics := &mockMetrics{}
	urls := []string{"https://a.example.com/rss", "https://b.example.com/rss"}

	s := NewScheduler(fetcher, urls, metrics, newTestLogger())
	s.RunOnce(context.Background())

	if len(fetcher.calls) != 2 {
		t.Fatalf("フェッチ回数 = %d, want 2", len(fetcher.calls))
	}
	if metrics.inserted != 4 {
		t.Errorf("inserted = %d, want 4", metrics.inserted)
	}
	if metrics.failures != 0 {
		t.Errorf("failures = %d, want 0", metrics.failures)
	}
}

func TestScheduler_RunOnce_FailureDoesNotStopOthers(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, feedURL string) (news.FetchStats, error) {
			if feedURL == "https://bad.example.com/rss" {
				return news.FetchStats{}, errors.New("fetch failed")
			}
			return news.FetchStats{Inserted: 1}, nil
		},
	}
	metrics := &mockMetrics{}
	urls := []string{
		"https://bad.example.com/rss",
		"https://good.example.com/rss",
	}

	s := NewScheduler(fetcher, urls, metrics, newTestLogger())
	s.RunOnce(context.Background())

	if len(fetcher.calls) != 2 {
		t.Fatalf("失敗後も残りのフィードを処理すること: calls = %d", len(fetcher.calls))
	}
	if metrics.failures != 1 {
		t.Errorf("failures = %d, want 1", metrics.failures)
	}
	if metrics.inserted != 1 {
		t.Errorf("inserted = %d, want 1", metrics.inserted)
	}
}

func TestScheduler_RunOnce_NilMetrics(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, feedURL string) (news.FetchStats, error) {
			return news.FetchStats{}, errors.New("fetch failed")
		},
	}

	s := NewScheduler(fetcher, []string{"https://a.example.com/rss"}, nil, newTestLogger())

	// metricsがnilでもパニックしないこと
	s.RunOnce(context.Background())
}

func TestScheduler_RunOnce_EmptyFeedList(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, feedURL string) (news.FetchStats, error) {
			t.Fatal("フィード未設定時はフェッチしないこと")
			return news.FetchStats{}, nil
		},
	}

	s := NewScheduler(fetcher, nil, &mockMetrics{}, newTestLogger())
	s.RunOnce(context.Background())
}

func TestScheduler_RunOnce_CanceledContext_StopsEarly(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, feedURL string) (news.FetchStats, error) {
			return news.FetchStats{}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler(fetcher, []string{"https://a.example.com/rss"}, nil, newTestLogger())
	s.RunOnce(ctx)

	if len(fetcher.calls) != 0 {
		t.Errorf("キャンセル済みコンテキストではフェッチしないこと: calls = %d", len(fetcher.calls))
	}
}

func TestScheduler_Start_StopsOnContextCancel(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, feedURL string) (news.FetchStats, error) {
			return news.FetchStats{}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s := NewScheduler(fetcher, []string{"https://a.example.com/rss"}, nil, newTestLogger())
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	// 起動直後の1回分が走るのを軽く待つ
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("コンテキストキャンセルで停止しなかった")
	}
}

package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/volunteerhub/internal/model"
	"github.com/hitoshi/volunteerhub/internal/repository"
	"github.com/hitoshi/volunteerhub/internal/security"
)

type mockNewsRepo struct {
	upsertFn     func(ctx context.Context, item *model.NewsItem) (bool, error)
	listLatestFn func(ctx context.Context, limit int) ([]*model.NewsItem, error)
}

func (m *mockNewsRepo) Upsert(ctx context.Context, item *model.NewsItem) (bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, item)
	}
	return true, nil
}

func (m *mockNewsRepo) ListLatest(ctx context.Context, limit int) ([]*model.NewsItem, error) {
	if m.listLatestFn != nil {
		return m.listLatestFn(ctx, limit)
	}
	return nil, nil
}

var _ repository.NewsRepository = (*mockNewsRepo)(nil)

// stubGuard はテスト用のSSRF検証スタブ。
// httptestのループバックアドレスへ接続できるよう素のクライアントを返す。
type stubGuard struct {
	validateErr error
}

func (s *stubGuard) ValidateURL(rawURL string) error {
	return s.validateErr
}

func (s *stubGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Community News</title>
    <item>
      <title>Shelter seeks weekend volunteers</title>
      <link>https://news.example.com/articles/1</link>
      <guid>tag:news.example.com,2026:1</guid>
      <description>&lt;p&gt;Help needed &lt;strong&gt;this Saturday&lt;/strong&gt;&lt;script&gt;alert(1)&lt;/script&gt;&lt;/p&gt;</description>
      <pubDate>Mon, 24 Aug 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Park restoration project kicks off</title>
      <link>https://news.example.com/articles/2</link>
      <pubDate>Tue, 25 Aug 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://news.example.com/articles/3</link>
    </item>
  </channel>
</rss>`

func newTestFetcher(repo *mockNewsRepo, guard SSRFValidator) *Fetcher {
	return NewFetcher(repo, guard, security.NewContentSanitizer(), testLogger(), 5*time.Second, 1<<20)
}

func TestFetchFeed_ParsesAndStoresItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Error("User-Agent header must be set")
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	var stored []*model.NewsItem
	repo := &mockNewsRepo{
		upsertFn: func(ctx context.Context, item *model.NewsItem) (bool, error) {
			stored = append(stored, item)
			return true, nil
		},
	}

	fetcher := newTestFetcher(repo, &stubGuard{})

	stats, err := fetcher.FetchFeed(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}

	// タイトルを欠く3件目はスキップされる
	if stats.Total != 2 || stats.Inserted != 2 {
		t.Errorf("stats = %+v, want Total=2 Inserted=2", stats)
	}
	if len(stored) != 2 {
		t.Fatalf("stored = %d items, want 2", len(stored))
	}

	first := stored[0]
	if first.Title != "Shelter seeks weekend volunteers" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.GUID != "tag:news.example.com,2026:1" {
		t.Errorf("GUID = %q", first.GUID)
	}
	if first.Source != server.URL {
		t.Errorf("Source = %q, want %q", first.Source, server.URL)
	}
	if first.PublishedAt.IsZero() {
		t.Error("PublishedAt must be parsed from pubDate")
	}
	if first.ID == "" {
		t.Error("ID must be generated")
	}

	// 要約はサニタイズされ、scriptは残らない
	if want := "<strong>this Saturday</strong>"; !strings.Contains(first.Summary, want) {
		t.Errorf("Summary = %q, missing %q", first.Summary, want)
	}
	if strings.Contains(first.Summary, "<script") {
		t.Errorf("Summary must not contain script tags: %q", first.Summary)
	}

	// GUIDを欠く2件目はリンクで同一性を判定する
	second := stored[1]
	if second.GUID != "https://news.example.com/articles/2" {
		t.Errorf("fallback GUID = %q, want the link", second.GUID)
	}
}

func TestFetchFeed_RejectsUnsafeURL(t *testing.T) {
	repo := &mockNewsRepo{
		upsertFn: func(ctx context.Context, item *model.NewsItem) (bool, error) {
			t.Fatal("unsafe feed must not reach the store")
			return false, nil
		},
	}

	fetcher := newTestFetcher(repo, &stubGuard{validateErr: errors.New("blocked host")})

	_, err := fetcher.FetchFeed(context.Background(), "http://169.254.169.254/feed")
	if err == nil {
		t.Fatal("expected error for unsafe URL")
	}
}

func TestFetchFeed_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockNewsRepo{}, &stubGuard{})

	_, err := fetcher.FetchFeed(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestFetchFeed_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockNewsRepo{}, &stubGuard{})

	_, err := fetcher.FetchFeed(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFetchFeed_UpsertFailureDoesNotAbortFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	calls := 0
	repo := &mockNewsRepo{
		upsertFn: func(ctx context.Context, item *model.NewsItem) (bool, error) {
			calls++
			if calls == 1 {
				return false, errors.New("deadlock detected")
			}
			return true, nil
		},
	}

	fetcher := newTestFetcher(repo, &stubGuard{})

	stats, err := fetcher.FetchFeed(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}
	if calls != 2 {
		t.Errorf("upsert calls = %d, want 2", calls)
	}
	if stats.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", stats.Inserted)
	}
}

func TestFetchAll_ContinuesPastFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	fetcher := newTestFetcher(&mockNewsRepo{}, &stubGuard{})

	results := fetcher.FetchAll(context.Background(), []string{bad.URL, good.URL})
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (only the good feed)", len(results))
	}
	if results[0].Source != good.URL {
		t.Errorf("Source = %q, want %q", results[0].Source, good.URL)
	}
}


func TestFetchFeed_HTMLPage_DiscoversFeedLink(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
			<link rel="alternate" type="application/rss+xml" href="/feed.xml">
		</head><body>news page</body></html>`)
	})

	repo := &mockNewsRepo{}
	fetcher := newTestFetcher(repo, &stubGuard{})

	stats, err := fetcher.FetchFeed(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("FetchFeed() がエラーを返した: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
}

func TestFetchFeed_HTMLPageWithoutFeedLink_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>no feed here</title></head><body></body></html>`)
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockNewsRepo{}, &stubGuard{})

	_, err := fetcher.FetchFeed(context.Background(), server.URL)
	if err == nil {
		t.Fatal("フィードリンクのないHTMLはエラーになること")
	}
}

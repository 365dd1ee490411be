package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/volunteerhub/internal/auth"
)

// Collectorは認証サービスのメトリクス記録インターフェースを満たす。
var _ auth.MetricsRecorder = (*Collector)(nil)

func TestCollector_CountersAppearInScrape(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRegistration()
	c.RecordLoginSuccess()
	c.RecordLoginSuccess()
	c.RecordLoginFailure()
	c.RecordSessionVerified()
	c.RecordSessionDestroyed()
	c.RecordHTTPStatus(401)
	c.RecordNewsItemsInserted(3)
	c.RecordNewsFetchFailure()

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	output := string(body)

	wants := []string{
		"volunteerhub_registrations_total 1",
		"volunteerhub_login_success_total 2",
		"volunteerhub_login_failure_total 1",
		"volunteerhub_sessions_verified_total 1",
		"volunteerhub_sessions_destroyed_total 1",
		`volunteerhub_http_status_total{status_code="401"} 1`,
		"volunteerhub_news_items_inserted_total 3",
		"volunteerhub_news_fetch_fail_total 1",
	}
	for _, want := range wants {
		if !strings.Contains(output, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestNewCollector_RegistersWithoutConflict(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("NewCollector panicked: %v", r)
		}
	}()

	reg := prometheus.NewRegistry()
	NewCollector(reg)
}

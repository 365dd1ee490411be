// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 認証イベント、HTTPステータス、ニュース集約の各カウンタを保持する。
type Collector struct {
	registrations     prometheus.Counter
	loginSuccess      prometheus.Counter
	loginFailure      prometheus.Counter
	sessionsVerified  prometheus.Counter
	sessionsDestroyed prometheus.Counter
	httpStatus        *prometheus.CounterVec
	newsItemsInserted prometheus.Counter
	newsFetchFail     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_registrations_total",
			Help: "ユーザー登録成功の合計数",
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_login_failure_total",
			Help: "ログイン失敗の合計数",
		}),
		sessionsVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_sessions_verified_total",
			Help: "セッション検証成功の合計数",
		}),
		sessionsDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_sessions_destroyed_total",
			Help: "破棄されたセッションの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteerhub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		newsItemsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_news_items_inserted_total",
			Help: "新規保存されたニュース記事の合計数",
		}),
		newsFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteerhub_news_fetch_fail_total",
			Help: "ニュースフィードフェッチ失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.loginSuccess,
		c.loginFailure,
		c.sessionsVerified,
		c.sessionsDestroyed,
		c.httpStatus,
		c.newsItemsInserted,
		c.newsFetchFail,
	)

	return c
}

// RecordRegistration はユーザー登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailure.Inc()
}

// RecordSessionVerified はセッション検証成功を記録する。
func (c *Collector) RecordSessionVerified() {
	c.sessionsVerified.Inc()
}

// RecordSessionDestroyed はセッション破棄を記録する。
func (c *Collector) RecordSessionDestroyed() {
	c.sessionsDestroyed.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordNewsItemsInserted は新規保存されたニュース記事数を記録する。
func (c *Collector) RecordNewsItemsInserted(count int) {
	c.newsItemsInserted.Add(float64(count))
}

// RecordNewsFetchFailure はニュースフィードフェッチ失敗を記録する。
func (c *Collector) RecordNewsFetchFailure() {
	c.newsFetchFail.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

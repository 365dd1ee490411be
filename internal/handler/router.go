package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/volunteerhub/internal/metrics"
	"github.com/hitoshi/volunteerhub/internal/middleware"
	"github.com/hitoshi/volunteerhub/internal/model"
	"github.com/hitoshi/volunteerhub/internal/repository"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker  HealthChecker
	SessionFinder  middleware.SessionFinder
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	CSRFConfig     middleware.CSRFConfig
	Logger         *slog.Logger

	// メトリクス。MetricsGathererがnilの場合は/metricsを公開しない。
	MetricsGatherer prometheus.Gatherer
	HTTPMetrics     middleware.HTTPStatusRecorder

	// 認証
	AuthService  AuthServiceInterface
	AuthConfig   AuthHandlerConfig
	CookieSigner CookieSigner

	// イベント
	EventService EventServiceInterface

	// ニュース
	NewsService NewsServiceInterface

	// 管理者向けユーザー管理
	UserRepo repository.UserRepository
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → HTTPMetrics → AttachUserContext
//
// AttachUserContextは全リクエストで動作し、認可の判断は
// RequireAuthenticated / RequireRoleが各ルートグループで行う。
// 状態変更を伴う/api配下のルートにはCSRF検証を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.AllowedOrigins))
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewHTTPMetricsMiddleware(deps.HTTPMetrics))
	r.Use(middleware.NewAttachUserContext(deps.SessionFinder, deps.CookieSigner))

	authHandler := NewAuthHandler(deps.AuthService, deps.CookieSigner, deps.AuthConfig)
	eventHandler := NewEventHandler(deps.EventService)
	newsHandler := NewNewsHandler(deps.NewsService)
	userHandler := NewUserHandler(deps.UserRepo)

	// --- 運用エンドポイント ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証ルート ---
	// CSRF検証の外に置く。セッションCookie自体がSameSite属性で保護され、
	// ログイン前のクライアントはまだCSRFトークンを持たない。
	r.Route("/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/current", authHandler.Current)
		r.Get("/verify", authHandler.Verify)
	})

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General) → CSRF
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// イベント: 閲覧は公開、書き込みは認証必須
		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuthenticated())
				r.Post("/", eventHandler.Create)
				r.Get("/mine", eventHandler.ListMine)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAuthenticated())
					r.Put("/", eventHandler.Update)
					r.Delete("/", eventHandler.Delete)
				})
			})
		})

		// ニュース: 公開
		r.Get("/news", newsHandler.List)

		// 管理者向け
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Get("/users", userHandler.List)
		})
	})

	return r
}

// newHealthHandler はDB到達性を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
			})
			return
		}

		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
		})
	}
}

// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/volunteerhub/internal/auth"
	"github.com/hitoshi/volunteerhub/internal/config"
	"github.com/hitoshi/volunteerhub/internal/database"
	"github.com/hitoshi/volunteerhub/internal/event"
	"github.com/hitoshi/volunteerhub/internal/handler"
	"github.com/hitoshi/volunteerhub/internal/logger"
	"github.com/hitoshi/volunteerhub/internal/metrics"
	"github.com/hitoshi/volunteerhub/internal/middleware"
	"github.com/hitoshi/volunteerhub/internal/news"
	"github.com/hitoshi/volunteerhub/internal/repository"
	"github.com/hitoshi/volunteerhub/internal/security"
	"github.com/hitoshi/volunteerhub/internal/worker/cleanup"
	"github.com/hitoshi/volunteerhub/internal/worker/newsfetch"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("app_env", cfg.AppEnv),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// シグナル受信でキャンセルされるルートコンテキスト。
	// DB接続リトライとシャットダウン待機の両方に使う。
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続(リトライ付き)。DBが起動するまで固定間隔で無期限に再試行し、
	// シグナル受信時のみ中断する。
	db, err := database.ConnectWithRetry(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	newsRepo := repository.NewPostgresNewsRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	sanitizer := security.NewContentSanitizer()
	cookieSigner := security.NewCookieSigner(cfg.SessionSecret)

	authService := auth.NewService(
		userRepo, sessionRepo, auth.NewBcryptHasher(), collector,
		auth.ServiceConfig{
			SessionMaxAge:    cfg.SessionMaxAge,
			StoreTimeout:     cfg.StoreTimeout,
			FreshCurrentUser: cfg.CurrentUserFreshRead,
		},
	)
	eventService := event.NewService(eventRepo, sanitizer, cfg.StoreTimeout)
	newsService := news.NewService(newsRepo, cfg.StoreTimeout)

	// 5. ミドルウェア設定の構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
	rateLimiterCfg.LoginBurst = cfg.RateLimitLogin
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 本番はクロスオリジンのフロントエンドからCookieを送れるようSameSite=None、
	// 開発はLaxとする。NoneはSecure必須。
	cookieSameSite := http.SameSiteLaxMode
	if cfg.IsProduction() {
		cookieSameSite = http.SameSiteNoneMode
	}

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		HealthChecker:  db,
		SessionFinder:  sessionRepo,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: slog.Default(),

		MetricsGatherer: registry,
		HTTPMetrics:     collector,

		AuthService:  authService,
		CookieSigner: cookieSigner,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:   cfg.CookieDomain,
			CookieSecure:   cfg.CookieSecure,
			CookieSameSite: cookieSameSite,
			SessionMaxAge:  cfg.SessionMaxAge,
		},

		EventService: eventService,
		NewsService:  newsService,
		UserRepo:     userRepo,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はバックグラウンドワーカーモードで起動する。
// ニュースフィードの定期取り込みとセッションクリーンアップを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// シグナル受信でキャンセルされるルートコンテキスト。
	// DB接続リトライと各ジョブの停止の両方に使う。
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続(リトライ付き)。DBが起動するまで固定間隔で無期限に再試行し、
	// シグナル受信時のみ中断する。
	db, err := database.ConnectWithRetry(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)
	newsRepo := repository.NewPostgresNewsRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ニュースフェッチャーの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()
	fetcher := news.NewFetcher(
		newsRepo, ssrfGuard, sanitizer,
		slog.Default(), cfg.NewsFetchTimeout, cfg.NewsMaxResponseSize,
	)
	newsScheduler := newsfetch.NewScheduler(
		fetcher, cfg.NewsFeedURLs, collector, slog.Default(),
	)

	// 5. セッションクリーンアップジョブの初期化
	cleanupJob := cleanup.NewJob(sessionRepo, slog.Default())

	slog.Info("worker starting",
		slog.Duration("news_fetch_interval", cfg.NewsFetchInterval),
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
		slog.Int("feed_count", len(cfg.NewsFeedURLs)),
	)

	// ワーカーのメトリクスとヘルスチェックを公開する軽量HTTPサーバー
	workerServer := newWorkerServer(cfg.ServerPort, registry)
	go func() {
		if err := workerServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker server listen error", slog.String("error", err.Error()))
		}
	}()

	// セッションクリーンアップをバックグラウンドで起動
	go cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	// ニュース取り込みスケジューラをメインgoroutineで実行（ブロッキング）
	newsScheduler.Start(ctx, cfg.NewsFetchInterval)

	slog.Info("shutting down worker...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := workerServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newWorkerServer はワーカープロセス用の/healthと/metricsのみを持つ
// HTTPサーバーを生成する。
func newWorkerServer(port string, registry prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler(registry))

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

// Package app はアプリケーションの起動と依存関係の組み立てを行う。
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/socialfeed/internal/article"
	"github.com/hitoshi/socialfeed/internal/auth"
	"github.com/hitoshi/socialfeed/internal/config"
	"github.com/hitoshi/socialfeed/internal/database"
	"github.com/hitoshi/socialfeed/internal/directory"
	"github.com/hitoshi/socialfeed/internal/feed"
	"github.com/hitoshi/socialfeed/internal/handler"
	"github.com/hitoshi/socialfeed/internal/logger"
	"github.com/hitoshi/socialfeed/internal/metrics"
	"github.com/hitoshi/socialfeed/internal/middleware"
	"github.com/hitoshi/socialfeed/internal/notice"
	"github.com/hitoshi/socialfeed/internal/profile"
	"github.com/hitoshi/socialfeed/internal/repository"
	"github.com/hitoshi/socialfeed/internal/security"
	"github.com/hitoshi/socialfeed/internal/session"
	"github.com/hitoshi/socialfeed/internal/worker/cleanup"
)

// shutdownTimeout はグレースフルシャットダウンの待機時間。
const shutdownTimeout = 10 * time.Second

// Run はサブコマンドに応じてアプリケーションを起動する。
// mainから呼び出されるエントリポイント。
func Run(args []string) error {
	logger.SetupDefault(os.Stdout)

	cmd := ParseCommand(args)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandHealthcheck:
		return runHealthcheck(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーを起動する。
// 全サービスの依存関係を組み立て、グレースフルシャットダウンに対応する。
func runServe(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// リポジトリ層
	stateRepo := repository.NewPostgresStateRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)

	// 外部ディレクトリAPIクライアント（SSRF防止＋サニタイズ＋メトリクス）
	guard := security.NewSSRFGuard()
	safeClient := guard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize)
	sanitizer := security.NewContentSanitizer()
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	dirClient := directory.NewClient(cfg.DirectoryBaseURL, safeClient, sanitizer, collector, cfg.FetchMaxSize)

	// サービス層
	store := session.NewStore(stateRepo)
	svcConfig := auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge}
	authService := auth.NewService(store, dirClient, sessionRepo, svcConfig, slog.Default())

	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	oauthService := auth.NewOAuthService(oauthProvider, store, identRepo, sessionRepo, svcConfig, slog.Default())

	feedService := feed.NewService(dirClient, slog.Default(), collector)
	commentPane := feed.NewCommentPane(dirClient)
	board := notice.NewBoard(0)
	profileService := profile.NewService(store, dirClient, board, slog.Default())
	articleService := article.NewService(articleRepo, slog.Default())

	// レート制限
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		PostRate:        rate.Limit(float64(cfg.RateLimitPost) / 60.0),
		PostBurst:       cfg.RateLimitPost,
		CleanupInterval: 5 * time.Minute,
	})
	defer limiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		AuthService:       authService,
		OAuthService:      oauthService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		FeedService:     feedService,
		CommentPane:     commentPane,
		ProfileService:  profileService,
		ArticleService:  articleService,
		NoticeBoard:     board,
		MetricsGatherer: prometheus.DefaultGatherer,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// runWorker は期限切れセッションの定期削除ワーカーを起動する。
func runWorker(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	job := cleanup.NewCleanupJob(db, slog.Default())

	// 起動時に1回実行してから定期実行に入る
	if err := job.Run(ctx); err != nil {
		slog.Error("initial cleanup run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(cfg.SessionCleanupInterval)
	defer ticker.Stop()

	slog.Info("cleanup worker started",
		slog.String("interval", cfg.SessionCleanupInterval.String()),
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return nil
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを適用する。
func runMigrate(cfg *config.Config) error {
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("migrations applied")
	return nil
}

// runHealthcheck は/healthエンドポイントを叩いて終了コードで結果を返す。
// distroless環境のDockerヘルスチェック用。
func runHealthcheck(cfg *config.Config) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost:" + cfg.ServerPort + "/health")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// maskDatabaseURL は接続URLのパスワード部分をマスクする。ログ出力用。
func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "(invalid url)"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return u.String()
}

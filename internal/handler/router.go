package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/socialfeed/internal/metrics"
	"github.com/hitoshi/socialfeed/internal/middleware"
	"github.com/hitoshi/socialfeed/internal/notice"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService  AuthServiceInterface
	OAuthService OAuthServiceInterface
	AuthConfig   AuthHandlerConfig

	// フィード
	FeedService FeedServiceInterface
	CommentPane CommentPaneInterface

	// プロフィール
	ProfileService ProfileServiceInterface

	// 記事スタブ
	ArticleService ArticleServiceInterface

	// 一時ステータスメッセージ
	NoticeBoard *notice.Board

	// メトリクス
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → RateLimit(General) → CSRF
//
// 認証ルート（/register, /login, /auth/*）と公開エンドポイントはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(middleware.NewLoggingMiddleware(logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	oauthHandler := NewOAuthHandler(deps.OAuthService, deps.AuthConfig)
	feedHandler := NewFeedHandler(deps.FeedService, deps.CommentPane, deps.AuthService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	articleHandler := NewArticleHandler(deps.ArticleService, deps.AuthService)

	// --- 認証不要のルート ---

	r.Get("/", infoHandler)
	r.Get("/health", healthHandler)
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Get("/status", authHandler.Status)

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", oauthHandler.Login)
		r.Get("/google/callback", oauthHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// Prometheusスクレイプ
	if deps.MetricsGatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.MetricsGatherer).ServeHTTP)
	}

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.AuthConfig.CookieSecure,
		CookieDomain: deps.AuthConfig.CookieDomain,
	}

	// CSRFトークン取得（認証不要）
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig).ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))

		// 記事スタブ
		r.Get("/articles", articleHandler.ListArticles)
		r.Get("/articles/{id}", articleHandler.GetArticle)
		r.Put("/articles/{id}", articleHandler.UpdateArticle)
		r.Post("/article", articleHandler.CreateArticle)

		// フィード
		r.Route("/api", func(r chi.Router) {
			r.Get("/feed", feedHandler.GetFeed)
			r.Get("/user", authHandler.CurrentUser)

			// POST /api/posts - 投稿作成（投稿専用レート制限を追加）
			r.With(deps.RateLimiter.PostCreationMiddleware()).Post("/posts", feedHandler.AddPost)
			r.Get("/posts/{id}/comments", feedHandler.ToggleComments)

			// プロフィール
			r.Put("/profile", profileHandler.UpdateProfile)
			r.Put("/headline", profileHandler.UpdateHeadline)
			r.Get("/users", profileHandler.ListUsers)

			// 一時ステータスメッセージ
			if deps.NoticeBoard != nil {
				r.Get("/notice", newNoticeHandler(deps.NoticeBoard))
			}

			// フォローグラフ
			r.Route("/following", func(r chi.Router) {
				r.Get("/", profileHandler.ListFollowing)
				r.Post("/", profileHandler.FollowByName)
				r.Post("/{id}", profileHandler.Follow)
				r.Delete("/{id}", profileHandler.Unfollow)
			})
		})
	})

	return r
}

// infoHandler はルートパスでAPIの案内を返す。
// GET /
func infoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "socialfeed",
		"status":  "ok",
	})
}

// healthHandler はヘルスチェック用のレスポンスを返す。
// GET /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// newNoticeHandler は現在の一時ステータスメッセージを返すハンドラーを生成する。
// GET /api/notice
// TTL経過後は空文字を返す。
func newNoticeHandler(board *notice.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": board.Message(),
		})
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/socialfeed/internal/middleware"
	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/notice"
)

// --- モック定義 ---

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func newTestRouter(t *testing.T, auth *mockAuthService) http.Handler {
	t.Helper()
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)

	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session" {
				return testSession(), nil
			}
			return nil, nil
		},
	}

	return NewRouter(&RouterDeps{
		SessionFinder:     finder,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       limiter,
		AuthService:       auth,
		OAuthService:      &mockOAuthService{},
		AuthConfig:        testAuthConfig(),
		FeedService:       &mockFeedService{},
		CommentPane:       &mockCommentPane{},
		ProfileService:    &mockProfileService{},
		ArticleService:    &mockArticleService{},
		NoticeBoard:       notice.NewBoard(time.Minute),
	})
}

// --- テスト ---

func TestNewRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_RootEndpoint(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_RegisterAndLoginArePublic(t *testing.T) {
	// セッションなしでも401にならずハンドラーへ到達すること
	auth := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewLoginFailedError()
		},
	}
	router := newTestRouter(t, auth)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// ボディ不正で400（セッションミドルウェアの401ではない）
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /login status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestNewRouter_ProtectedRoute_NoSession_ReturnsUnauthorized(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/feed"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/articles"},
		{http.MethodPost, "/api/posts"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want %d", p.method, p.path, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestNewRouter_ProtectedRoute_WithValidSession_ReachesHandler(t *testing.T) {
	auth := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context) (*model.User, error) {
			return &model.User{ID: 1, Username: "bret"}, nil
		},
	}
	router := newTestRouter(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /api/feed status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_MutatingRequest_WithoutCSRFToken_ReturnsForbidden(t *testing.T) {
	auth := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context) (*model.User, error) {
			return &model.User{ID: 1, Username: "bret"}, nil
		},
	}
	router := newTestRouter(t, auth)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("POST /api/posts without CSRF token status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestNewRouter_MutatingRequest_WithCSRFToken_ReachesHandler(t *testing.T) {
	auth := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context) (*model.User, error) {
			return &model.User{ID: 1, Username: "bret"}, nil
		},
	}
	router := newTestRouter(t, auth)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"body":"hi"}`))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-abc"})
	req.Header.Set("X-CSRF-Token", "token-abc")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("POST /api/posts with CSRF token status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestNewRouter_CSRFTokenEndpoint_IssuesToken(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/csrf-token status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := w.Result()
	var tokenCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "csrf_token" {
			tokenCookie = c
			break
		}
	}
	if tokenCookie == nil {
		t.Fatal("expected csrf_token cookie to be set")
	}
	if tokenCookie.HttpOnly {
		t.Error("csrf_token cookie must be readable by the frontend")
	}
}

func TestNewRouter_OAuthLoginEndpoint(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("GET /auth/google/login status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
}

func TestNewRouter_NoticeEndpoint_ReturnsMessage(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/notice", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/notice status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := body["message"]; !ok {
		t.Error("expected message field in notice response")
	}
}

func TestNewRouter_UnknownRoute_Returns404(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("GET /no-such-route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestNewRouter_CORSHeadersPresent(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}

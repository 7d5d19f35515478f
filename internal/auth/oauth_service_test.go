package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/repository"
	"github.com/hitoshi/socialfeed/internal/session"
)

// mockOAuthProvider はOAuthProviderのモック実装。
type mockOAuthProvider struct {
	getLoginURLFunc  func(state string) string
	exchangeCodeFunc func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	return m.getLoginURLFunc(state)
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	return m.exchangeCodeFunc(ctx, code)
}

// mockIdentityRepo はIdentityRepositoryのモック実装。
type mockIdentityRepo struct {
	findFunc   func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
	createFunc func(ctx context.Context, identity *model.Identity) error
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	return m.findFunc(ctx, provider, providerUserID)
}

func (m *mockIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	return m.createFunc(ctx, identity)
}

func googleUser() *OAuthUserInfo {
	return &OAuthUserInfo{
		ProviderUserID: "sub-123",
		Email:          "taro@example.com",
		Name:           "Taro Yamada",
		Provider:       "google",
	}
}

func newTestOAuthService(identRepo *mockIdentityRepo) (*OAuthService, *session.Store) {
	store := session.NewStore(repository.NewMemoryStateRepo())
	provider := &mockOAuthProvider{
		getLoginURLFunc: func(state string) string {
			return "https://accounts.example.com/auth?state=" + state
		},
		exchangeCodeFunc: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return googleUser(), nil
		},
	}
	svc := NewOAuthService(provider, store, identRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600}, testLogger())
	return svc, store
}

// TestHandleCallback_FirstLogin は初回ログインでのidentity作成と名簿追加を検証する。
func TestHandleCallback_FirstLogin(t *testing.T) {
	var createdIdentity *model.Identity
	identRepo := &mockIdentityRepo{
		findFunc: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return nil, nil
		},
		createFunc: func(ctx context.Context, identity *model.Identity) error {
			createdIdentity = identity
			return nil
		},
	}
	svc, store := newTestOAuthService(identRepo)

	user, sess, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createdIdentity == nil {
		t.Fatal("expected identity to be created")
	}
	if createdIdentity.Provider != "google" || createdIdentity.ProviderUserID != "sub-123" {
		t.Errorf("unexpected identity: %+v", createdIdentity)
	}
	if user.Username != "taro" {
		t.Errorf("expected username from email local part, got %q", user.Username)
	}
	if user.ID < oauthUserIDBase {
		t.Errorf("expected oauth id band, got %d", user.ID)
	}
	if sess.UserID != user.ID {
		t.Errorf("session user mismatch: %d vs %d", sess.UserID, user.ID)
	}

	roster, _ := store.RegisteredUsers(context.Background())
	if len(roster) != 1 {
		t.Errorf("expected roster entry, got %+v", roster)
	}

	current, _ := store.GetCurrentUser(context.Background())
	if current == nil || current.Email != "taro@example.com" {
		t.Errorf("expected current user set, got %+v", current)
	}
}

// TestHandleCallback_ReturningUser は2回目以降のログインでidentityを再作成しないことを検証する。
func TestHandleCallback_ReturningUser(t *testing.T) {
	identRepo := &mockIdentityRepo{
		findFunc: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "ident-1", Provider: provider, ProviderUserID: providerUserID}, nil
		},
		createFunc: func(ctx context.Context, identity *model.Identity) error {
			t.Error("identity should not be recreated")
			return nil
		},
	}
	svc, store := newTestOAuthService(identRepo)

	first, _, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected stable user id across logins: %d vs %d", first.ID, second.ID)
	}

	roster, _ := store.RegisteredUsers(context.Background())
	if len(roster) != 0 {
		t.Errorf("returning user should not be re-added to roster: %+v", roster)
	}
}

// TestGetLoginURL はプロバイダーへの委譲を検証する。
func TestGetLoginURL(t *testing.T) {
	svc, _ := newTestOAuthService(&mockIdentityRepo{})

	url := svc.GetLoginURL("xyz")
	if !strings.Contains(url, "state=xyz") {
		t.Errorf("expected state in url, got %q", url)
	}
}

// TestDeriveOAuthUserID_Deterministic は同一アカウントのID導出が決定的であることを検証する。
func TestDeriveOAuthUserID_Deterministic(t *testing.T) {
	a := deriveOAuthUserID("google", "sub-123")
	b := deriveOAuthUserID("google", "sub-123")
	if a != b {
		t.Errorf("expected deterministic id, got %d and %d", a, b)
	}

	c := deriveOAuthUserID("github", "sub-123")
	if a == c {
		t.Error("different providers should derive different ids")
	}
}

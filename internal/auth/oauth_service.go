package auth

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/repository"
	"github.com/hitoshi/socialfeed/internal/session"
)

// oauthUserIDBase はOAuth由来ユーザーのID下限。
// リモートディレクトリの採番（小さい正整数）と衝突しない帯域に寄せる。
const oauthUserIDBase = 1_000_000

// OAuthService はOAuth認証フローのビジネスロジックを提供する。
// 初回ログイン時はidentityレコードを作成し、ユーザーを登録名簿へ追加する。
type OAuthService struct {
	provider    OAuthProvider
	store       *session.Store
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	logger      *slog.Logger
}

// NewOAuthService はOAuthServiceを生成する。
func NewOAuthService(
	provider OAuthProvider,
	store *session.Store,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	logger *slog.Logger,
) *OAuthService {
	return &OAuthService{
		provider:    provider,
		store:       store,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *OAuthService) GetLoginURL(state string) string {
	return s.provider.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 初回ログインの場合はidentitiesレコードを作成し、ユーザーを登録名簿へ追加する。
// 2回目以降は既存identityでログインする。
func (s *OAuthService) HandleCallback(ctx context.Context, code string) (*model.User, *model.Session, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identitiesテーブルで既存の紐付けを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find identity: %w", err)
	}

	userID := deriveOAuthUserID(userInfo.Provider, userInfo.ProviderUserID)
	user := &model.User{
		ID:              userID,
		Username:        usernameFromEmail(userInfo.Email),
		Name:            userInfo.Name,
		Email:           userInfo.Email,
		FollowedUserIDs: []int64{},
	}

	if identity == nil {
		// 3. 初回ログイン: identityを作成し、名簿へ追加
		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			Email:          userInfo.Email,
			Name:           userInfo.Name,
			CreatedAt:      time.Now(),
		}
		if err := s.identRepo.Create(ctx, newIdentity); err != nil {
			return nil, nil, fmt.Errorf("failed to create identity: %w", err)
		}
		if err := s.store.AddRegisteredUser(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("failed to add registered user: %w", err)
		}

		s.logger.Info("new oauth user created",
			slog.Int64("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		s.logger.Info("existing oauth user logged in",
			slog.Int64("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	}

	// 4. ログイン状態にしてセッションを発行
	if err := s.store.SetCurrentUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to set current user: %w", err)
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	sess := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("failed to save session: %w", err)
	}

	return user, sess, nil
}

// deriveOAuthUserID はプロバイダーとプロバイダー側IDから決定的なユーザーIDを導出する。
// 同じIdPアカウントは何度ログインしても同じIDになる。
func deriveOAuthUserID(provider, providerUserID string) int64 {
	h := fnv.New32a()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(providerUserID))
	return oauthUserIDBase + int64(h.Sum32())
}

// usernameFromEmail はメールアドレスのローカル部をユーザー名として使う。
func usernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

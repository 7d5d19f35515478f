// Package auth はパスワード認証、OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/repository"
	"github.com/hitoshi/socialfeed/internal/session"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern   = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)
	zipcodePattern = regexp.MustCompile(`^\d{5}$`)
)

// UserDirectory はリモートディレクトリのユーザー検索・登録インターフェース。
type UserDirectory interface {
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// RegisterRequest はユーザー登録リクエスト。
type RegisterRequest struct {
	Username        string
	Name            string
	Email           string
	Phone           string
	Zipcode         string
	DOB             string
	Password        string
	PasswordConfirm string
}

// Service はパスワード認証に関するビジネスロジックを提供する。
// パスワードは学習用サンプルの仕様どおり平文で比較する。
type Service struct {
	store       *session.Store
	directory   UserDirectory
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	store *session.Store,
	directory UserDirectory,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:       store,
		directory:   directory,
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
	}
}

// Register は新規ユーザーを登録し、ログイン状態にしてセッションを発行する。
// ユーザー名はリモートディレクトリと登録名簿の両方に対して重複チェックする。
// IDはリモートディレクトリへの登録で採番されたものを使う。
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*model.User, *model.Session, error) {
	// 1. 必須フィールド検証（電話と郵便番号は任意）
	required := []struct {
		name  string
		value string
	}{
		{"username", req.Username},
		{"password", req.Password},
		{"name", req.Name},
		{"email", req.Email},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, nil, model.NewMissingFieldError(f.name)
		}
	}
	if req.Password != req.PasswordConfirm {
		return nil, nil, model.NewPasswordMismatchError()
	}

	// 2. 形式検証（任意フィールドは指定された場合だけ検証する）
	if !emailPattern.MatchString(req.Email) {
		return nil, nil, model.NewInvalidEmailError()
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		return nil, nil, model.NewInvalidPhoneError()
	}
	if req.Zipcode != "" && !zipcodePattern.MatchString(req.Zipcode) {
		return nil, nil, model.NewInvalidZipcodeError()
	}

	// 3. ユーザー名の重複チェック
	existing, err := s.directory.FindUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, model.NewFetchFailedError(err.Error())
	}
	if existing != nil {
		return nil, nil, model.NewDuplicateUsernameError(req.Username)
	}

	registered, err := s.store.RegisteredUsers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load registered users: %w", err)
	}
	for i := range registered {
		if strings.EqualFold(registered[i].Username, req.Username) {
			return nil, nil, model.NewDuplicateUsernameError(req.Username)
		}
	}

	// 4. リモートディレクトリへ登録してIDを確定
	user := &model.User{
		Username:        req.Username,
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Phone:           req.Phone,
		Zipcode:         req.Zipcode,
		DOB:             req.DOB,
		FollowedUserIDs: []int64{},
	}

	id, err := s.directory.CreateUser(ctx, user)
	if err != nil {
		return nil, nil, model.NewFetchFailedError(err.Error())
	}
	user.ID = id

	// 5. 名簿へ追加してログイン状態にする
	if err := s.store.AddRegisteredUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to add registered user: %w", err)
	}
	if err := s.store.SetCurrentUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to set current user: %w", err)
	}

	sess, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, sess, nil
}

// Login はユーザー名とパスワードで認証し、ログイン状態にしてセッションを発行する。
// 登録名簿を先に検索し、見つからなければリモートディレクトリを検索する。
// 該当ユーザーなし・パスワード不一致はどちらも同じログイン失敗エラーを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, nil, model.NewLoginFailedError()
	}

	user, err := s.findAccount(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.Password != password {
		s.logger.Warn("login failed", slog.String("username", username))
		return nil, nil, model.NewLoginFailedError()
	}

	if err := s.store.SetCurrentUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to set current user: %w", err)
	}

	sess, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	return user, sess, nil
}

// findAccount は登録名簿→リモートディレクトリの順でユーザー名を検索する。
func (s *Service) findAccount(ctx context.Context, username string) (*model.User, error) {
	registered, err := s.store.RegisteredUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registered users: %w", err)
	}
	for i := range registered {
		if strings.EqualFold(registered[i].Username, username) {
			return &registered[i], nil
		}
	}

	user, err := s.directory.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}
	return user, nil
}

// Logout はセッションを破棄し、ログイン状態を解除する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID != "" {
		if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}

	if err := s.store.ClearCurrentUser(ctx); err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}

	s.logger.Info("user logged out")
	return nil
}

// FindSession は指定IDの有効なセッションを返す。期限切れ・不存在はnilを返す。
func (s *Service) FindSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	sess, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return sess, nil
}

// GetCurrentUser はログイン中のユーザーを返す。未ログインの場合はnilを返す。
func (s *Service) GetCurrentUser(ctx context.Context) (*model.User, error) {
	return s.store.GetCurrentUser(ctx)
}

// IsLoggedIn はログイン状態を返す。
func (s *Service) IsLoggedIn(ctx context.Context) (bool, error) {
	return s.store.IsLoggedIn(ctx)
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID int64) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	sess := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return sess, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Package profile はプロフィール更新とフォローグラフの操作を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/notice"
	"github.com/hitoshi/socialfeed/internal/session"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern   = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)
	zipcodePattern = regexp.MustCompile(`^\d{5}$`)
)

// UserDirectory はリモートディレクトリのユーザー取得インターフェース。
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Update はプロフィール更新リクエスト。nilのフィールドは変更しない。
// IDとユーザー名は更新対象に含めない。ここに無いものは変わらないことが保証される。
type Update struct {
	Name     *string
	Email    *string
	Phone    *string
	Zipcode  *string
	Password *string
}

// Service はプロフィールとフォローグラフのサービス実装。
// 更新系の操作が成功すると、boardに一時ステータスメッセージを掲示する。
type Service struct {
	store     *session.Store
	directory UserDirectory
	board     *notice.Board
	logger    *slog.Logger
}

// NewService はServiceを生成する。boardはnilでもよい（メッセージ掲示をスキップする）。
func NewService(store *session.Store, directory UserDirectory, board *notice.Board, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		board:     board,
		logger:    logger,
	}
}

// postNotice は成功メッセージを掲示板に掲示する。
func (s *Service) postNotice(message string) {
	if s.board != nil {
		s.board.Post(message)
	}
}

// currentUser はログイン中のユーザーを取得する。未ログインならAPIエラーを返す。
func (s *Service) currentUser(ctx context.Context) (*model.User, error) {
	user, err := s.store.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}
	if user == nil {
		return nil, model.NewNotLoggedInError()
	}
	return user, nil
}

// UpdateProfile はログイン中ユーザーのプロフィールを部分更新する。
// メール・電話・郵便番号は形式を検証し、IDとユーザー名は変更しない。
func (s *Service) UpdateProfile(ctx context.Context, update Update) (*model.User, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	// 1. 形式検証（すべて通ってから反映する）
	if update.Email != nil && !emailPattern.MatchString(*update.Email) {
		return nil, model.NewInvalidEmailError()
	}
	if update.Phone != nil && !phonePattern.MatchString(*update.Phone) {
		return nil, model.NewInvalidPhoneError()
	}
	if update.Zipcode != nil && !zipcodePattern.MatchString(*update.Zipcode) {
		return nil, model.NewInvalidZipcodeError()
	}

	// 2. 部分反映（IDとユーザー名はそのまま）
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.Zipcode != nil {
		user.Zipcode = *update.Zipcode
	}
	if update.Password != nil {
		user.Password = *update.Password
	}

	// 3. 永続化
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to persist profile: %w", err)
	}

	s.logger.Info("profile updated", slog.Int64("user_id", user.ID))
	s.postNotice("プロフィールを更新しました。")
	return user, nil
}

// UpdateHeadline はログイン中ユーザーのヘッドラインを更新する。
func (s *Service) UpdateHeadline(ctx context.Context, headline string) (*model.User, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	user.Headline = headline
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to persist headline: %w", err)
	}
	s.postNotice("ヘッドラインを更新しました。")
	return user, nil
}

// Follow はログイン中ユーザーのフォロー先にtargetIDを追加する。
func (s *Service) Follow(ctx context.Context, targetID int64) (*model.User, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if targetID == user.ID {
		return nil, model.NewCannotFollowSelfError()
	}
	if user.IsFollowing(targetID) {
		return nil, model.NewAlreadyFollowingError()
	}

	user.FollowedUserIDs = append(user.FollowedUserIDs, targetID)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to persist follow: %w", err)
	}

	s.logger.Info("user followed",
		slog.Int64("user_id", user.ID),
		slog.Int64("target_id", targetID),
	)
	s.postNotice("フォローしました。")
	return user, nil
}

// Unfollow はログイン中ユーザーのフォロー先からtargetIDを外す。
func (s *Service) Unfollow(ctx context.Context, targetID int64) (*model.User, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if !user.IsFollowing(targetID) {
		return nil, model.NewNotFollowingError()
	}

	filtered := make([]int64, 0, len(user.FollowedUserIDs))
	for _, id := range user.FollowedUserIDs {
		if id != targetID {
			filtered = append(filtered, id)
		}
	}
	user.FollowedUserIDs = filtered

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to persist unfollow: %w", err)
	}

	s.logger.Info("user unfollowed",
		slog.Int64("user_id", user.ID),
		slog.Int64("target_id", targetID),
	)
	s.postNotice("フォローを解除しました。")
	return user, nil
}

// GetAllUsers はリモートディレクトリのユーザーと自前登録ユーザーを結合して返す。
// 同一IDが両方に存在する場合は登録ユーザー側を優先する。
func (s *Service) GetAllUsers(ctx context.Context) ([]model.User, error) {
	remote, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}

	registered, err := s.store.RegisteredUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registered users: %w", err)
	}

	registeredIDs := make(map[int64]struct{}, len(registered))
	for _, u := range registered {
		registeredIDs[u.ID] = struct{}{}
	}

	users := make([]model.User, 0, len(remote)+len(registered))
	for _, u := range remote {
		if _, ok := registeredIDs[u.ID]; !ok {
			users = append(users, u)
		}
	}
	users = append(users, registered...)
	return users, nil
}

// GetFollowedUsers はログイン中ユーザーのフォロー先をユーザー情報つきで返す。
// 未ログインの場合はエラーではなく空のリストを返す。
// 解決できないIDは無言でスキップする。
func (s *Service) GetFollowedUsers(ctx context.Context) ([]model.User, error) {
	user, err := s.store.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}
	if user == nil {
		return []model.User{}, nil
	}

	all, err := s.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.User, len(all))
	for _, u := range all {
		byID[u.ID] = u
	}

	followed := make([]model.User, 0, len(user.FollowedUserIDs))
	for _, id := range user.FollowedUserIDs {
		if u, ok := byID[id]; ok {
			followed = append(followed, u)
		}
	}
	return followed, nil
}

// FindUserByName はユーザー名の大文字小文字を無視した完全一致でユーザーを探す。
// 空文字は検証エラー、該当なしは入力した名前つきのエラーを返す。
func (s *Service) FindUserByName(ctx context.Context, username string) (*model.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, model.NewEmptyUsernameError()
	}

	all, err := s.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}

	for i := range all {
		if strings.EqualFold(all[i].Username, username) {
			return &all[i], nil
		}
	}
	return nil, model.NewUserNotFoundError(username)
}

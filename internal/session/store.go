// Package session はクライアントセッション状態（現在ユーザー・ログインフラグ・登録ユーザー名簿）の
// 保存と取得を提供する。
// 状態は3つの名前付きスロットに永続化され、サービス層とハンドラーは必ずStoreを経由して
// 読み書きする。Storeは起動時に構築され、各コラボレーターへ注入される。
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/repository"
)

// 永続化スロット名。
const (
	slotCurrentUser     = "current_user"
	slotLoginFlag       = "is_logged_in"
	slotRegisteredUsers = "registered_users"
)

// Store はクライアントセッション状態の唯一の所有者。
// 壊れた永続化データは「データなし」として扱い、呼び出し元へエラーとしては返さない。
type Store struct {
	repo repository.StateRepository
}

// NewStore はStoreを生成する。
func NewStore(repo repository.StateRepository) *Store {
	return &Store{repo: repo}
}

// SetCurrentUser はuserをアクティブなセッションとして永続化し、ログインフラグを立てる。
// 既存のセッションは上書きされる。
func (s *Store) SetCurrentUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal current user: %w", err)
	}
	if err := s.repo.Set(ctx, slotCurrentUser, string(data)); err != nil {
		return fmt.Errorf("failed to persist current user: %w", err)
	}
	if err := s.repo.Set(ctx, slotLoginFlag, "true"); err != nil {
		return fmt.Errorf("failed to persist login flag: %w", err)
	}
	return nil
}

// GetCurrentUser は永続化された現在ユーザーを返す。
// スロットが空の場合、またはJSONとして解釈できない場合はnilを返す（エラーにしない）。
func (s *Store) GetCurrentUser(ctx context.Context) (*model.User, error) {
	raw, ok, err := s.repo.Get(ctx, slotCurrentUser)
	if err != nil {
		return nil, fmt.Errorf("failed to read current user: %w", err)
	}
	if !ok {
		return nil, nil
	}

	user := &model.User{}
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		// 壊れたデータは「なし」として扱う
		slog.Warn("malformed current user data, treating as absent",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	return user, nil
}

// UpdateUser は永続化された現在ユーザーをその場で上書きする。ログインフラグは変更しない。
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal current user: %w", err)
	}
	if err := s.repo.Set(ctx, slotCurrentUser, string(data)); err != nil {
		return fmt.Errorf("failed to persist current user: %w", err)
	}
	return nil
}

// ClearCurrentUser は現在ユーザーとログインフラグを削除する。
func (s *Store) ClearCurrentUser(ctx context.Context) error {
	if err := s.repo.Delete(ctx, slotCurrentUser); err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	if err := s.repo.Delete(ctx, slotLoginFlag); err != nil {
		return fmt.Errorf("failed to clear login flag: %w", err)
	}
	return nil
}

// IsLoggedIn はログインフラグが立っており、かつ現在ユーザーが取得できる場合にtrueを返す。
func (s *Store) IsLoggedIn(ctx context.Context) (bool, error) {
	flag, ok, err := s.repo.Get(ctx, slotLoginFlag)
	if err != nil {
		return false, fmt.Errorf("failed to read login flag: %w", err)
	}
	if !ok || flag != "true" {
		return false, nil
	}

	user, err := s.GetCurrentUser(ctx)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// RegisteredUsers は登録ユーザー名簿を挿入順で返す。
// スロットが空、または壊れている場合は空のスライスを返す。
func (s *Store) RegisteredUsers(ctx context.Context) ([]model.User, error) {
	raw, ok, err := s.repo.Get(ctx, slotRegisteredUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to read registered users: %w", err)
	}
	if !ok {
		return []model.User{}, nil
	}

	var users []model.User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		slog.Warn("malformed registered users data, treating as absent",
			slog.String("error", err.Error()),
		)
		return []model.User{}, nil
	}

	return users, nil
}

// AddRegisteredUser は登録ユーザー名簿の末尾にuserを追加して永続化する。
func (s *Store) AddRegisteredUser(ctx context.Context, user *model.User) error {
	users, err := s.RegisteredUsers(ctx)
	if err != nil {
		return err
	}

	users = append(users, *user)
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal registered users: %w", err)
	}
	if err := s.repo.Set(ctx, slotRegisteredUsers, string(data)); err != nil {
		return fmt.Errorf("failed to persist registered users: %w", err)
	}
	return nil
}

// ClearRegisteredUsers は登録ユーザー名簿を削除する（テスト・リセット用）。
func (s *Store) ClearRegisteredUsers(ctx context.Context) error {
	if err := s.repo.Delete(ctx, slotRegisteredUsers); err != nil {
		return fmt.Errorf("failed to clear registered users: %w", err)
	}
	return nil
}

// UserByID はusersからidが一致するユーザーを線形探索で返す。見つからない場合はnilを返す。
func UserByID(id int64, users []model.User) *model.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

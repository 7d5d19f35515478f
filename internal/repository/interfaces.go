// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/socialfeed/internal/model"
)

// StateRepository はクライアントセッション状態（名前付きスロット）の永続化インターフェース。
// スロットには生のJSON文字列を格納し、解釈は上位層（session.Store）が行う。
type StateRepository interface {
	// Get は指定スロットの値を取得する。スロットが存在しない場合はok=falseを返す。
	Get(ctx context.Context, slot string) (value string, ok bool, err error)

	// Set は指定スロットの値を上書きする。スロットが無ければ作成する。
	Set(ctx context.Context, slot, value string) error

	// Delete は指定スロットを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, slot string) error
}

// SessionRepository はCookieセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID int64) error
}

// ArticleRepository はローカルスタブの記事データの永続化インターフェース。
type ArticleRepository interface {
	// List は全記事をID昇順で返す。
	List(ctx context.Context) ([]*model.Article, error)

	// FindByID は指定IDの記事をコメント付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Article, error)

	// Create は記事を作成し、採番されたIDをarticleに埋める。
	Create(ctx context.Context, article *model.Article) error

	// UpdateText は記事本文を上書きする。対象が無い場合はfalseを返す。
	UpdateText(ctx context.Context, id int64, text string) (bool, error)

	// AddComment は記事にコメントを追記する。対象記事が無い場合はfalseを返す。
	AddComment(ctx context.Context, articleID int64, comment *model.ArticleComment) (bool, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Create はidentityを作成する。
	Create(ctx context.Context, identity *model.Identity) error
}

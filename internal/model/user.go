// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// パスワードは学習用サンプルの仕様どおり平文で保持する（本番運用不可の既知のショートカット）。
// FollowedUserIDsは集合として扱う（重複は意味を持たず、順序も不問）。
// 不変条件: 自分自身のIDはFollowedUserIDsに含まれない。
type User struct {
	ID              int64   `json:"id"`
	Username        string  `json:"username"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Password        string  `json:"password,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	Zipcode         string  `json:"zipcode,omitempty"`
	DOB             string  `json:"dob,omitempty"`
	Headline        string  `json:"headline,omitempty"`
	Avatar          string  `json:"avatar,omitempty"`
	FollowedUserIDs []int64 `json:"followedUserIds"`
}

// IsFollowing はtargetIDがフォローリストに含まれるかを返す。
func (u *User) IsFollowing(targetID int64) bool {
	for _, id := range u.FollowedUserIDs {
		if id == targetID {
			return true
		}
	}
	return false
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	CreatedAt      time.Time
}

// Session はCookieで相関されるログインセッションを表す。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

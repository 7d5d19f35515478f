// Package model はドメインモデルを定義する。
package model

// Post はフィードに表示される投稿を表す。
// AuthorとTimestampはリモート取得後に付与される導出フィールドで、
// Timestampは相対的な並び順のためだけに使う（実時刻の真実性は持たない）。
type Post struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Author    string `json:"author,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Image     string `json:"image,omitempty"`
}

// Comment は投稿に紐づく読み取り専用のコメントを表す。
// 投稿IDごとに遅延取得され、セッション中はキャッシュされる。
type Comment struct {
	PostID int64  `json:"postId"`
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

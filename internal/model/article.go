// Package model はドメインモデルを定義する。
package model

import "time"

// Article はローカルバックエンドスタブが配信する記事を表す。
type Article struct {
	ID       int64
	Author   string
	Text     string
	Date     time.Time
	Comments []ArticleComment
}

// ArticleComment は記事に追記されるコメントを表す。
// PUT /articles/{id} でcommentIdが指定された場合に末尾へ追加される。
type ArticleComment struct {
	ID     string
	Author string
	Text   string
	Date   time.Time
}

// Package notice は画面上部に出す一時ステータスメッセージを管理する。
package notice

import (
	"sync"
	"time"
)

// DefaultTTL はメッセージが自動消去されるまでの既定時間。
const DefaultTTL = 3 * time.Second

// Board は一件のステータスメッセージを保持する掲示板。
// Postのたびに消去タイマーを起動するが、既存タイマーのキャンセルは行わない。
// 古いタイマーが後から発火した場合、新しいメッセージも消去されることがある。
type Board struct {
	mu      sync.Mutex
	message string
	ttl     time.Duration
}

// NewBoard はBoardを生成する。ttlが0以下の場合はDefaultTTLを使う。
func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl}
}

// Post はメッセージを掲示し、TTL経過後の消去をスケジュールする。
func (b *Board) Post(message string) {
	b.mu.Lock()
	b.message = message
	b.mu.Unlock()

	time.AfterFunc(b.ttl, func() {
		b.mu.Lock()
		b.message = ""
		b.mu.Unlock()
	})
}

// Message は現在のメッセージを返す。消去済みの場合は空文字を返す。
func (b *Board) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}

// Clear はメッセージを即時消去する。
func (b *Board) Clear() {
	b.mu.Lock()
	b.message = ""
	b.mu.Unlock()
}

package repository

import (
	"context"
	"sync"
)

// MemoryStateRepo はインメモリのセッション状態リポジトリ。
// 単体テストおよびDBなしのローカル起動で使用する。
type MemoryStateRepo struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewMemoryStateRepo はMemoryStateRepoを生成する。
func NewMemoryStateRepo() *MemoryStateRepo {
	return &MemoryStateRepo{slots: make(map[string]string)}
}

// Get は指定スロットの値を取得する。スロットが存在しない場合はok=falseを返す。
func (r *MemoryStateRepo) Get(ctx context.Context, slot string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.slots[slot]
	return v, ok, nil
}

// Set は指定スロットの値を上書きする。
func (r *MemoryStateRepo) Set(ctx context.Context, slot, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot] = value
	return nil
}

// Delete は指定スロットを削除する。存在しない場合もエラーにしない。
func (r *MemoryStateRepo) Delete(ctx context.Context, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, slot)
	return nil
}

// compile-time interface check
var _ StateRepository = (*MemoryStateRepo)(nil)

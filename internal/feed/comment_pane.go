package feed

import (
	"context"
	"sync"

	"github.com/hitoshi/socialfeed/internal/model"
)

// PaneState はコメント欄の表示状態。
type PaneState string

const (
	PaneHidden  PaneState = "hidden"
	PaneLoading PaneState = "loading"
	PaneShown   PaneState = "shown"
)

// CommentPane は投稿ごとのコメント欄の状態とコメントキャッシュを管理する。
// 遷移は hidden→loading→shown、shown⇄hidden のみ。取得失敗時はhiddenへ戻る。
// 一度取得したコメントは投稿IDごとにキャッシュし、再表示では再取得しない。
type CommentPane struct {
	source PostSource

	mu     sync.Mutex
	states map[int64]PaneState
	cache  map[int64][]model.Comment
}

// NewCommentPane はCommentPaneを生成する。
func NewCommentPane(source PostSource) *CommentPane {
	return &CommentPane{
		source: source,
		states: make(map[int64]PaneState),
		cache:  make(map[int64][]model.Comment),
	}
}

// State は指定投稿のコメント欄の状態を返す。未操作の投稿はhidden。
func (p *CommentPane) State(postID int64) PaneState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.states[postID]; ok {
		return state
	}
	return PaneHidden
}

// Comments はキャッシュ済みコメントを返す。未取得ならnil。
func (p *CommentPane) Comments(postID int64) []model.Comment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache[postID]
}

// Toggle はコメント欄の表示を切り替える。
// hiddenからの表示時、キャッシュ済みならすぐshownへ、未取得ならloadingを経て取得する。
// 取得に失敗した場合はhiddenへ戻し、エラーを返す。
func (p *CommentPane) Toggle(ctx context.Context, postID int64) (PaneState, []model.Comment, error) {
	p.mu.Lock()
	current, ok := p.states[postID]
	if !ok {
		current = PaneHidden
	}

	switch current {
	case PaneShown:
		p.states[postID] = PaneHidden
		p.mu.Unlock()
		return PaneHidden, nil, nil

	case PaneLoading:
		// 取得中の再操作は無視する
		p.mu.Unlock()
		return PaneLoading, nil, nil
	}

	if cached, ok := p.cache[postID]; ok {
		p.states[postID] = PaneShown
		p.mu.Unlock()
		return PaneShown, cached, nil
	}

	p.states[postID] = PaneLoading
	p.mu.Unlock()

	comments, err := p.source.ListComments(ctx, postID)
	if err != nil {
		p.mu.Lock()
		p.states[postID] = PaneHidden
		p.mu.Unlock()
		return PaneHidden, nil, model.NewFetchFailedError(err.Error())
	}

	p.mu.Lock()
	p.cache[postID] = comments
	p.states[postID] = PaneShown
	p.mu.Unlock()
	return PaneShown, comments, nil
}

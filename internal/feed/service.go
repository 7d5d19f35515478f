// Package feed はメインフィードの取得・絞り込み・投稿追加と、
// 投稿ごとのコメント欄の状態管理を提供する。
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/socialfeed/internal/model"
)

// PostSource はリモートソースの投稿・コメント取得インターフェース。
type PostSource interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)
	CreatePost(ctx context.Context, post model.Post) (model.Post, error)
}

// LoadRecorder は投稿ロード数のメトリクス記録インターフェース。
type LoadRecorder interface {
	RecordPostsLoaded(count int)
}

// Service はフィードのサービス実装。
// 取得した投稿はメモリに保持し、新規投稿は先頭へ追加する。
type Service struct {
	source   PostSource
	logger   *slog.Logger
	recorder LoadRecorder

	mu    sync.RWMutex
	posts []model.Post
}

// NewService はServiceを生成する。recorderはnil可。
func NewService(source PostSource, logger *slog.Logger, recorder LoadRecorder) *Service {
	return &Service{
		source:   source,
		logger:   logger,
		recorder: recorder,
	}
}

// decorate は投稿に表示用の著者名と擬似タイムスタンプを付与する。
// タイムスタンプはID由来の決定的なオフセットをロード時刻から引いたもので、
// IDが小さい投稿ほど新しい扱いになる。
func decorate(post model.Post, loadedAt time.Time) model.Post {
	if post.Author == "" {
		post.Author = fmt.Sprintf("User %d", post.UserID)
	}
	if post.Timestamp == 0 {
		post.Timestamp = loadedAt.UnixMilli() - post.ID*60_000
	}
	return post
}

// LoadPosts はリモートソースから全投稿を取得し、装飾してキャッシュする。
// 以前のキャッシュは置き換えられる。
func (s *Service) LoadPosts(ctx context.Context) ([]model.Post, error) {
	raw, err := s.source.ListPosts(ctx)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}

	loadedAt := time.Now()
	posts := make([]model.Post, len(raw))
	for i := range raw {
		posts[i] = decorate(raw[i], loadedAt)
	}

	s.mu.Lock()
	s.posts = posts
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordPostsLoaded(len(posts))
	}
	s.logger.Info("posts loaded", slog.Int("count", len(posts)))
	return posts, nil
}

// cachedPosts はキャッシュ済み投稿のコピーを返す。未ロードならリモートから取得する。
func (s *Service) cachedPosts(ctx context.Context) ([]model.Post, error) {
	s.mu.RLock()
	cached := s.posts
	s.mu.RUnlock()

	if cached == nil {
		return s.LoadPosts(ctx)
	}

	posts := make([]model.Post, len(cached))
	copy(posts, cached)
	return posts, nil
}

// GetPostsForUser はuser本人とフォロー先の投稿をタイムスタンプ降順で返す。
// 同値のタイムスタンプ同士は元の順序を保つ。
func (s *Service) GetPostsForUser(ctx context.Context, user *model.User) ([]model.Post, error) {
	if user == nil {
		return nil, model.NewNotLoggedInError()
	}

	posts, err := s.cachedPosts(ctx)
	if err != nil {
		return nil, err
	}

	visible := make(map[int64]struct{}, len(user.FollowedUserIDs)+1)
	visible[user.ID] = struct{}{}
	for _, id := range user.FollowedUserIDs {
		visible[id] = struct{}{}
	}

	filtered := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if _, ok := visible[p.UserID]; ok {
			filtered = append(filtered, p)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp > filtered[j].Timestamp
	})
	return filtered, nil
}

// FilterPosts はタイトル・本文・著者名のいずれかにtermを含む投稿だけを返す。
// 比較は大文字小文字を無視する。空白のみのtermは恒等フィルタとして全件返す。
func FilterPosts(posts []model.Post, term string) []model.Post {
	term = strings.TrimSpace(term)
	if term == "" {
		return posts
	}

	lowered := strings.ToLower(term)
	filtered := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), lowered) ||
			strings.Contains(strings.ToLower(p.Body), lowered) ||
			strings.Contains(strings.ToLower(p.Author), lowered) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// AddPost は投稿をリモートソースへ送信し、確定したIDでキャッシュの先頭に追加する。
func (s *Service) AddPost(ctx context.Context, user *model.User, title, body, image string) (*model.Post, error) {
	if user == nil {
		return nil, model.NewNotLoggedInError()
	}
	if strings.TrimSpace(body) == "" {
		return nil, model.NewMissingFieldError("body")
	}

	post := model.Post{
		UserID: user.ID,
		Title:  title,
		Body:   body,
		Image:  image,
	}

	created, err := s.source.CreatePost(ctx, post)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}

	// ロード済み投稿と同じ著者ラベル形式に揃える
	created.Author = fmt.Sprintf("User %d", user.ID)
	created.Timestamp = time.Now().UnixMilli()

	s.mu.Lock()
	s.posts = append([]model.Post{created}, s.posts...)
	s.mu.Unlock()

	s.logger.Info("post added",
		slog.Int64("post_id", created.ID),
		slog.Int64("user_id", user.ID),
	)
	return &created, nil
}

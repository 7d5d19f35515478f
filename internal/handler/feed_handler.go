package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/socialfeed/internal/feed"
	"github.com/hitoshi/socialfeed/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	GetPostsForUser(ctx context.Context, user *model.User) ([]model.Post, error)
	AddPost(ctx context.Context, user *model.User, title, body, image string) (*model.Post, error)
}

// CommentPaneInterface はコメント欄の状態管理インターフェース。
type CommentPaneInterface interface {
	Toggle(ctx context.Context, postID int64) (feed.PaneState, []model.Comment, error)
}

// FeedHandler はメインフィードのHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
	pane    CommentPaneInterface
	users   CurrentUserProvider
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface, pane CommentPaneInterface, users CurrentUserProvider) *FeedHandler {
	return &FeedHandler{
		service: service,
		pane:    pane,
		users:   users,
	}
}

// addPostRequest は投稿作成リクエストのボディ。
type addPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image"`
}

// feedResponse はフィードのAPIレスポンス。
type feedResponse struct {
	Posts []model.Post `json:"posts"`
}

// commentsResponse はコメント欄のAPIレスポンス。
type commentsResponse struct {
	State    string          `json:"state"`
	Comments []model.Comment `json:"comments"`
}

// GetFeed はログイン中ユーザーのフィードを返す。
// searchクエリパラメータが指定されていれば本文・著者名で絞り込む。
// GET /api/feed?search=
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	posts, err := h.service.GetPostsForUser(r.Context(), user)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	posts = feed.FilterPosts(posts, r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, feedResponse{Posts: posts})
}

// AddPost は投稿を作成する。
// POST /api/posts
func (h *FeedHandler) AddPost(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req addPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	post, err := h.service.AddPost(r.Context(), user, req.Title, req.Body, req.Image)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// ToggleComments はコメント欄の表示を切り替え、現在の状態とコメントを返す。
// GET /api/posts/{id}/comments
func (h *FeedHandler) ToggleComments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	raw := chi.URLParam(r, "id")
	postID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || postID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "投稿IDが不正です。",
			Category: "validation",
			Action:   "数値の投稿IDを指定してください。",
		})
		return
	}

	state, comments, err := h.pane.Toggle(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, commentsResponse{
		State:    string(state),
		Comments: comments,
	})
}

// currentUser はログイン中ユーザーを返す。未ログインなら401を書き込む。
func (h *FeedHandler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := h.users.GetCurrentUser(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotLoggedInError())
		return nil, false
	}
	return user, true
}

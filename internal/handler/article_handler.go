package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/socialfeed/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	ListArticles(ctx context.Context) ([]*model.Article, error)
	GetArticle(ctx context.Context, id int64) (*model.Article, error)
	CreateArticle(ctx context.Context, author, text string) (*model.Article, error)
	UpdateText(ctx context.Context, id int64, text string) (*model.Article, error)
	AddComment(ctx context.Context, id int64, author, text string) (*model.Article, error)
}

// CurrentUserProvider はログイン中ユーザーの取得インターフェース。
type CurrentUserProvider interface {
	GetCurrentUser(ctx context.Context) (*model.User, error)
}

// ArticleHandler は記事管理のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
	users   CurrentUserProvider
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface, users CurrentUserProvider) *ArticleHandler {
	return &ArticleHandler{
		service: service,
		users:   users,
	}
}

// createArticleRequest は記事作成リクエストのボディ。
type createArticleRequest struct {
	Text string `json:"text"`
}

// updateArticleRequest は記事更新リクエストのボディ。
// textが指定されていれば本文差し替え、commentが指定されていればコメント追記。
type updateArticleRequest struct {
	Text    string `json:"text"`
	Comment string `json:"comment"`
}

// articlesResponse は記事一覧のAPIレスポンス。
type articlesResponse struct {
	Articles []*model.Article `json:"articles"`
}

// ListArticles は全記事を返す。
// GET /articles
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.ListArticles(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, articlesResponse{Articles: articles})
}

// GetArticle は指定IDの記事を返す。
// GET /articles/{id}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleIDFromURL(w, r)
	if !ok {
		return
	}

	article, err := h.service.GetArticle(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, articlesResponse{Articles: []*model.Article{article}})
}

// CreateArticle はログイン中ユーザー名義の記事を作成する。
// POST /article
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	author, ok := h.currentUsername(w, r)
	if !ok {
		return
	}

	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	article, err := h.service.CreateArticle(r.Context(), author, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, articlesResponse{Articles: []*model.Article{article}})
}

// UpdateArticle は記事本文の差し替え、またはコメントの追記を処理する。
// PUT /articles/{id}
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleIDFromURL(w, r)
	if !ok {
		return
	}

	var req updateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	var (
		article *model.Article
		err     error
	)
	switch {
	case req.Text != "":
		article, err = h.service.UpdateText(r.Context(), id, req.Text)
	case req.Comment != "":
		author, ok := h.currentUsername(w, r)
		if !ok {
			return
		}
		article, err = h.service.AddComment(r.Context(), id, author, req.Comment)
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("text"))
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, articlesResponse{Articles: []*model.Article{article}})
}

// currentUsername はログイン中ユーザーのユーザー名を返す。未ログインなら401を書き込む。
func (h *ArticleHandler) currentUsername(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, err := h.users.GetCurrentUser(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return "", false
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotLoggedInError())
		return "", false
	}
	return user.Username, true
}

// articleIDFromURL はURLパスから記事IDを取り出す。不正な場合は400を書き込む。
func articleIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "記事IDが不正です。",
			Category: "validation",
			Action:   "数値の記事IDを指定してください。",
		})
		return 0, false
	}
	return id, true
}

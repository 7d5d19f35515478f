package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	UpdateProfile(ctx context.Context, update profile.Update) (*model.User, error)
	UpdateHeadline(ctx context.Context, headline string) (*model.User, error)
	Follow(ctx context.Context, targetID int64) (*model.User, error)
	Unfollow(ctx context.Context, targetID int64) (*model.User, error)
	GetAllUsers(ctx context.Context) ([]model.User, error)
	GetFollowedUsers(ctx context.Context) ([]model.User, error)
	FindUserByName(ctx context.Context, username string) (*model.User, error)
}

// ProfileHandler はプロフィールとフォローグラフのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 指定されたフィールドだけが更新される。
type updateProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Zipcode  *string `json:"zipcode"`
	Password *string `json:"password"`
}

// updateHeadlineRequest はヘッドライン更新リクエストのボディ。
type updateHeadlineRequest struct {
	Headline string `json:"headline"`
}

// followByNameRequest はユーザー名指定のフォローリクエストのボディ。
type followByNameRequest struct {
	Username string `json:"username"`
}

// usersResponse はユーザー一覧のAPIレスポンス。
type usersResponse struct {
	Users []userResponse `json:"users"`
}

func toUsersResponse(users []model.User) usersResponse {
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return usersResponse{Users: out}
}

// UpdateProfile はログイン中ユーザーのプロフィールを部分更新する。
// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), profile.Update{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Zipcode:  req.Zipcode,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateHeadline はログイン中ユーザーのヘッドラインを更新する。
// PUT /api/headline
func (h *ProfileHandler) UpdateHeadline(w http.ResponseWriter, r *http.Request) {
	var req updateHeadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.UpdateHeadline(r.Context(), req.Headline)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ListUsers は全ユーザー（リモート＋登録済み）を返す。
// GET /api/users
func (h *ProfileHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUsersResponse(users))
}

// ListFollowing はログイン中ユーザーのフォロー先一覧を返す。
// GET /api/following
func (h *ProfileHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetFollowedUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUsersResponse(users))
}

// Follow は指定IDのユーザーをフォローする。
// POST /api/following/{id}
func (h *ProfileHandler) Follow(w http.ResponseWriter, r *http.Request) {
	targetID, ok := targetIDFromURL(w, r)
	if !ok {
		return
	}

	user, err := h.service.Follow(r.Context(), targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// FollowByName はユーザー名でユーザーを検索してフォローする。
// POST /api/following
func (h *ProfileHandler) FollowByName(w http.ResponseWriter, r *http.Request) {
	var req followByNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	target, err := h.service.FindUserByName(r.Context(), req.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.service.Follow(r.Context(), target.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Unfollow は指定IDのユーザーのフォローを解除する。
// DELETE /api/following/{id}
func (h *ProfileHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	targetID, ok := targetIDFromURL(w, r)
	if !ok {
		return
	}

	user, err := h.service.Unfollow(r.Context(), targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// targetIDFromURL はURLパスからフォロー対象のユーザーIDを取り出す。
func targetIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "ユーザーIDが不正です。",
			Category: "validation",
			Action:   "数値のユーザーIDを指定してください。",
		})
		return 0, false
	}
	return id, true
}

// Package directory はリモートのユーザー・投稿・コメントソースへのクライアントを提供する。
// リモートソースはJSONPlaceholder互換のREST APIで、読み取り専用の参照ディレクトリ
// （ユーザー一覧）と投稿・コメントのソースを兼ねる。
// すべての送信リクエストはSSRF防止付きHTTPクライアント経由で行うこと。
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/security"
)

// FetchMetrics はディレクトリ取得のメトリクス記録インターフェース。
// nilを渡した場合は記録しない。
type FetchMetrics interface {
	RecordFetchSuccess(endpoint string)
	RecordFetchFailure(endpoint string, reason string)
	RecordFetchLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Client はリモートディレクトリのHTTPクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
	sanitizer  security.ContentSanitizerService
	metrics    FetchMetrics
	maxSize    int64
}

// NewClient はClientを生成する。
// httpClientにはsecurity.SSRFGuardService.NewSafeClientで生成したクライアントを渡す。
// metricsはnil可。
func NewClient(baseURL string, httpClient *http.Client, sanitizer security.ContentSanitizerService, metrics FetchMetrics, maxSize int64) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		sanitizer:  sanitizer,
		metrics:    metrics,
		maxSize:    maxSize,
	}
}

// remoteUser はリモートディレクトリのユーザーレスポンス。
// ネストされたaddressからzipcodeのみを取り出す。
type remoteUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  struct {
		Zipcode string `json:"zipcode"`
	} `json:"address"`
}

// toModel はリモートユーザーをドメインモデルに変換する。
// パスワードはサンプルシステムの慣例どおりユーザー名の小文字先頭5文字を導出する。
func (u *remoteUser) toModel() model.User {
	password := strings.ToLower(u.Username)
	if len(password) > 5 {
		password = password[:5]
	}
	return model.User{
		ID:              u.ID,
		Username:        u.Username,
		Name:            u.Name,
		Email:           u.Email,
		Password:        password,
		Phone:           u.Phone,
		Zipcode:         u.Address.Zipcode,
		FollowedUserIDs: []int64{},
	}
}

// ListPosts はリモートソースから全投稿を取得する。
// 本文とタイトルはサニタイズして返す。
func (c *Client) ListPosts(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := c.getJSON(ctx, "/posts", &posts); err != nil {
		return nil, err
	}

	for i := range posts {
		posts[i].Title = c.sanitize(posts[i].Title)
		posts[i].Body = c.sanitize(posts[i].Body)
	}
	return posts, nil
}

// ListComments は指定投稿のコメントを取得する。
func (c *Client) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.getJSON(ctx, fmt.Sprintf("/posts/%d/comments", postID), &comments); err != nil {
		return nil, err
	}

	for i := range comments {
		comments[i].Body = c.sanitize(comments[i].Body)
		comments[i].Name = c.sanitize(comments[i].Name)
	}
	return comments, nil
}

// CreatePost は投稿をリモートソースへ送信する。
// レスポンスに含まれるIDをpostへマージして返す（リモート採番が優先される）。
func (c *Client) CreatePost(ctx context.Context, post model.Post) (model.Post, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.postJSON(ctx, "/posts", post, &created); err != nil {
		return model.Post{}, err
	}

	if created.ID != 0 {
		post.ID = created.ID
	}
	return post, nil
}

// ListUsers はリモートディレクトリの全ユーザーを取得する。
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var raw []remoteUser
	if err := c.getJSON(ctx, "/users", &raw); err != nil {
		return nil, err
	}

	users := make([]model.User, len(raw))
	for i := range raw {
		users[i] = raw[i].toModel()
	}
	return users, nil
}

// FindUserByUsername はユーザー名の完全一致クエリでユーザーを検索する。
// 見つからない場合はnilを返す。
func (c *Client) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var raw []remoteUser
	path := "/users?username=" + url.QueryEscape(username)
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	user := raw[0].toModel()
	return &user, nil
}

// CreateUser はユーザーをリモートディレクトリへ登録し、採番されたIDを返す。
func (c *Client) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.postJSON(ctx, "/users", user, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// getJSON はGETリクエストを送信し、レスポンスボディをoutへデコードする。
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, path, out)
}

// postJSON はJSONボディ付きのPOSTリクエストを送信し、レスポンスをoutへデコードする。
func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

// do はリクエストを実行し、サイズ上限付きでレスポンスを読み取る。
// メトリクスが設定されている場合は成否・レイテンシ・ステータスコードを記録する。
func (c *Client) do(req *http.Request, endpoint string, out interface{}) error {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(endpoint, "transport")
		return fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	c.recordLatency(time.Since(start))
	c.recordStatus(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordFailure(endpoint, fmt.Sprintf("status_%d", resp.StatusCode))
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		c.recordFailure(endpoint, "read")
		return fmt.Errorf("failed to read directory response: %w", err)
	}
	if int64(len(body)) > c.maxSize {
		c.recordFailure(endpoint, "size_limit")
		return fmt.Errorf("directory response exceeds size limit (%d bytes)", c.maxSize)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			c.recordFailure(endpoint, "parse")
			return fmt.Errorf("failed to parse directory response: %w", err)
		}
	}

	c.recordSuccess(endpoint)
	return nil
}

func (c *Client) sanitize(s string) string {
	if c.sanitizer == nil {
		return s
	}
	return c.sanitizer.Sanitize(s)
}

func (c *Client) recordSuccess(endpoint string) {
	if c.metrics != nil {
		c.metrics.RecordFetchSuccess(endpoint)
	}
}

func (c *Client) recordFailure(endpoint, reason string) {
	if c.metrics != nil {
		c.metrics.RecordFetchFailure(endpoint, reason)
	}
}

func (c *Client) recordLatency(d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordFetchLatency(d)
	}
}

func (c *Client) recordStatus(code int) {
	if c.metrics != nil {
		c.metrics.RecordHTTPStatus(code)
	}
}

// Package article はローカルスタブの記事CRUDを提供する。
package article

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/socialfeed/internal/model"
	"github.com/hitoshi/socialfeed/internal/repository"
)

// Service は記事サービスの実装。
type Service struct {
	repo   repository.ArticleRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.ArticleRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ListArticles は全記事をID昇順で返す。
func (s *Service) ListArticles(ctx context.Context) ([]*model.Article, error) {
	articles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// GetArticle は指定IDの記事を返す。存在しない場合はAPIエラーを返す。
func (s *Service) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	article, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(id)
	}
	return article, nil
}

// CreateArticle はauthor名義で記事を作成する。本文が空の場合は検証エラーを返す。
func (s *Service) CreateArticle(ctx context.Context, author, text string) (*model.Article, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.NewMissingFieldError("text")
	}

	article := &model.Article{
		Author:   author,
		Text:     text,
		Date:     s.now().UTC(),
		Comments: []model.ArticleComment{},
	}
	if err := s.repo.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	s.logger.Info("article created",
		slog.Int64("article_id", article.ID),
		slog.String("author", author),
	)
	return article, nil
}

// UpdateText は記事本文を差し替え、更新後の記事を返す。
func (s *Service) UpdateText(ctx context.Context, id int64, text string) (*model.Article, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.NewMissingFieldError("text")
	}

	found, err := s.repo.UpdateText(ctx, id, text)
	if err != nil {
		return nil, fmt.Errorf("failed to update article text: %w", err)
	}
	if !found {
		return nil, model.NewArticleNotFoundError(id)
	}

	return s.GetArticle(ctx, id)
}

// AddComment はauthor名義のコメントを記事に追記し、更新後の記事を返す。
func (s *Service) AddComment(ctx context.Context, id int64, author, text string) (*model.Article, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.NewMissingFieldError("comment")
	}

	comment := &model.ArticleComment{
		ID:     uuid.New().String(),
		Author: author,
		Text:   text,
		Date:   s.now().UTC(),
	}

	found, err := s.repo.AddComment(ctx, id, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	if !found {
		return nil, model.NewArticleNotFoundError(id)
	}

	return s.GetArticle(ctx, id)
}

package article

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/socialfeed/internal/model"
)

// mockArticleRepo はArticleRepositoryのモック実装。
type mockArticleRepo struct {
	listFunc       func(ctx context.Context) ([]*model.Article, error)
	findByIDFunc   func(ctx context.Context, id int64) (*model.Article, error)
	createFunc     func(ctx context.Context, article *model.Article) error
	updateTextFunc func(ctx context.Context, id int64, text string) (bool, error)
	addCommentFunc func(ctx context.Context, articleID int64, comment *model.ArticleComment) (bool, error)
}

func (m *mockArticleRepo) List(ctx context.Context) ([]*model.Article, error) {
	return m.listFunc(ctx)
}

func (m *mockArticleRepo) FindByID(ctx context.Context, id int64) (*model.Article, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockArticleRepo) Create(ctx context.Context, article *model.Article) error {
	return m.createFunc(ctx, article)
}

func (m *mockArticleRepo) UpdateText(ctx context.Context, id int64, text string) (bool, error) {
	return m.updateTextFunc(ctx, id, text)
}

func (m *mockArticleRepo) AddComment(ctx context.Context, articleID int64, comment *model.ArticleComment) (bool, error) {
	return m.addCommentFunc(ctx, articleID, comment)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestCreateArticle_SetsAuthorAndDate は記事作成時のフィールド設定を検証する。
func TestCreateArticle_SetsAuthorAndDate(t *testing.T) {
	var created *model.Article
	repo := &mockArticleRepo{
		createFunc: func(ctx context.Context, article *model.Article) error {
			article.ID = 4
			created = article
			return nil
		},
	}
	svc := NewService(repo, testLogger())

	article, err := svc.CreateArticle(context.Background(), "bret", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.ID != 4 {
		t.Errorf("expected assigned id 4, got %d", article.ID)
	}
	if created.Author != "bret" || created.Text != "hello" {
		t.Errorf("unexpected persisted article: %+v", created)
	}
	if created.Date.IsZero() {
		t.Error("expected date to be set")
	}
	if created.Comments == nil {
		t.Error("expected empty comments slice, not nil")
	}
}

// TestCreateArticle_EmptyText は空本文の検証エラーを検証する。
func TestCreateArticle_EmptyText(t *testing.T) {
	svc := NewService(&mockArticleRepo{}, testLogger())

	_, err := svc.CreateArticle(context.Background(), "bret", "   ")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMissingField {
		t.Errorf("expected MISSING_FIELD, got %v", err)
	}
}

// TestGetArticle_NotFound は存在しない記事のエラーを検証する。
func TestGetArticle_NotFound(t *testing.T) {
	repo := &mockArticleRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Article, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, testLogger())

	_, err := svc.GetArticle(context.Background(), 99)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeArticleNotFound {
		t.Errorf("expected ARTICLE_NOT_FOUND, got %v", err)
	}
}

// TestUpdateText_ReturnsUpdatedArticle は本文更新と更新後記事の返却を検証する。
func TestUpdateText_ReturnsUpdatedArticle(t *testing.T) {
	repo := &mockArticleRepo{
		updateTextFunc: func(ctx context.Context, id int64, text string) (bool, error) {
			if id != 2 || text != "revised" {
				t.Errorf("unexpected update args: %d %q", id, text)
			}
			return true, nil
		},
		findByIDFunc: func(ctx context.Context, id int64) (*model.Article, error) {
			return &model.Article{ID: 2, Author: "jack", Text: "revised"}, nil
		},
	}
	svc := NewService(repo, testLogger())

	article, err := svc.UpdateText(context.Background(), 2, "revised")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.Text != "revised" {
		t.Errorf("expected updated text, got %q", article.Text)
	}
}

// TestUpdateText_NotFound は存在しない記事への更新エラーを検証する。
func TestUpdateText_NotFound(t *testing.T) {
	repo := &mockArticleRepo{
		updateTextFunc: func(ctx context.Context, id int64, text string) (bool, error) {
			return false, nil
		},
	}
	svc := NewService(repo, testLogger())

	_, err := svc.UpdateText(context.Background(), 99, "text")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeArticleNotFound {
		t.Errorf("expected ARTICLE_NOT_FOUND, got %v", err)
	}
}

// TestAddComment_AssignsIDAndAuthor はコメント追記時のID採番と著者設定を検証する。
func TestAddComment_AssignsIDAndAuthor(t *testing.T) {
	var added *model.ArticleComment
	repo := &mockArticleRepo{
		addCommentFunc: func(ctx context.Context, articleID int64, comment *model.ArticleComment) (bool, error) {
			added = comment
			return true, nil
		},
		findByIDFunc: func(ctx context.Context, id int64) (*model.Article, error) {
			return &model.Article{ID: id}, nil
		},
	}
	svc := NewService(repo, testLogger())

	if _, err := svc.AddComment(context.Background(), 1, "zack", "nice read"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added.ID == "" {
		t.Error("expected generated comment id")
	}
	if added.Author != "zack" || added.Text != "nice read" {
		t.Errorf("unexpected comment: %+v", added)
	}
}

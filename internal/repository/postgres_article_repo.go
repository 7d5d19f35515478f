package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/socialfeed/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// List は全記事をID昇順で返す。コメントも併せて取得する。
func (r *PostgresArticleRepo) List(ctx context.Context) ([]*model.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author, text, date FROM articles ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	byID := make(map[int64]*model.Article)
	for rows.Next() {
		a := &model.Article{}
		if err := rows.Scan(&a.ID, &a.Author, &a.Text, &a.Date); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	if err := r.attachComments(ctx, byID); err != nil {
		return nil, err
	}

	return articles, nil
}

// FindByID は指定IDの記事をコメント付きで取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id int64) (*model.Article, error) {
	a := &model.Article{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, author, text, date FROM articles WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Author, &a.Text, &a.Date)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	if err := r.attachComments(ctx, map[int64]*model.Article{a.ID: a}); err != nil {
		return nil, err
	}

	return a, nil
}

// Create は記事を作成し、採番されたIDをarticleに埋める。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO articles (author, text, date)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		article.Author, article.Text, article.Date,
	).Scan(&article.ID)
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}
	return nil
}

// UpdateText は記事本文を上書きする。対象が無い場合はfalseを返す。
func (r *PostgresArticleRepo) UpdateText(ctx context.Context, id int64, text string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET text = $2 WHERE id = $1`,
		id, text,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update article: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddComment は記事にコメントを追記する。対象記事が無い場合はfalseを返す。
func (r *PostgresArticleRepo) AddComment(ctx context.Context, articleID int64, comment *model.ArticleComment) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1)`,
		articleID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}
	if !exists {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO article_comments (id, article_id, author, text, date)
		 VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, articleID, comment.Author, comment.Text, comment.Date,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add comment: %w", err)
	}
	return true, nil
}

// attachComments は記事IDごとのコメントをdate昇順で読み込み、記事に付与する。
func (r *PostgresArticleRepo) attachComments(ctx context.Context, byID map[int64]*model.Article) error {
	if len(byID) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT article_id, id, author, text, date
		 FROM article_comments
		 WHERE article_id = ANY($1)
		 ORDER BY date ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var articleID int64
		c := model.ArticleComment{}
		if err := rows.Scan(&articleID, &c.ID, &c.Author, &c.Text, &c.Date); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		if a, ok := byID[articleID]; ok {
			a.Comments = append(a.Comments, c)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate comments: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)

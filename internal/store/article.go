package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/cbt-marketplace/apiserver/types"
	"github.com/google/uuid"
)

const articleColumns = `id, title, preview, content, image, author_id, views, tags, status, published_at,
	institution_id, psychologist_id, created_at, updated_at`

// ArticleRepository handles persistence for articles.
type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func scanArticle(row rowScanner) (types.Article, error) {
	var article types.Article
	var tagsJSON []byte
	var status string
	if err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Preview,
		&article.Content,
		&article.Image,
		&article.AuthorID,
		&article.Views,
		&tagsJSON,
		&status,
		&article.PublishedAt,
		&article.InstitutionID,
		&article.PsychologistID,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		return types.Article{}, err
	}

	article.Status = types.ArticleStatus(status)
	_ = json.Unmarshal(tagsJSON, &article.Tags)
	return article, nil
}

func (r *ArticleRepository) Get(ctx context.Context, id string) (types.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	article, err := scanArticle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Article{}, ErrNotFound
		}
		return types.Article{}, err
	}
	return article, nil
}

// List returns matching articles, most recently published first. Articles
// that were never published follow, newest first.
func (r *ArticleRepository) List(ctx context.Context, filter types.ArticleFilter, offset, limit int) ([]types.Article, int, error) {
	where := articleWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageClause, args := where.page(offset, limit)
	query := `SELECT ` + articleColumns + ` FROM articles` + where.String() +
		` ORDER BY published_at DESC NULLS LAST, created_at DESC, id` + pageClause
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	articles := make([]types.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

func (r *ArticleRepository) Create(ctx context.Context, article types.Article) (types.Article, error) {
	article.ID = uuid.NewString()
	article.Views = 0
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}
	article.UpdatedAt = article.CreatedAt

	tagsJSON, err := jsonArray(article.Tags)
	if err != nil {
		return types.Article{}, err
	}

	const query = `
		INSERT INTO articles (
			id, title, preview, content, image, author_id, views, tags, status, published_at,
			institution_id, psychologist_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		article.ID,
		article.Title,
		article.Preview,
		article.Content,
		article.Image,
		article.AuthorID,
		article.Views,
		tagsJSON,
		string(article.Status),
		article.PublishedAt,
		article.InstitutionID,
		article.PsychologistID,
		article.CreatedAt,
		article.UpdatedAt,
	); err != nil {
		return types.Article{}, translateError(err)
	}
	return article, nil
}

// Update writes the content, status and attribution columns. The author and
// the views counter are never rewritten.
func (r *ArticleRepository) Update(ctx context.Context, article types.Article) (types.Article, error) {
	article.UpdatedAt = time.Now()

	tagsJSON, err := jsonArray(article.Tags)
	if err != nil {
		return types.Article{}, err
	}

	const query = `
		UPDATE articles
		SET title = $1,
			preview = $2,
			content = $3,
			image = $4,
			tags = $5,
			status = $6,
			published_at = $7,
			institution_id = $8,
			psychologist_id = $9,
			updated_at = $10
		WHERE id = $11
		RETURNING views`
	err = r.db.QueryRowContext(
		ctx,
		query,
		article.Title,
		article.Preview,
		article.Content,
		article.Image,
		tagsJSON,
		string(article.Status),
		article.PublishedAt,
		article.InstitutionID,
		article.PsychologistID,
		article.UpdatedAt,
		article.ID,
	).Scan(&article.Views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Article{}, ErrNotFound
		}
		return types.Article{}, translateError(err)
	}
	return article, nil
}

// IncrementViews bumps the views counter and returns the new value.
func (r *ArticleRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	const query = `UPDATE articles SET views = views + 1 WHERE id = $1 RETURNING views`
	var views int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&views); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return views, nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM articles WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

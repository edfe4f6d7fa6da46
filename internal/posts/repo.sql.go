package posts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sopami/sopami/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPosts returns all posts.
func (r *Repository) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, content, author_id, created_at FROM posts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Post
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.Title, &post.Content, &post.AuthorID, &post.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, post)
	}
	return list, rows.Err()
}

// GetPost fetches a post by ID.
func (r *Repository) GetPost(ctx context.Context, id int64) (Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, title, content, author_id, created_at FROM posts WHERE id = $1`, id)
	var post Post
	if err := row.Scan(&post.ID, &post.Title, &post.Content, &post.AuthorID, &post.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, shared.ErrNotFound
		}
		return Post{}, err
	}
	return post, nil
}

// CreatePost inserts a new post.
func (r *Repository) CreatePost(ctx context.Context, post Post) (Post, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO posts (title, content, author_id) VALUES ($1, $2, $3)
		 RETURNING id, title, content, author_id, created_at`,
		post.Title, post.Content, post.AuthorID)
	var created Post
	if err := row.Scan(&created.ID, &created.Title, &created.Content, &created.AuthorID, &created.CreatedAt); err != nil {
		return Post{}, err
	}
	return created, nil
}

// UpdatePost rewrites a post's title and content.
func (r *Repository) UpdatePost(ctx context.Context, id int64, title, content string) (Post, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE posts SET title = $2, content = $3 WHERE id = $1
		 RETURNING id, title, content, author_id, created_at`,
		id, title, content)
	var post Post
	if err := row.Scan(&post.ID, &post.Title, &post.Content, &post.AuthorID, &post.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, shared.ErrNotFound
		}
		return Post{}, err
	}
	return post, nil
}

// DeletePost removes a post by ID.
func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)

package posts

import (
	"context"
	"fmt"
	"strings"

	"github.com/sopami/sopami/internal/shared"
)

// Service handles post business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListPosts returns all posts.
func (s *Service) ListPosts(ctx context.Context) ([]Post, error) {
	return s.repo.ListPosts(ctx)
}

// GetPost fetches one post.
func (s *Service) GetPost(ctx context.Context, id int64) (Post, error) {
	if id <= 0 {
		return Post{}, fmt.Errorf("%w: post id must be a positive integer", shared.ErrInvalidInput)
	}
	return s.repo.GetPost(ctx, id)
}

// CreatePost stores a new post authored by the given user.
func (s *Service) CreatePost(ctx context.Context, authorID int64, title, content string) (Post, error) {
	title = strings.TrimSpace(title)
	if title == "" || content == "" {
		return Post{}, fmt.Errorf("%w: title and content are required", shared.ErrInvalidInput)
	}
	return s.repo.CreatePost(ctx, Post{Title: title, Content: content, AuthorID: authorID})
}

// UpdatePost rewrites a post's title and content.
func (s *Service) UpdatePost(ctx context.Context, id int64, title, content string) (Post, error) {
	if id <= 0 {
		return Post{}, fmt.Errorf("%w: post id must be a positive integer", shared.ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" || content == "" {
		return Post{}, fmt.Errorf("%w: title and content are required", shared.ErrInvalidInput)
	}
	return s.repo.UpdatePost(ctx, id, title, content)
}

// DeletePost removes a post.
func (s *Service) DeletePost(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: post id must be a positive integer", shared.ErrInvalidInput)
	}
	return s.repo.DeletePost(ctx, id)
}

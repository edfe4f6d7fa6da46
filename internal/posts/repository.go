package posts

import "context"

// RepositoryPort defines data access methods for posts.
type RepositoryPort interface {
	ListPosts(ctx context.Context) ([]Post, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	CreatePost(ctx context.Context, post Post) (Post, error)
	UpdatePost(ctx context.Context, id int64, title, content string) (Post, error)
	DeletePost(ctx context.Context, id int64) error
}

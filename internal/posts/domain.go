package posts

import "time"

// Post represents an authored content entry.
type Post struct {
	ID        int64
	Title     string
	Content   string
	AuthorID  int64
	CreatedAt time.Time
}

package types

import "time"

// Author is the public profile of a user embedded in posts and comments.
type Author struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Surname  string `json:"surname,omitempty"`
}

// Post is a blog entry written by a single author.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the headline shown in listings.
	Title string `json:"title" db:"title"`

	// Body holds the post content.
	Body string `json:"body" db:"body"`

	// AuthorID references the user who wrote the post.
	AuthorID int `json:"author_id" db:"author_id"`

	// Author is populated on reads.
	Author *Author `json:"author,omitempty" db:"-"`

	// CoverKey is the object storage key of the cover image, if any.
	CoverKey string `json:"cover_key,omitempty" db:"cover_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Comment is a reader response attached to a post.
type Comment struct {
	ID       int     `json:"id" db:"id"`
	PostID   int     `json:"post_id" db:"post_id"`
	AuthorID int     `json:"author_id" db:"author_id"`
	Author   *Author `json:"author,omitempty" db:"-"`
	Text     string  `json:"text" db:"text"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPostLength is the maximum number of characters in a post.
const MaxPostLength = 280

var (
	// ErrEmptyPost is returned when post content is missing or blank.
	ErrEmptyPost = NewError(ErrInvalidInput, "post content cannot be empty")
	// ErrPostTooLong is returned when post content exceeds MaxPostLength characters.
	ErrPostTooLong = NewError(ErrInvalidInput, "post content cannot exceed 280 characters")
	// ErrEmptyComment is returned when comment text is missing or blank.
	ErrEmptyComment = NewError(ErrInvalidInput, "comment cannot be empty")
	// ErrPostNotFound is returned when looking up a non-existent post.
	ErrPostNotFound = NewError(ErrNotFound, "post not found")
	// ErrCommentNotFound is returned when a comment does not exist within its post.
	ErrCommentNotFound = NewError(ErrNotFound, "comment not found in this post")
	// ErrNotPostAuthor is returned when the caller may not modify a post.
	ErrNotPostAuthor = NewError(ErrUnauthorized, "not authorized to modify this post")
	// ErrNotCommentAuthor is returned when the caller may not modify a comment.
	ErrNotCommentAuthor = NewError(ErrUnauthorized, "not authorized to modify this comment")
)

// Author is the public view of the user who wrote a post or comment. It is
// nil in responses when the account has since been deleted.
type Author struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
}

// Post is a short message with its embedded comments.
type Post struct {
	ID        ID        `json:"id"`
	AuthorID  ID        `json:"-"`
	Author    *Author   `json:"user"`
	Content   string    `json:"content"`
	Comments  []Comment `json:"comments"` // most recent first
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnerID implements Resource.
func (p Post) OwnerID() ID {
	return p.AuthorID
}

// Comment finds a comment of the post by its ID.
func (p Post) Comment(id ID) (Comment, bool) {
	for _, c := range p.Comments {
		if c.ID == id {
			return c, true
		}
	}

	return Comment{}, false
}

// Comment only has identity within the post that holds it.
type Comment struct {
	ID        ID        `json:"id"`
	AuthorID  ID        `json:"-"`
	Author    *Author   `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnerID implements Resource.
func (c Comment) OwnerID() ID {
	return c.AuthorID
}

// NormalizePostContent enforces the 280 character bound on the content as
// sent, surrounding whitespace included, then trims it and rejects blank posts.
func NormalizePostContent(content string) (string, error) {
	if utf8.RuneCountInString(content) > MaxPostLength {
		return "", ErrPostTooLong
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyPost
	}

	return content, nil
}

// NormalizeCommentText trims text and rejects blank comments.
func NormalizeCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyComment
	}

	return text, nil
}

// PostResponse carries a single post.
type PostResponse struct {
	Message string `json:"message"`
	Post    Post   `json:"post"`
}

// PostsResponse carries a list of posts.
type PostsResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	Posts   []Post `json:"posts"`
}

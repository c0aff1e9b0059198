package community

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"userId" db:"user_id"`
	Username      string    `json:"username" db:"username"`
	AuthorName    string    `json:"authorName" db:"full_name"`
	AuthorAvatar  string    `json:"authorAvatar" db:"avatar_url"`
	Content       string    `json:"content" db:"content"`
	LikeCount     int       `json:"likeCount" db:"like_count"`
	LikedByViewer bool      `json:"likedByViewer" db:"liked_by_viewer"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

type CreatePostRequest struct {
	Content string `json:"content"`
}

type Group struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Location    string    `json:"location" db:"location"`
	MemberCount int       `json:"memberCount" db:"member_count"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

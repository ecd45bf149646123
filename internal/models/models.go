package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Elevated roles may modify resources they do not own.
func (r Role) Elevated() bool {
	return r == RoleModerator || r == RoleAdmin
}

type User struct {
	ID           string    `gorm:"primaryKey;size:36"       json:"id"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         Role      `gorm:"not null;default:user"    json:"role"`
	Bio          *string   `json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken is one row per issued refresh token. The signed token string
// itself is the primary key; logout marks RevokedAt instead of deleting, so
// a revoked token stays distinguishable from one that never existed.
type RefreshToken struct {
	Token     string     `gorm:"primaryKey"          json:"token"`
	UserID    string     `gorm:"index;not null;size:36" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null"            json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
}

type Movie struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"not null"           json:"title"`
	Year        *int      `json:"year"`
	Director    *string   `json:"director"`
	Description *string   `json:"description"`
	CoverURL    *string   `json:"coverUrl"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Rating struct {
	ID      string `gorm:"primaryKey;size:36"                       json:"id"`
	UserID  string `gorm:"not null;size:36;uniqueIndex:idx_user_movie" json:"user_id"`
	MovieID string `gorm:"not null;size:36;uniqueIndex:idx_user_movie" json:"movie_id"`
	Value   int    `gorm:"not null;check:value >= 1 AND value <= 10"   json:"value"`
}

// Comment belongs to either a movie or a post, never both.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;not null;size:36" json:"user_id"`
	MovieID   *string   `gorm:"index;size:36"      json:"movie_id"`
	PostID    *string   `gorm:"index;size:36"      json:"post_id"`
	Body      string    `gorm:"not null"           json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID  string    `gorm:"index;not null;size:36" json:"author_id"`
	Title     string    `gorm:"not null"           json:"title"`
	Body      string    `gorm:"not null"           json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PostLike struct {
	ID     string `gorm:"primaryKey;size:36"                      json:"id"`
	UserID string `gorm:"not null;size:36;uniqueIndex:idx_user_post" json:"user_id"`
	PostID string `gorm:"not null;size:36;uniqueIndex:idx_user_post" json:"post_id"`
}

// PostMovie links a blog post to the movies it discusses.
type PostMovie struct {
	ID      string `gorm:"primaryKey;size:36"                        json:"id"`
	PostID  string `gorm:"not null;size:36;uniqueIndex:idx_post_movie" json:"post_id"`
	MovieID string `gorm:"not null;size:36;uniqueIndex:idx_post_movie" json:"movie_id"`
}

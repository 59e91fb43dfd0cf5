package article

import (
	"time"

	"github.com/lib/pq"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"

	AnonymousAuthor = "匿名"
)

type Article struct {
	ID          string         `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID      string         `json:"user_id" gorm:"type:uuid;index;not null"`
	Title       string         `json:"title" gorm:"not null"`
	Content     string         `json:"content" gorm:"not null"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Author      string         `json:"author"`
	ImageURL    *string        `json:"image_url"`
	LikeCount   int64          `json:"like_count" gorm:"not null;default:0"`
	Visibility  string         `json:"visibility" gorm:"not null;default:public;index"`
	TextOffset  *float64       `json:"text_offset"`
	ImageOffset *float64       `json:"image_offset"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Article) TableName() string {
	return "articles"
}

// VisibleTo is the single visibility rule: public, or owned by the viewer.
// An empty viewerID is an anonymous viewer.
func (a Article) VisibleTo(viewerID string) bool {
	return a.Visibility != VisibilityPrivate || (viewerID != "" && a.UserID == viewerID)
}

type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ArticleID string    `json:"article_id" gorm:"type:uuid;index;not null"`
	UserID    string    `json:"user_id" gorm:"type:uuid;not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	Author string `json:"author" gorm:"-"`
}

func (Comment) TableName() string {
	return "comments"
}

func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

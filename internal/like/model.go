package like

import (
	"time"
)

// ArticleLike is one actor's engagement with one article. Exactly one of UserID
// and DeviceID is set.
type ArticleLike struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ArticleID string    `json:"article_id" gorm:"type:uuid;index;not null"`
	UserID    *string   `json:"user_id,omitempty"`
	DeviceID  *string   `json:"device_id,omitempty"`
	IPAddress *string   `json:"ip_address,omitempty"`
	IsLiked   bool      `json:"is_liked" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ArticleLike) TableName() string {
	return "article_likes"
}

// Actor identifies who is liking. An authenticated user wins over a device id.
type Actor struct {
	UserID   string
	DeviceID string
	IP       string
}

func (a Actor) Valid() bool {
	return a.UserID != "" || a.DeviceID != ""
}

// Key is unique per actor and stable across requests.
func (a Actor) Key() string {
	if a.UserID != "" {
		return "user:" + a.UserID
	}
	return "device:" + a.DeviceID
}

// Matches reports whether rec belongs to this actor.
func (a Actor) Matches(rec ArticleLike) bool {
	if a.UserID != "" {
		return rec.UserID != nil && *rec.UserID == a.UserID
	}
	return a.DeviceID != "" && rec.UserID == nil && rec.DeviceID != nil && *rec.DeviceID == a.DeviceID
}

type Status struct {
	ArticleID string `json:"article_id"`
	LikeCount int64  `json:"like_count"`
	IsLiked   bool   `json:"is_liked"`
}

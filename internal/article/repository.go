package article

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderNewest    = "newest"
	OrderMostLiked = "most_liked"
)

// ListQuery selects articles. The visibility rule for ViewerID is part of the
// query: anonymous viewers get public rows only, a signed-in viewer also gets
// their own private rows.
type ListQuery struct {
	ViewerID string
	OwnerID  string
	Since    time.Time
	Order    string
	Offset   int
	Limit    int // 0 means no limit
}

type Repository interface {
	Create(ctx context.Context, a *Article) error
	Get(ctx context.Context, id string) (*Article, error)
	Update(ctx context.Context, a *Article) error
	Delete(ctx context.Context, id string) error
	SetImageURL(ctx context.Context, id string, url *string) error
	List(ctx context.Context, q ListQuery) ([]Article, int64, error)

	ListComments(ctx context.Context, articleID string) ([]Comment, error)
	CreateComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, id string) (*Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, a *Article) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// Ids and user ids are uuid columns. A value that does not parse cannot match a
// row, and sending it would make Postgres reject the statement.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *GormRepository) Get(ctx context.Context, id string) (*Article, error) {
	if !isUUID(id) {
		return nil, ErrArticleNotFound
	}
	var a Article
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Update writes the editable columns only; like_count belongs to the trigger.
func (r *GormRepository) Update(ctx context.Context, a *Article) error {
	return r.db.WithContext(ctx).Model(&Article{ID: a.ID}).
		Select("title", "content", "tags", "author", "image_url", "visibility", "text_offset", "image_offset", "updated_at").
		Updates(a).Error
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", id).Delete(&Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM article_likes WHERE article_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Article{}).Error
	})
}

func (r *GormRepository) SetImageURL(ctx context.Context, id string, url *string) error {
	return r.db.WithContext(ctx).Model(&Article{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"image_url": url, "updated_at": time.Now()}).Error
}

func (r *GormRepository) List(ctx context.Context, q ListQuery) ([]Article, int64, error) {
	if q.OwnerID != "" && !isUUID(q.OwnerID) {
		return []Article{}, 0, nil
	}
	base := r.db.WithContext(ctx).Model(&Article{})
	// A viewer id that is not a uuid owns nothing, so it sees what anonymous sees.
	if q.ViewerID == "" || !isUUID(q.ViewerID) {
		base = base.Where("visibility = ?", VisibilityPublic)
	} else {
		base = base.Where("(visibility = ? OR user_id = ?)", VisibilityPublic, q.ViewerID)
	}
	if q.OwnerID != "" {
		base = base.Where("user_id = ?", q.OwnerID)
	}
	if !q.Since.IsZero() {
		base = base.Where("created_at >= ?", q.Since)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := base.Session(&gorm.Session{})
	switch q.Order {
	case OrderMostLiked:
		page = page.Order("like_count DESC").Order("created_at DESC")
	default:
		page = page.Order("created_at DESC")
	}
	if q.Offset > 0 {
		page = page.Offset(q.Offset)
	}
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}

	var articles []Article
	if err := page.Find(&articles).Error; err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

func (r *GormRepository) ListComments(ctx context.Context, articleID string) ([]Comment, error) {
	if !isUUID(articleID) {
		return []Comment{}, nil
	}
	var comments []Comment
	err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (r *GormRepository) CreateComment(ctx context.Context, c *Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormRepository) GetComment(ctx context.Context, id string) (*Comment, error) {
	if !isUUID(id) {
		return nil, ErrCommentNotFound
	}
	var c Comment
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) DeleteComment(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Comment{}).Error
}

package like

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrConflict means a record for the same (article, actor) already exists.
var ErrConflict = errors.New("like: record already exists")

// Repository is the record store behind the toggle. LikeCount reads the
// aggregate the store maintains itself; nothing here writes it.
type Repository interface {
	ArticleExists(ctx context.Context, articleID string) (bool, error)
	Find(ctx context.Context, articleID string, actor Actor) (*ArticleLike, error)
	Create(ctx context.Context, rec *ArticleLike) error
	Delete(ctx context.Context, id string) error
	MarkLiked(ctx context.Context, id string) error
	LikeCount(ctx context.Context, articleID string) (int64, error)
	LikeCounts(ctx context.Context, articleIDs []string) (map[string]int64, error)
	LikedBy(ctx context.Context, articleIDs []string, actor Actor) (map[string]bool, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// articles.id is a uuid column; anything else cannot match a row and would make
// Postgres reject the whole statement.
func isArticleID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func articleIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isArticleID(id) {
			out = append(out, id)
		}
	}
	return out
}

func (r *GormRepository) ArticleExists(ctx context.Context, articleID string) (bool, error) {
	if !isArticleID(articleID) {
		return false, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Table("articles").Where("id = ?", articleID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepository) actorScope(actor Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor.UserID != "" {
			return db.Where("user_id = ?", actor.UserID)
		}
		return db.Where("user_id IS NULL AND device_id = ?", actor.DeviceID)
	}
}

// Find returns nil, nil when the actor never touched the article.
func (r *GormRepository) Find(ctx context.Context, articleID string, actor Actor) (*ArticleLike, error) {
	if !isArticleID(articleID) {
		return nil, nil
	}
	var rec ArticleLike
	err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Scopes(r.actorScope(actor)).
		Order("created_at ASC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepository) Create(ctx context.Context, rec *ArticleLike) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&ArticleLike{}).Error
}

func (r *GormRepository) MarkLiked(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&ArticleLike{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_liked": true, "updated_at": time.Now()}).Error
}

func (r *GormRepository) LikeCount(ctx context.Context, articleID string) (int64, error) {
	if !isArticleID(articleID) {
		return 0, nil
	}
	var counts []int64
	if err := r.db.WithContext(ctx).Table("articles").Where("id = ?", articleID).Pluck("like_count", &counts).Error; err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}

func (r *GormRepository) LikeCounts(ctx context.Context, ids []string) (map[string]int64, error) {
	ids = articleIDs(ids)
	if len(ids) == 0 {
		return map[string]int64{}, nil
	}
	var rows []struct {
		ID        string
		LikeCount int64
	}
	err := r.db.WithContext(ctx).Table("articles").
		Select("id, like_count").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ID] = row.LikeCount
	}
	return out, nil
}

func (r *GormRepository) LikedBy(ctx context.Context, ids []string, actor Actor) (map[string]bool, error) {
	ids = articleIDs(ids)
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	var liked []string
	err := r.db.WithContext(ctx).Model(&ArticleLike{}).
		Where("article_id IN ? AND is_liked = ?", ids, true).
		Scopes(r.actorScope(actor)).
		Pluck("article_id", &liked).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(liked))
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

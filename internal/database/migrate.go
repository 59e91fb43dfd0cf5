package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/owenshapw/poemVerse/internal/article"
	"github.com/owenshapw/poemVerse/internal/like"
)

// One like per actor per article; the service relies on these to turn a lost
// race into a conflict instead of a second row.
var likeIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS article_likes_user_uniq
		ON article_likes (article_id, user_id) WHERE user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS article_likes_device_uniq
		ON article_likes (article_id, device_id) WHERE user_id IS NULL AND device_id IS NOT NULL`,
}

// articles.like_count is owned by this trigger. Application code only reads it.
const likeCountTrigger = `
CREATE OR REPLACE FUNCTION refresh_article_like_count() RETURNS trigger AS $$
DECLARE
	target uuid;
BEGIN
	IF TG_OP = 'DELETE' THEN
		target := OLD.article_id;
	ELSE
		target := NEW.article_id;
	END IF;

	UPDATE articles
	   SET like_count = (SELECT COUNT(*) FROM article_likes WHERE article_id = target AND is_liked)
	 WHERE id = target;

	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS article_likes_count ON article_likes;

CREATE TRIGGER article_likes_count
	AFTER INSERT OR UPDATE OR DELETE ON article_likes
	FOR EACH ROW EXECUTE FUNCTION refresh_article_like_count();
`

// Migrate creates the tables the backend owns. The users table belongs to
// Supabase auth and is left alone.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&article.Article{}, &article.Comment{}, &like.ArticleLike{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range likeIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create like index: %w", err)
		}
	}
	if err := db.Exec(likeCountTrigger).Error; err != nil {
		return fmt.Errorf("create like_count trigger: %w", err)
	}
	return nil
}

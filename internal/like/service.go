package like

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/owenshapw/poemVerse/internal/lock"
	"github.com/owenshapw/poemVerse/internal/metrics"
)

// Errors returned by Service. Handlers map them to 404 and 400.
var (
	// ErrArticleNotFound means the target article does not exist.
	ErrArticleNotFound = errors.New("like: article not found")
	// ErrMissingActor means neither a user id nor a device id was supplied.
	ErrMissingActor = errors.New("like: user or device id required")
)

// Service toggles likes under a per-(article, actor) lock and answers status
// and count queries.
type Service struct {
	repo    Repository
	locker  lock.Locker
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(repo Repository, locker lock.Locker, log *zap.Logger, m *metrics.Metrics) *Service {
	if locker == nil {
		locker = lock.NewMemory()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, locker: locker, log: log, metrics: m}
}

// Toggle flips the actor's like on the article.
//
//	no record           -> insert is_liked=true
//	is_liked=true       -> delete the record
//	is_liked=false      -> set is_liked=true
//
// The whole read-then-write runs under a lock on (article, actor).
func (s *Service) Toggle(ctx context.Context, articleID string, actor Actor) (Status, error) {
	if !actor.Valid() {
		return Status{}, ErrMissingActor
	}
	if err := s.ensureArticle(ctx, articleID); err != nil {
		return Status{}, err
	}

	unlock, err := s.locker.Lock(ctx, "like:"+articleID+":"+actor.Key())
	if err != nil {
		return Status{}, fmt.Errorf("acquire like lock: %w", err)
	}
	defer unlock()

	rec, err := s.repo.Find(ctx, articleID, actor)
	if err != nil {
		return Status{}, fmt.Errorf("find like: %w", err)
	}

	var liked bool
	switch {
	case rec == nil:
		err = s.repo.Create(ctx, newRecord(articleID, actor))
		if errors.Is(err, ErrConflict) {
			// Another instance inserted first; the pair is liked either way.
			s.log.Warn("concurrent like insert", zap.String("articleID", articleID), zap.String("actor", actor.Key()))
			err = nil
		}
		liked = true
	case rec.IsLiked:
		err = s.repo.Delete(ctx, rec.ID)
		liked = false
	default:
		err = s.repo.MarkLiked(ctx, rec.ID)
		liked = true
	}
	if err != nil {
		return Status{}, fmt.Errorf("toggle like: %w", err)
	}

	count, err := s.repo.LikeCount(ctx, articleID)
	if err != nil {
		return Status{}, fmt.Errorf("read like count: %w", err)
	}

	s.metrics.Toggle(liked)
	return Status{ArticleID: articleID, LikeCount: count, IsLiked: liked}, nil
}

// Status is the read-only snapshot. An anonymous actor is never liked.
func (s *Service) Status(ctx context.Context, articleID string, actor Actor) (Status, error) {
	if err := s.ensureArticle(ctx, articleID); err != nil {
		return Status{}, err
	}

	count, err := s.repo.LikeCount(ctx, articleID)
	if err != nil {
		return Status{}, fmt.Errorf("read like count: %w", err)
	}

	st := Status{ArticleID: articleID, LikeCount: count}
	if actor.Valid() {
		rec, err := s.repo.Find(ctx, articleID, actor)
		if err != nil {
			return Status{}, fmt.Errorf("find like: %w", err)
		}
		st.IsLiked = rec != nil && rec.IsLiked
	}
	return st, nil
}

// Batch returns a snapshot for every requested id, unknown ids included.
func (s *Service) Batch(ctx context.Context, articleIDs []string, actor Actor) (map[string]Status, error) {
	out := make(map[string]Status, len(articleIDs))
	ids := make([]string, 0, len(articleIDs))
	for _, id := range articleIDs {
		if _, seen := out[id]; seen || id == "" {
			continue
		}
		out[id] = Status{ArticleID: id}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return out, nil
	}

	counts, err := s.repo.LikeCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("read like counts: %w", err)
	}

	liked := map[string]bool{}
	if actor.Valid() {
		if liked, err = s.repo.LikedBy(ctx, ids, actor); err != nil {
			return nil, fmt.Errorf("read liked articles: %w", err)
		}
	}

	for _, id := range ids {
		out[id] = Status{ArticleID: id, LikeCount: counts[id], IsLiked: liked[id]}
	}
	return out, nil
}

func (s *Service) ensureArticle(ctx context.Context, articleID string) error {
	if articleID == "" {
		return ErrArticleNotFound
	}
	ok, err := s.repo.ArticleExists(ctx, articleID)
	if err != nil {
		return fmt.Errorf("check article: %w", err)
	}
	if !ok {
		return ErrArticleNotFound
	}
	return nil
}

func newRecord(articleID string, actor Actor) *ArticleLike {
	rec := &ArticleLike{
		ID:        uuid.New().String(),
		ArticleID: articleID,
		IsLiked:   true,
	}
	if actor.UserID != "" {
		rec.UserID = &actor.UserID
	} else {
		rec.DeviceID = &actor.DeviceID
	}
	if actor.IP != "" {
		rec.IPAddress = &actor.IP
	}
	return rec
}

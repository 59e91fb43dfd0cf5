// Package memstore is an in-process record store for local development and
// tests. It mimics the two things Postgres does for us: the like_count trigger
// and the partial unique indexes on article_likes.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/owenshapw/poemVerse/internal/article"
	"github.com/owenshapw/poemVerse/internal/like"
	"github.com/owenshapw/poemVerse/internal/user"
)

type Store struct {
	mu       sync.RWMutex
	articles map[string]article.Article
	likes    map[string]like.ArticleLike
	comments map[string]article.Comment
	users    map[string]user.User
}

func New() *Store {
	return &Store{
		articles: make(map[string]article.Article),
		likes:    make(map[string]like.ArticleLike),
		comments: make(map[string]article.Comment),
		users:    make(map[string]user.User),
	}
}

func (s *Store) Articles() *Articles { return &Articles{s} }
func (s *Store) Likes() *Likes       { return &Likes{s} }
func (s *Store) Users() *Users       { return &Users{s} }

// PutUser seeds a profile row.
func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// recount is the trigger. Callers hold the write lock.
func (s *Store) recount(articleID string) {
	a, ok := s.articles[articleID]
	if !ok {
		return
	}
	var n int64
	for _, l := range s.likes {
		if l.ArticleID == articleID && l.IsLiked {
			n++
		}
	}
	a.LikeCount = n
	s.articles[articleID] = a
}

type Articles struct{ s *Store }

func (r *Articles) Create(_ context.Context, a *article.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := *a
	row.Tags = append([]string(nil), a.Tags...)
	r.s.articles[a.ID] = row
	return nil
}

func (r *Articles) Get(_ context.Context, id string) (*article.Article, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.articles[id]
	if !ok {
		return nil, article.ErrArticleNotFound
	}
	return &a, nil
}

func (r *Articles) Update(_ context.Context, a *article.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.articles[a.ID]
	if !ok {
		return article.ErrArticleNotFound
	}
	row := *a
	row.Tags = append([]string(nil), a.Tags...)
	row.LikeCount = cur.LikeCount
	row.CreatedAt = cur.CreatedAt
	r.s.articles[a.ID] = row
	return nil
}

func (r *Articles) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for cid, c := range r.s.comments {
		if c.ArticleID == id {
			delete(r.s.comments, cid)
		}
	}
	for lid, l := range r.s.likes {
		if l.ArticleID == id {
			delete(r.s.likes, lid)
		}
	}
	delete(r.s.articles, id)
	return nil
}

func (r *Articles) SetImageURL(_ context.Context, id string, url *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.articles[id]
	if !ok {
		return article.ErrArticleNotFound
	}
	a.ImageURL = url
	r.s.articles[id] = a
	return nil
}

// List applies the same predicate as the SQL query.
func (r *Articles) List(_ context.Context, q article.ListQuery) ([]article.Article, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []article.Article
	for _, a := range r.s.articles {
		if !a.VisibleTo(q.ViewerID) {
			continue
		}
		if q.OwnerID != "" && a.UserID != q.OwnerID {
			continue
		}
		if !q.Since.IsZero() && a.CreatedAt.Before(q.Since) {
			continue
		}
		rows = append(rows, a)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if q.Order == article.OrderMostLiked && rows[i].LikeCount != rows[j].LikeCount {
			return rows[i].LikeCount > rows[j].LikeCount
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})

	total := int64(len(rows))
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			return []article.Article{}, total, nil
		}
		rows = rows[q.Offset:]
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, total, nil
}

func (r *Articles) ListComments(_ context.Context, articleID string) ([]article.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []article.Comment
	for _, c := range r.s.comments {
		if c.ArticleID == articleID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Articles) CreateComment(_ context.Context, c *article.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.articles[c.ArticleID]; !ok {
		return article.ErrArticleNotFound
	}
	r.s.comments[c.ID] = *c
	return nil
}

func (r *Articles) GetComment(_ context.Context, id string) (*article.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, article.ErrCommentNotFound
	}
	return &c, nil
}

func (r *Articles) DeleteComment(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.comments, id)
	return nil
}

type Likes struct{ s *Store }

func (r *Likes) ArticleExists(_ context.Context, articleID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.articles[articleID]
	return ok, nil
}

func (r *Likes) Find(_ context.Context, articleID string, actor like.Actor) (*like.ArticleLike, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.find(articleID, actor)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *Likes) find(articleID string, actor like.Actor) (like.ArticleLike, bool) {
	for _, l := range r.s.likes {
		if l.ArticleID == articleID && actor.Matches(l) {
			return l, true
		}
	}
	return like.ArticleLike{}, false
}

func (r *Likes) Create(_ context.Context, rec *like.ArticleLike) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	actor := like.Actor{}
	if rec.UserID != nil {
		actor.UserID = *rec.UserID
	} else if rec.DeviceID != nil {
		actor.DeviceID = *rec.DeviceID
	}
	if _, dup := r.find(rec.ArticleID, actor); dup {
		return like.ErrConflict
	}

	r.s.likes[rec.ID] = *rec
	r.s.recount(rec.ArticleID)
	return nil
}

func (r *Likes) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.likes[id]
	if !ok {
		return nil
	}
	delete(r.s.likes, id)
	r.s.recount(rec.ArticleID)
	return nil
}

func (r *Likes) MarkLiked(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.likes[id]
	if !ok {
		return nil
	}
	rec.IsLiked = true
	r.s.likes[id] = rec
	r.s.recount(rec.ArticleID)
	return nil
}

func (r *Likes) LikeCount(_ context.Context, articleID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.articles[articleID].LikeCount, nil
}

func (r *Likes) LikeCounts(_ context.Context, articleIDs []string) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]int64, len(articleIDs))
	for _, id := range articleIDs {
		if a, ok := r.s.articles[id]; ok {
			out[id] = a.LikeCount
		}
	}
	return out, nil
}

func (r *Likes) LikedBy(_ context.Context, articleIDs []string, actor like.Actor) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]bool)
	for _, id := range articleIDs {
		if rec, ok := r.find(id, actor); ok && rec.IsLiked {
			out[id] = true
		}
	}
	return out, nil
}

// Count returns how many records exist for the pair, liked or not.
func (r *Likes) Count(articleID string, actor like.Actor) int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, l := range r.s.likes {
		if l.ArticleID == articleID && actor.Matches(l) {
			n++
		}
	}
	return n
}

// Put stores a record as-is, for seeding legacy rows.
func (r *Likes) Put(rec like.ArticleLike) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.likes[rec.ID] = rec
	r.s.recount(rec.ArticleID)
}

type Users struct{ s *Store }

func (r *Users) FindByID(_ context.Context, id string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *Users) FindByIDs(_ context.Context, ids []string) (map[string]user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]user.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// Package feed builds the visibility-aware article listings.
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/owenshapw/poemVerse/internal/article"
	"github.com/owenshapw/poemVerse/internal/imageurl"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	DefaultLimit   = 10
	WeekListSize   = 10
)

// Lister is the slice of the article store the feed reads from.
type Lister interface {
	List(ctx context.Context, q article.ListQuery) ([]article.Article, int64, error)
}

type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

type Page struct {
	Articles   []article.Article `json:"articles"`
	Pagination Pagination        `json:"pagination"`
}

type Home struct {
	TopCreators []article.Article `json:"top_creators"`
	TopMonth    *article.Article  `json:"top_month"`
	TopWeekList []article.Article `json:"top_week_list"`
}

type Assembler struct {
	store      Lister
	normalizer imageurl.Normalizer
	now        func() time.Time
}

func NewAssembler(store Lister, normalizer imageurl.Normalizer) *Assembler {
	return &Assembler{store: store, normalizer: normalizer, now: time.Now}
}

// Page returns one page of what viewerID may see. Anonymous viewers are
// filtered to public rows by the store; for a signed-in viewer the store gets
// the "public or mine" predicate and every row is checked again here.
func (a *Assembler) Page(ctx context.Context, viewerID, ownerID string, page, perPage int) (Page, error) {
	page, perPage = clampPage(page, perPage)

	rows, total, err := a.store.List(ctx, article.ListQuery{
		ViewerID: viewerID,
		OwnerID:  ownerID,
		Offset:   (page - 1) * perPage,
		Limit:    perPage,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list articles: %w", err)
	}

	return Page{
		Articles: a.visible(rows, viewerID),
		Pagination: Pagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
			Pages:   int((total + int64(perPage) - 1) / int64(perPage)),
		},
	}, nil
}

// TopCreators groups the visible set by author, most prolific first, and
// returns each selected author's newest article.
func (a *Assembler) TopCreators(ctx context.Context, viewerID string, limit int) ([]article.Article, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, _, err := a.store.List(ctx, article.ListQuery{ViewerID: viewerID})
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	// Group only what the viewer may see, or hidden rows would skew the ranking.
	return GroupByAuthor(a.visible(rows, viewerID), limit), nil
}

// Home is the landing screen: top creators, the month's most liked article and
// the week's most liked list.
func (a *Assembler) Home(ctx context.Context, viewerID string, limit int) (Home, error) {
	creators, err := a.TopCreators(ctx, viewerID, limit)
	if err != nil {
		return Home{}, err
	}

	now := a.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	month, _, err := a.store.List(ctx, article.ListQuery{
		ViewerID: viewerID,
		Since:    monthStart,
		Order:    article.OrderMostLiked,
		Limit:    1,
	})
	if err != nil {
		return Home{}, fmt.Errorf("list month: %w", err)
	}

	week, _, err := a.store.List(ctx, article.ListQuery{
		ViewerID: viewerID,
		Since:    now.AddDate(0, 0, -7),
		Order:    article.OrderMostLiked,
		Limit:    WeekListSize,
	})
	if err != nil {
		return Home{}, fmt.Errorf("list week: %w", err)
	}

	home := Home{TopCreators: creators, TopWeekList: a.visible(week, viewerID)}
	if m := a.visible(month, viewerID); len(m) > 0 {
		home.TopMonth = &m[0]
	}
	return home, nil
}

// visible drops anything viewerID may not see and normalizes cover URLs.
func (a *Assembler) visible(rows []article.Article, viewerID string) []article.Article {
	out := make([]article.Article, 0, len(rows))
	for _, r := range rows {
		if !r.VisibleTo(viewerID) {
			continue
		}
		r.ImageURL = a.normalizer.NormalizePtr(r.ImageURL)
		out = append(out, r)
	}
	return out
}

// GroupByAuthor orders authors by article count (ties: newest article, then
// user id) and returns the newest article of each of the first limit authors.
func GroupByAuthor(rows []article.Article, limit int) []article.Article {
	type group struct {
		newest article.Article
		count  int
	}
	groups := map[string]*group{}
	for _, r := range rows {
		g, ok := groups[r.UserID]
		if !ok {
			groups[r.UserID] = &group{newest: r, count: 1}
			continue
		}
		g.count++
		if r.CreatedAt.After(g.newest.CreatedAt) {
			g.newest = r
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		gi, gj := ordered[i], ordered[j]
		if gi.count != gj.count {
			return gi.count > gj.count
		}
		if !gi.newest.CreatedAt.Equal(gj.newest.CreatedAt) {
			return gi.newest.CreatedAt.After(gj.newest.CreatedAt)
		}
		return gi.newest.UserID < gj.newest.UserID
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	out := make([]article.Article, 0, len(ordered))
	for _, g := range ordered {
		out = append(out, g.newest)
	}
	return out
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

package like_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenshapw/poemVerse/internal/article"
	"github.com/owenshapw/poemVerse/internal/like"
	"github.com/owenshapw/poemVerse/internal/lock"
	"github.com/owenshapw/poemVerse/internal/metrics"
	"github.com/owenshapw/poemVerse/internal/store/memstore"
)

func seed(t *testing.T, store *memstore.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.Articles().Create(context.Background(), &article.Article{
			ID:         id,
			UserID:     "owner",
			Title:      "静夜思",
			Content:    "床前明月光",
			Visibility: article.VisibilityPublic,
			CreatedAt:  time.Now(),
		}))
	}
}

func newService(store *memstore.Store, m *metrics.Metrics) *like.Service {
	return like.NewService(store.Likes(), lock.NewMemory(), nil, m)
}

func TestToggleIsIdempotentOverTwoCalls(t *testing.T) {
	actors := []struct {
		name  string
		actor like.Actor
	}{
		{name: "Authenticated user", actor: like.Actor{UserID: "u1"}},
		{name: "Anonymous device", actor: like.Actor{DeviceID: "dev-1", IP: "10.0.0.1"}},
	}

	for _, tt := range actors {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			seed(t, store, "a1")
			svc := newService(store, nil)
			ctx := context.Background()

			// Someone else already liked it.
			_, err := svc.Toggle(ctx, "a1", like.Actor{UserID: "other"})
			require.NoError(t, err)

			before, err := svc.Status(ctx, "a1", tt.actor)
			require.NoError(t, err)
			assert.Equal(t, int64(1), before.LikeCount)
			assert.False(t, before.IsLiked)

			first, err := svc.Toggle(ctx, "a1", tt.actor)
			require.NoError(t, err)
			assert.True(t, first.IsLiked)
			assert.Equal(t, int64(2), first.LikeCount)

			second, err := svc.Toggle(ctx, "a1", tt.actor)
			require.NoError(t, err)
			assert.Equal(t, before.IsLiked, second.IsLiked)
			assert.Equal(t, before.LikeCount, second.LikeCount)
			assert.Equal(t, 0, store.Likes().Count("a1", tt.actor))
		})
	}
}

func TestToggleNeverDuplicatesRecords(t *testing.T) {
	store := memstore.New()
	seed(t, store, "a1")
	svc := newService(store, nil)
	actor := like.Actor{DeviceID: "dev-1"}

	for i := 0; i < 7; i++ {
		_, err := svc.Toggle(context.Background(), "a1", actor)
		require.NoError(t, err)
		assert.LessOrEqual(t, store.Likes().Count("a1", actor), 1)
	}

	st, err := svc.Status(context.Background(), "a1", actor)
	require.NoError(t, err)
	assert.True(t, st.IsLiked)
	assert.Equal(t, int64(1), st.LikeCount)
}

func TestConcurrentTogglesKeepOneRecord(t *testing.T) {
	store := memstore.New()
	seed(t, store, "a1")
	svc := newService(store, nil)
	actor := like.Actor{UserID: "u1"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Toggle(context.Background(), "a1", actor)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// An even number of toggles ends unliked.
	assert.Equal(t, 0, store.Likes().Count("a1", actor))
	st, err := svc.Status(context.Background(), "a1", actor)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.LikeCount)
}

func TestToggleFlipsLegacyUnlikedRecord(t *testing.T) {
	store := memstore.New()
	seed(t, store, "a1")
	device := "dev-legacy"
	store.Likes().Put(like.ArticleLike{ID: "l-old", ArticleID: "a1", DeviceID: &device, IsLiked: false})
	svc := newService(store, nil)

	st, err := svc.Toggle(context.Background(), "a1", like.Actor{DeviceID: device})
	require.NoError(t, err)
	assert.True(t, st.IsLiked)
	assert.Equal(t, int64(1), st.LikeCount)
	assert.Equal(t, 1, store.Likes().Count("a1", like.Actor{DeviceID: device}))
}

func TestToggleRejections(t *testing.T) {
	store := memstore.New()
	seed(t, store, "a1")
	svc := newService(store, nil)

	_, err := svc.Toggle(context.Background(), "a1", like.Actor{IP: "10.0.0.1"})
	assert.ErrorIs(t, err, like.ErrMissingActor)

	_, err = svc.Toggle(context.Background(), "missing", like.Actor{UserID: "u1"})
	assert.ErrorIs(t, err, like.ErrArticleNotFound)
	assert.Equal(t, 0, store.Likes().Count("missing", like.Actor{UserID: "u1"}))
}

func TestUserAndDeviceAreSeparateActors(t *testing.T) {
	store := memstore.New()
	seed(t, store, "a1")
	svc := newService(store, nil)

	_, err := svc.Toggle(context.Background(), "a1", like.Actor{UserID: "u1", DeviceID: "dev-1"})
	require.NoError(t, err)
	st, err := svc.Toggle(context.Background(), "a1", like.Actor{DeviceID: "dev-1"})
	require.NoError(t, err)

	assert.True(t, st.IsLiked)
	assert.Equal(t, int64(2), st.LikeCount)
}

func TestBatchReturnsDefaultsForEveryID(t *testing.T) {
	store := memstore.New()
	seed(t, store, "A", "B", "C")
	svc := newService(store, nil)

	got, err := svc.Batch(context.Background(), []string{"A", "B", "C"}, like.Actor{})
	require.NoError(t, err)
	assert.Equal(t, map[string]like.Status{
		"A": {ArticleID: "A"},
		"B": {ArticleID: "B"},
		"C": {ArticleID: "C"},
	}, got)
}

func TestBatchMixesCountsAndUnknownIDs(t *testing.T) {
	store := memstore.New()
	seed(t, store, "A", "B")
	svc := newService(store, nil)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, "A", like.Actor{DeviceID: "d1"})
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, "A", like.Actor{DeviceID: "d2"})
	require.NoError(t, err)

	got, err := svc.Batch(ctx, []string{"A", "B", "ghost", "A"}, like.Actor{DeviceID: "d1"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, like.Status{ArticleID: "A", LikeCount: 2, IsLiked: true}, got["A"])
	assert.Equal(t, like.Status{ArticleID: "B"}, got["B"])
	assert.Equal(t, like.Status{ArticleID: "ghost"}, got["ghost"])
}

func TestToggleRecordsMetrics(t *testing.T) {
	store := memstore.New()
	seed(t, store, "a1")
	m := metrics.New(nil)
	svc := newService(store, m)

	for i := 0; i < 3; i++ {
		_, err := svc.Toggle(context.Background(), "a1", like.Actor{UserID: "u1"})
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LikeToggles.WithLabelValues("liked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LikeToggles.WithLabelValues("unliked")))
}

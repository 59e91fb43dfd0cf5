package article

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepo(t *testing.T) (*GormRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:                 mockDB,
		DriverName:           "postgres",
		PreferSimpleProtocol: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return NewGormRepository(db), mock
}

const (
	articleID = "3b8f1c2d-4e5a-4b6c-8d7e-9f0a1b2c3d44"
	aliceID   = "c1d2e3f4-a5b6-4c7d-8e9f-0a1b2c3d4e55"
)

var articleColumns = []string{"id", "user_id", "title", "content", "visibility", "like_count", "created_at"}

func TestListPushesVisibilityDown(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		query     ListQuery
		countSQL  string
		countArgs []driver.Value
	}{
		{
			name:      "Anonymous viewer",
			query:     ListQuery{Limit: 20},
			countSQL:  `SELECT count\(\*\) FROM "articles" WHERE visibility = \$1`,
			countArgs: []driver.Value{VisibilityPublic},
		},
		{
			name:      "Signed-in viewer",
			query:     ListQuery{ViewerID: aliceID, Limit: 20},
			countSQL:  `SELECT count\(\*\) FROM "articles" WHERE .*visibility = \$1 OR user_id = \$2`,
			countArgs: []driver.Value{VisibilityPublic, aliceID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(tt.countSQL).
				WithArgs(tt.countArgs...).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
			mock.ExpectQuery(`SELECT \* FROM "articles" WHERE .*ORDER BY created_at DESC`).
				WillReturnRows(sqlmock.NewRows(articleColumns).
					AddRow(articleID, aliceID, "静夜思", "床前明月光", VisibilityPublic, 3, now))

			rows, total, err := repo.List(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
			require.Len(t, rows, 1)
			assert.Equal(t, articleID, rows[0].ID)
			assert.Equal(t, int64(3), rows[0].LikeCount)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListMostLikedOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "articles"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY like_count DESC,created_at DESC`).
		WillReturnRows(sqlmock.NewRows(articleColumns))

	rows, total, err := repo.List(context.Background(), ListQuery{
		Since: time.Now().AddDate(0, 0, -7),
		Order: OrderMostLiked,
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "articles" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(articleColumns))

	_, err := repo.Get(context.Background(), articleID)
	assert.ErrorIs(t, err, ErrArticleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCommentNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "comments" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "article_id", "user_id", "content", "created_at"}))

	_, err := repo.GetComment(context.Background(), articleID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNonUUIDIDsAreNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "A")
	assert.ErrorIs(t, err, ErrArticleNotFound)

	_, err = repo.GetComment(ctx, "nope")
	assert.ErrorIs(t, err, ErrCommentNotFound)

	comments, err := repo.ListComments(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, comments)

	rows, total, err := repo.List(ctx, ListQuery{OwnerID: "someone"})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTreatsNonUUIDViewerAsAnonymous(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "articles" WHERE visibility = \$1`).
		WithArgs(VisibilityPublic).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "articles" WHERE visibility = \$1`).
		WillReturnRows(sqlmock.NewRows(articleColumns))

	_, _, err := repo.List(context.Background(), ListQuery{ViewerID: "device-ish", Limit: 10})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

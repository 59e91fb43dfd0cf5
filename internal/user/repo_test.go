package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepo(t *testing.T) (*GormRepository, sqlmock.Sqlmock) {
	// Setup mock database
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	// Configure GORM with mock
	dialector := postgres.New(postgres.Config{
		Conn:                 mockDB,
		DriverName:           "postgres",
		PreferSimpleProtocol: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	assert.NoError(t, err)

	return NewGormRepository(db), mock
}

const (
	userOne   = "0d9c8b7a-6f5e-4d3c-9b2a-1f0e9d8c7b61"
	userTwo   = "1e0d9c8b-7a6f-4e4d-8c3b-2a1f0e9d8c72"
	userThree = "2f1e0d9c-8b7a-4f5e-9d4c-3b2a1f0e9d83"
)

func TestFindByID(t *testing.T) {
	tests := []struct {
		name          string
		userID        string
		mockRows      *sqlmock.Rows
		expectedName  string
		expectedError error
	}{
		{
			name:         "User with username",
			userID:       userOne,
			mockRows:     sqlmock.NewRows([]string{"id", "created_at", "username", "email"}).AddRow(userOne, time.Now(), "libai", "li@example.com"),
			expectedName: "libai",
		},
		{
			name:         "User without username",
			userID:       userTwo,
			mockRows:     sqlmock.NewRows([]string{"id", "created_at", "username", "email"}).AddRow(userTwo, time.Now(), "", "du@example.com"),
			expectedName: "du@example.com",
		},
		{
			name:          "Unknown user",
			userID:        userThree,
			mockRows:      sqlmock.NewRows([]string{"id"}),
			expectedError: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(`SELECT`).WillReturnRows(tt.mockRows)

			u, err := repo.FindByID(context.Background(), tt.userID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, u)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedName, u.DisplayName())
		})
	}
}

func TestFindByIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id IN`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email"}).
			AddRow(userOne, "libai", "").
			AddRow(userTwo, "", "du@example.com"))

	users, err := repo.FindByIDs(context.Background(), []string{userOne, userTwo, userThree, "not-a-uuid"})
	assert.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "libai", users[userOne].DisplayName())
	assert.Equal(t, "du@example.com", users[userTwo].DisplayName())
}

func TestFindByIDsEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)

	users, err := repo.FindByIDs(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNonUUIDUserIDsSkipTheQuery(t *testing.T) {
	repo, mock := newMockRepo(t)

	u, err := repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, u)

	users, err := repo.FindByIDs(context.Background(), []string{"ghost", ""})
	assert.NoError(t, err)
	assert.Empty(t, users)

	assert.NoError(t, mock.ExpectationsWereMet())
}

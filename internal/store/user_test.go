package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/historyguide/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "first_name", "last_name", "email", "password_hash", "created_at", "last_login_at"}

func newRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewUserRepository(db), mock
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	q := `(?s)^\s*SELECT\s+id,\s*first_name,\s*last_name,\s*email,\s*password_hash,\s*created_at,\s*last_login_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "Ada", "Lovelace", "ada@example.com", "hash", created, created))

	got, err := repo.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, 7, got.ID)
	require.Equal(t, "Ada", got.FirstName)
	require.Equal(t, "hash", got.PasswordHash)
	require.True(t, got.CreatedAt.Equal(created))
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+email`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).
		WithArgs(3).
		WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), 3)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	q := `(?s)^\s*INSERT\s+INTO\s+users\s*\(first_name,\s*last_name,\s*email,\s*password_hash,\s*created_at,\s*last_login_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id\s*$`
	mock.ExpectQuery(q).
		WithArgs("Ada", "Lovelace", "ada@example.com", "hash", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	got, err := repo.Create(context.Background(), types.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		LastLoginAt:  now,
	})
	require.NoError(t, err)
	require.Equal(t, 42, got.ID)
	require.Equal(t, "ada@example.com", got.Email)
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), types.User{Email: "ada@example.com"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateLastLogin(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+last_login_at\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`).
		WithArgs(at, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateLastLogin(context.Background(), 9, at))
}

func TestUpdateLastLogin_Missing(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE\s+users`).
		WithArgs(at, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.UpdateLastLogin(context.Background(), 99, at), ErrNotFound)
}

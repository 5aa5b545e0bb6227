package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/historyguide/apiserver/types"
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, first_name, last_name, email, password_hash, created_at, last_login_at
		FROM users
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, first_name, last_name, email, password_hash, created_at, last_login_at
		FROM users
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts user and returns it with the generated ID. Timestamps are
// taken from user as given.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (first_name, last_name, email, password_hash, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.LastLoginAt,
	).Scan(&user.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	const query = `UPDATE users SET last_login_at = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.LastLoginAt = user.LastLoginAt.UTC()
	return user, nil
}

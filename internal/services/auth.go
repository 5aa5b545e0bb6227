package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/historyguide/apiserver/internal/store"
	"github.com/historyguide/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
}

// TokenIssuer creates bearer tokens for a user ID.
type TokenIssuer interface {
	Issue(userID int) (string, error)
}

// EventEmitter records audit events. Implementations must return without
// waiting on the broker.
type EventEmitter interface {
	Emit(ctx context.Context, typ types.EventType, userID int)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string
	User  types.User
}

// AuthService encapsulates registration, login and profile use-cases.
type AuthService struct {
	repo     UserRepository
	tokens   TokenIssuer
	events   EventEmitter
	hashCost int
	now      func() time.Time
	compare  func(hash, password []byte) error

	// dummyHash is compared against for unknown emails.
	dummyHash func() []byte
}

func NewAuthService(repo UserRepository, tokens TokenIssuer, events EventEmitter) *AuthService {
	s := &AuthService{
		repo:     repo,
		tokens:   tokens,
		events:   events,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
		compare:  bcrypt.CompareHashAndPassword,
	}
	s.dummyHash = sync.OnceValue(func() []byte {
		hash, _ := bcrypt.GenerateFromPassword([]byte("historyguide"), s.hashCost)
		return hash
	})
	return s
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, firstName, lastName, email, password string) (types.User, error) {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.timestamp()
	user, err := s.repo.Create(ctx, types.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		LastLoginAt:  now,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrConflict
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.events.Emit(ctx, types.EventUserRegistered, user.ID)
	return user, nil
}

// Login verifies credentials, records the login time and issues a token.
// Unknown emails and wrong passwords both yield ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same bcrypt cost as a wrong password.
			_ = s.compare(s.dummyHash(), []byte(password))
			return LoginResult{}, ErrUnauthorized
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrUnauthorized
	}

	now := s.timestamp()
	if now.Before(user.LastLoginAt) {
		now = user.LastLoginAt
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = now

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.events.Emit(ctx, types.EventUserLoggedIn, user.ID)
	return LoginResult{Token: token, User: user}, nil
}

// Profile returns the profile of the user with the given ID.
func (s *AuthService) Profile(ctx context.Context, userID int) (types.Profile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, fmt.Errorf("load user: %w", err)
	}
	return types.ProfileOf(user), nil
}

// timestamp is the current UTC time at the database's microsecond resolution.
func (s *AuthService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

package services

import "errors"

var (
	// ErrConflict is returned when registering an email that is already taken.
	ErrConflict = errors.New("email already in use")

	// ErrUnauthorized is returned for an unknown email or a wrong password.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrNotFound is returned when an authenticated identity has no user record.
	ErrNotFound = errors.New("user not found")
)

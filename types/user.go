package types

import "time"

// User represents an account in the system.
// It contains identity, credentials, and login metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// FirstName is the user's given name.
	FirstName string `json:"firstName" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"lastName" db:"last_name"`

	// Email is the user's login address. It is unique and compared
	// exactly as stored.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// LastLoginAt is the timestamp of the most recent successful login.
	LastLoginAt time.Time `json:"lastLoginAt" db:"last_login_at"`
}

// FullName joins the first and last name with a single space.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Profile is the public view of a user returned to its owner.
type Profile struct {
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
	FullName    string    `json:"fullName"`
}

// ProfileOf builds the profile view of u. FullName is derived on every call.
func ProfileOf(u User) Profile {
	return Profile{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
		FullName:    u.FullName(),
	}
}

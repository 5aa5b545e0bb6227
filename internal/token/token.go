// Package token issues and verifies the HS256 bearer tokens handed out at login.
package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 24 * time.Hour

// ErrInvalid is returned for any token that fails parsing or verification.
var ErrInvalid = errors.New("invalid token")

// Issuer signs tokens carrying the user ID as subject.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer for secret. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for userID.
func (i *Issuer) Issue(userID int) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Subject verifies tokenString and returns its subject claim.
func (i *Issuer) Subject(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", errors.Join(ErrInvalid, err)
	}
	if !token.Valid {
		return "", ErrInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.Join(ErrInvalid, errors.New("missing subject"))
	}
	return claims.Subject, nil
}

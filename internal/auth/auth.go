// Package auth gates access to the labeling interface.
//
// The tool shares one configured credential between all raters; this is an
// access gate, not a per-user authorization model.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrThrottled is returned when too many attempts arrive at once
	ErrThrottled = errors.New("too many login attempts, try again shortly")
)

// Checker verifies a username/password pair
type Checker interface {
	Check(username, password string) error
}

// StaticChecker compares against one configured username and bcrypt hash
type StaticChecker struct {
	username     string
	passwordHash []byte
	limiter      *rate.Limiter
}

// NewStaticChecker validates the configured credential. Attempts are limited
// to burst at once, refilling one every interval.
func NewStaticChecker(username, passwordHash string, interval time.Duration, burst int) (*StaticChecker, error) {
	if username == "" {
		return nil, errors.New("auth.username is not configured")
	}
	if passwordHash == "" {
		return nil, errors.New("auth.password_hash is not configured")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("auth.password_hash is not a bcrypt hash: %w", err)
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst <= 0 {
		burst = 1
	}

	return &StaticChecker{
		username:     username,
		passwordHash: []byte(passwordHash),
		limiter:      rate.NewLimiter(limit, burst),
	}, nil
}

func (c *StaticChecker) Check(username, password string) error {
	if !c.limiter.Allow() {
		return ErrThrottled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for auth.password_hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

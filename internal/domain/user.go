package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound              = errors.New("user not found")
	ErrTokenInvalid              = errors.New("token is invalid or expired")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrInvalidCredentials        = errors.New("invalid email or password")
	ErrEmailTaken                = errors.New("email already registered")
	ErrRegistrationDisabled      = errors.New("registration is disabled")
	ErrInvalidRegistrationSecret = errors.New("invalid registration secret")
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AuthUser is the identity carried by a token and returned to clients.
// It never includes the password hash.
type AuthUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (u *User) Identity() AuthUser {
	return AuthUser{ID: u.ID, Email: u.Email}
}

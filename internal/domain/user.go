package domain

import (
	"context"
	"time"
)

// User represents a registered account
type User struct {
	ID           int64
	Username     string // Unique, compared case-insensitively
	PasswordHash []byte // HMAC-SHA512 of the password keyed by PasswordSalt
	PasswordSalt []byte
	CreatedAt    time.Time
}

// UserRef is the owner projection embedded in project, issue and comment views
type UserRef struct {
	ID       int64
	Username string
}

// UserRepository defines data access for users
type UserRepository interface {
	// Create inserts the user and fills in ID and CreatedAt. A username that
	// collides case-insensitively with an existing one returns ErrConflict.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

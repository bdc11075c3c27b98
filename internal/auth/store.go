package auth

import (
	"context"
	"time"
)

type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type VerificationCode struct {
	ID        string
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	// RefreshProfile overwrites email and display metadata on the row matched
	// by Google subject id.
	RefreshProfile(ctx context.Context, googleID string, profile GoogleProfile) (*User, error)
	// LinkGoogle attaches a Google subject id (and profile metadata) to an
	// existing email-only user.
	LinkGoogle(ctx context.Context, userID string, profile GoogleProfile) (*User, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	// FindValid returns the session and its user for an unexpired token, or
	// (nil, nil, nil) when the token is unknown or expired.
	FindValid(ctx context.Context, token string, now time.Time) (*Session, *User, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type CodeStore interface {
	// Create marks every unused code for the email as used, then inserts the
	// new one. Both writes happen in one transaction so at most one code is
	// pending per email.
	Create(ctx context.Context, email, code string, now, expires time.Time) error
	// Consume marks the matching unused, unexpired code as used. Returns
	// false when no such code exists; a second Consume of the same code
	// always returns false.
	Consume(ctx context.Context, email, code string, now time.Time) (bool, error)
	CountSince(ctx context.Context, email string, since time.Time) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for authentication.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrForbidden          = errors.New("insufficient role")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a registered account.
type User struct {
	ID           string
	FullName     string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Session binds an opaque token to a user. Only the HMAC of the token is
// stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Identity is the verified principal behind a session token.
type Identity struct {
	UserID   string
	FullName string
	Email    string
	Role     Role
}

// UserRepository persists accounts.
type UserRepository interface {
	// CreateUser returns ErrEmailTaken when the email is already registered.
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// SessionRepository persists sessions keyed by token hash.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSessionByHash(ctx context.Context, hash string) (*Session, error)
	DeleteSessionByHash(ctx context.Context, hash string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

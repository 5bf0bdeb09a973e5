package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is used when Config.SessionTTL is zero.
const DefaultSessionTTL = 7 * 24 * time.Hour

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ValidationError reports an invalid signup field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Config holds session settings.
type Config struct {
	Pepper     []byte
	SessionTTL time.Duration
	BcryptCost int
}

// SignupRequest holds the input for creating an account.
type SignupRequest struct {
	FullName string
	Email    string
	Phone    string
	Password string
}

// Result is returned by a successful login or signup. Token is shown to
// the client exactly once.
type Result struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// Service issues, verifies and revokes session tokens.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	pepper   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
	newID    func() string
}

// NewService creates an auth Service.
func NewService(users UserRepository, sessions SessionRepository, cfg Config) *Service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:    users,
		sessions: sessions,
		pepper:   cfg.Pepper,
		ttl:      ttl,
		cost:     cost,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns the bcrypt hash of password.
func (s *Service) HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(h), nil
}

// Signup creates a user account with RoleUser and opens a session for it.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Result, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.FullName == "" {
		return nil, &ValidationError{Field: "full_name", Reason: "required"}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil || !strings.Contains(req.Email, "@") {
		return nil, &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	if len(req.Password) < MinPasswordLength {
		return nil, &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           s.newID(),
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	return s.open(ctx, u)
}

// Login authenticates any user by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, u)
}

// AdminLogin authenticates like Login but only admits RoleAdmin.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Result, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return s.open(ctx, u)
}

// Verify resolves a token to its identity. Unknown, expired or orphaned
// sessions yield ErrInvalidSession.
func (s *Service) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	hash := HashToken(s.pepper, token)
	sess, err := s.sessions.GetSessionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, errors.Wrap(err, "get session")
	}
	if !hashesEqual(hash, sess.TokenHash) {
		return nil, ErrInvalidSession
	}
	if !s.now().Before(sess.ExpiresAt) {
		return nil, ErrInvalidSession
	}
	u, err := s.users.GetUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, errors.Wrap(err, "get user")
	}
	return &Identity{
		UserID:   u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}, nil
}

// Logout revokes the session behind token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSessionByHash(ctx, HashToken(s.pepper, token)); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// PurgeExpired removes sessions that expired before now.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, errors.Wrap(err, "delete expired sessions")
	}
	return n, nil
}

// GetUser returns the account with the given ID.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) open(ctx context.Context, u *User) (*Result, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &Session{
		ID:        s.newID(),
		UserID:    u.ID,
		TokenHash: HashToken(s.pepper, token),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "create session")
	}
	return &Result{Token: token, User: *u, ExpiresAt: sess.ExpiresAt}, nil
}

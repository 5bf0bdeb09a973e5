package kartclient

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Role is the account role reported by the server.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile is the signed-in account as cached locally. The role is a UI
// hint only; VerifySession is authoritative.
type Profile struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignupInfo holds the fields for creating an account.
type SignupInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Identity is the server's answer to a session check.
type Identity struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

type session struct {
	Profile
	SessionToken string `json:"session_token"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Auth manages the session token and cached profile.
type Auth struct {
	c *Client
}

// Login signs in any user and stores the credentials.
func (a *Auth) Login(ctx context.Context, email, password string) (*Profile, error) {
	return a.open(ctx, "/api/login.php", credentials{Email: email, Password: password})
}

// AdminLogin signs in an admin. Non-admin accounts get ErrForbidden.
func (a *Auth) AdminLogin(ctx context.Context, email, password string) (*Profile, error) {
	return a.open(ctx, "/api/admin/login.php", credentials{Email: email, Password: password})
}

// Signup creates an account and stores the credentials.
func (a *Auth) Signup(ctx context.Context, info SignupInfo) (*Profile, error) {
	return a.open(ctx, "/api/signup.php", info)
}

func (a *Auth) open(ctx context.Context, path string, body any) (*Profile, error) {
	var s session
	if err := a.c.do(ctx, http.MethodPost, path, body, false, &s); err != nil {
		return nil, err
	}
	if s.SessionToken == "" {
		return nil, &NetworkError{Op: "POST " + path, Err: errors.New("response has no session token")}
	}

	profile, err := json.Marshal(s.Profile)
	if err != nil {
		return nil, errors.Wrap(err, "encode profile")
	}
	if err := a.c.storage.Set(TokenKey, []byte(s.SessionToken)); err != nil {
		return nil, errors.Wrap(err, "store session token")
	}
	if err := a.c.storage.Set(ProfileKey, profile); err != nil {
		return nil, errors.Wrap(err, "store profile")
	}
	return &s.Profile, nil
}

// VerifySession asks the server who the stored token belongs to. It never
// answers from the cache.
func (a *Auth) VerifySession(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := a.c.do(ctx, http.MethodGet, "/api/verify_session.php", nil, true, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Logout ends the server session and always clears local credentials. The
// server error, if any, is still returned.
func (a *Auth) Logout(ctx context.Context) error {
	err := a.c.do(ctx, http.MethodPost, "/api/logout.php", nil, true, nil)
	if errors.Is(err, ErrUnauthenticated) {
		err = nil
	}
	a.clear()
	return err
}

// Profile returns the cached profile, or false when signed out.
func (a *Auth) Profile() (*Profile, bool) {
	data, ok, err := a.c.storage.Get(ProfileKey)
	if err != nil {
		a.c.lg.Warn("Read cached profile", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		a.c.lg.Warn("Discarding malformed cached profile", zap.Error(err))
		return nil, false
	}
	return &p, true
}

// SignedIn reports whether a session token is stored.
func (a *Auth) SignedIn() bool {
	_, err := a.c.token()
	return err == nil
}

func (a *Auth) clear() {
	for _, key := range []string{TokenKey, ProfileKey} {
		if err := a.c.storage.Delete(key); err != nil {
			a.c.lg.Warn("Clear local credentials", zap.String("key", key), zap.Error(err))
		}
	}
}

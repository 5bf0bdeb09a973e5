package kartclient

import (
	"context"
	"strings"
)

// Redirect targets.
const (
	LoginPath      = "/login"
	AdminLoginPath = "/admin/login"
)

// Verifier resolves the stored session; *Auth implements it.
type Verifier interface {
	VerifySession(ctx context.Context) (*Identity, error)
}

// Guard decides navigation access. Every protected check asks the server;
// the cached role is never trusted.
type Guard struct {
	auth Verifier
}

// NewGuard creates a Guard.
func NewGuard(auth Verifier) *Guard {
	return &Guard{auth: auth}
}

// Check is evaluated once per navigation to path. It returns the path to
// redirect to, or "" when navigation may proceed. Any verification failure,
// including network errors, redirects.
func (g *Guard) Check(ctx context.Context, path string) string {
	switch {
	case isAdminPath(path):
		id, err := g.auth.VerifySession(ctx)
		if err != nil || id.Role != RoleAdmin {
			return AdminLoginPath
		}
	case requiresSession(path):
		if _, err := g.auth.VerifySession(ctx); err != nil {
			return LoginPath
		}
	}
	return ""
}

func isAdminPath(path string) bool {
	path = strings.TrimRight(path, "/")
	if path == AdminLoginPath {
		return false
	}
	return path == "/admin" || strings.HasPrefix(path, "/admin/")
}

func requiresSession(path string) bool {
	path = strings.TrimRight(path, "/")
	for _, p := range []string{"/checkout", "/orders"} {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

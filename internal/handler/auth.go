package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/catering-kart/internal/domain/auth"
)

type identityKey struct{}

type tokenKey struct{}

// IdentityFromContext returns the identity stored by RequireSession.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*auth.Identity)
	return id, ok
}

// BearerToken extracts the session token from "Authorization: Bearer ...".
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireSession admits requests carrying a valid session token.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return h.guard(next, "")
}

// RequireRole admits requests whose session resolves to role. Missing or
// invalid tokens get 401, other roles 403.
func (h *Handler) RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return h.guard(next, role)
	}
}

func (h *Handler) guard(next http.Handler, role auth.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		id, err := h.Auth.Verify(r.Context(), token)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if role != "" && id.Role != role {
			h.fail(w, r, auth.ErrForbidden)
			return
		}
		trace.SpanFromContext(r.Context()).SetAttributes(
			attribute.String("user.id", id.UserID),
			attribute.String("user.role", string(id.Role)),
		)
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		ctx = context.WithValue(ctx, tokenKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identity(r *http.Request) *auth.Identity {
	id, _ := IdentityFromContext(r.Context())
	return id
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type sessionResponse struct {
	SessionToken string    `json:"session_token"`
	UserID       string    `json:"user_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Role         auth.Role `json:"role"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func toSession(res *auth.Result) sessionResponse {
	return sessionResponse{
		SessionToken: res.Token,
		UserID:       res.User.ID,
		FullName:     res.User.FullName,
		Email:        res.User.Email,
		Phone:        res.User.Phone,
		Role:         res.User.Role,
		ExpiresAt:    res.ExpiresAt,
	}
}

// Login handles POST /api/login.php.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.Auth.Login)
}

// AdminLogin handles POST /api/admin/login.php.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.Auth.AdminLogin)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, email, password string) (*auth.Result, error)) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	res, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toSession(res))
}

// Signup handles POST /api/signup.php.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Auth.Signup(r.Context(), auth.SignupRequest{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, toSession(res))
}

type verifyResponse struct {
	UserID   string    `json:"user_id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
}

// VerifySession handles GET /api/verify_session.php.
func (h *Handler) VerifySession(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	writeData(w, http.StatusOK, verifyResponse{
		UserID:   id.UserID,
		FullName: id.FullName,
		Email:    id.Email,
		Role:     id.Role,
	})
}

// Logout handles POST /api/logout.php.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey{}).(string)
	if err := h.Auth.Logout(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, "Logged out")
}

// Package kartclient is the customer-side SDK for the catering API. It keeps
// the session token and profile in a cart.Storage, submits carts for
// checkout and decides where navigation should be redirected.
//
// Calls are single attempts; the client never retries.
package kartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/catering-kart/pkg/kartclient/cart"
)

// Storage keys for local credentials.
const (
	TokenKey   = "session_token"
	ProfileKey = "user"
)

var (
	// ErrUnauthenticated is returned for 401 responses or when no session
	// token is stored.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrForbidden is returned for 403 responses.
	ErrForbidden = errors.New("access denied")
)

// NetworkError wraps a transport failure or an unreadable response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a request the server rejected as invalid (400, 404,
// 409 or 422). Message is the server's explanation.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rejected (%d): %s", e.Status, e.Message)
}

// ServerError is any other non-2xx response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// Client talks to the API.
type Client struct {
	baseURL string
	http    *http.Client
	storage cart.Storage
	lg      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for local storage failures.
func WithLogger(lg *zap.Logger) Option {
	return func(c *Client) { c.lg = lg }
}

// New creates a Client for the API at baseURL that keeps credentials in
// storage.
func New(baseURL string, storage cart.Storage, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		storage: storage,
		lg:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Auth returns the session API.
func (c *Client) Auth() *Auth { return &Auth{c: c} }

// Orders returns the checkout and history API.
func (c *Client) Orders() *Orders { return &Orders{c: c} }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// do sends the request and decodes the envelope's data into out. With
// authed set the stored session token is attached, and a missing token
// fails without a request.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	op := method + " " + path
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Op: op, Err: errors.Wrap(err, "read response")}
	}

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
	case code == http.StatusUnauthorized:
		return ErrUnauthenticated
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusBadRequest, code == http.StatusNotFound,
		code == http.StatusConflict, code == http.StatusUnprocessableEntity:
		return &ValidationError{Status: code, Message: errorMessage(raw, code)}
	default:
		return &ServerError{Status: code, Message: errorMessage(raw, code)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &NetworkError{Op: op, Err: errors.Wrapf(err, "decode response (status %d)", resp.StatusCode)}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &NetworkError{Op: op, Err: errors.Wrap(err, "decode data")}
	}
	return nil
}

// errorMessage takes the envelope message from an error body. Bodies that
// are not an envelope, such as a proxy's HTML page, fall back to the
// status text.
func errorMessage(raw []byte, code int) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return http.StatusText(code)
}

func (c *Client) token() (string, error) {
	data, ok, err := c.storage.Get(TokenKey)
	if err != nil {
		return "", errors.Wrap(err, "read session token")
	}
	if !ok || len(data) == 0 {
		return "", ErrUnauthenticated
	}
	return string(data), nil
}

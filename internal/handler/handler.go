// Package handler exposes the catering API over HTTP. Every response uses
// the {success, data, message} envelope the front end expects.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/catering-kart/internal/domain/admin"
	"github.com/xenking/catering-kart/internal/domain/auth"
	"github.com/xenking/catering-kart/internal/domain/cart"
	"github.com/xenking/catering-kart/internal/domain/catalog"
	"github.com/xenking/catering-kart/internal/domain/order"
	clientcart "github.com/xenking/catering-kart/pkg/kartclient/cart"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Deps are the domain services behind the API.
type Deps struct {
	Auth      *auth.Service
	Catalog   catalog.Repository
	Occasions catalog.OccasionRepository
	Cart      *cart.Service
	Orders    *order.Service
	Admin     *admin.Service
}

// Handler serves the API routes.
type Handler struct {
	Deps

	ordersCreated    metric.Int64Counter
	checkoutFailures metric.Int64Counter
}

// New creates a Handler. A nil meter provider disables metrics.
func New(deps Deps, mp metric.MeterProvider) (*Handler, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter("github.com/xenking/catering-kart/internal/handler")

	h := &Handler{Deps: deps}
	var err error
	if h.ordersCreated, err = meter.Int64Counter("kart.orders.created",
		metric.WithDescription("Orders placed through checkout or by an admin"),
	); err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	if h.checkoutFailures, err = meter.Int64Counter("kart.checkout.failures",
		metric.WithDescription("Rejected or failed checkouts"),
	); err != nil {
		return nil, errors.Wrap(err, "checkout failures counter")
	}
	return h, nil
}

// Register mounts the API routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login.php", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/signup.php", h.Signup).Methods(http.MethodPost)
	api.HandleFunc("/admin/login.php", h.AdminLogin).Methods(http.MethodPost)
	api.HandleFunc("/meals.php", h.ListMeals).Methods(http.MethodGet)
	api.HandleFunc("/occasions.php", h.ListOccasions).Methods(http.MethodGet)

	user := api.NewRoute().Subrouter()
	user.Use(h.RequireSession)
	user.HandleFunc("/verify_session.php", h.VerifySession).Methods(http.MethodGet)
	user.HandleFunc("/logout.php", h.Logout).Methods(http.MethodPost)
	user.HandleFunc("/cart.php", h.GetCart).Methods(http.MethodGet)
	user.HandleFunc("/cart.php", h.AddToCart).Methods(http.MethodPost)
	user.HandleFunc("/cart.php", h.ClearCart).Methods(http.MethodDelete)
	user.HandleFunc("/cart_item.php", h.UpdateCartItem).Methods(http.MethodPut)
	user.HandleFunc("/cart_item.php", h.RemoveCartItem).Methods(http.MethodDelete)
	user.HandleFunc("/checkout.php", h.Checkout).Methods(http.MethodPost)
	user.HandleFunc("/orders.php", h.OrderHistory).Methods(http.MethodGet)

	adm := api.PathPrefix("/admin").Subrouter()
	adm.Use(h.RequireRole(auth.RoleAdmin))
	adm.HandleFunc("/dashboard.php", h.AdminDashboard).Methods(http.MethodGet)
	adm.HandleFunc("/analytics.php", h.AdminAnalytics).Methods(http.MethodGet)
	adm.HandleFunc("/customers.php", h.AdminCustomers).Methods(http.MethodGet)
	adm.HandleFunc("/orders.php", h.AdminListOrders).Methods(http.MethodGet)
	adm.HandleFunc("/orders.php", h.AdminCreateOrder).Methods(http.MethodPost)
	adm.HandleFunc("/orders.php", h.AdminUpdateOrder).Methods(http.MethodPut)
	adm.HandleFunc("/orders.php", h.AdminDeleteOrder).Methods(http.MethodDelete)
	adm.HandleFunc("/meals.php", h.ListMeals).Methods(http.MethodGet)
	adm.HandleFunc("/meals.php", h.AdminCreateMeal).Methods(http.MethodPost)
	adm.HandleFunc("/meals.php", h.AdminUpdateMeal).Methods(http.MethodPut)
	adm.HandleFunc("/meals.php", h.AdminDeleteMeal).Methods(http.MethodDelete)
	adm.HandleFunc("/occasions.php", h.ListOccasions).Methods(http.MethodGet)
	adm.HandleFunc("/occasions.php", h.AdminCreateOccasion).Methods(http.MethodPost)
	adm.HandleFunc("/occasions.php", h.AdminUpdateOccasion).Methods(http.MethodPut)
	adm.HandleFunc("/occasions.php", h.AdminDeleteOccasion).Methods(http.MethodDelete)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Message: message})
}

// decode reads a JSON body into v. It answers 400 itself and reports
// whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "Invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// queryID returns the required ?id= parameter, answering 400 when absent.
func queryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id parameter")
		return "", false
	}
	return id, true
}

// fail maps a domain error to a status code and envelope. Unexpected
// errors are logged and answered with a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, msg)
}

func classify(err error) (int, string) {
	var (
		authValidation    *auth.ValidationError
		orderValidation   *order.ValidationError
		catalogValidation *catalog.ValidationError
		guests            *clientcart.GuestCountError
		quantity          *clientcart.QuantityError
		servings          *clientcart.ServingsError
		unknownOffering   *order.OfferingNotFoundError
	)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrInvalidSession):
		return http.StatusUnauthorized, "Invalid or expired session"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, catalog.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "Meal plan not found"
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound, "Cart item not found"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, order.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "Cart is empty"
	case errors.Is(err, order.ErrCartChanged):
		return http.StatusConflict, "Cart changed, please review it and try again"
	case errors.As(err, &authValidation):
		return http.StatusUnprocessableEntity, authValidation.Error()
	case errors.As(err, &orderValidation):
		return http.StatusUnprocessableEntity, orderValidation.Error()
	case errors.As(err, &catalogValidation):
		return http.StatusUnprocessableEntity, catalogValidation.Error()
	case errors.As(err, &guests):
		return http.StatusUnprocessableEntity, guests.Error()
	case errors.As(err, &quantity):
		return http.StatusUnprocessableEntity, quantity.Error()
	case errors.As(err, &servings):
		return http.StatusUnprocessableEntity, servings.Error()
	case errors.As(err, &unknownOffering):
		return http.StatusUnprocessableEntity, unknownOffering.Error()
	}
	return http.StatusInternalServerError, "Something went wrong, please try again"
}

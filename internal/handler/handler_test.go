package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/catering-kart/internal/domain/admin"
	"github.com/xenking/catering-kart/internal/domain/auth"
	"github.com/xenking/catering-kart/internal/domain/cart"
	"github.com/xenking/catering-kart/internal/domain/catalog"
	"github.com/xenking/catering-kart/internal/domain/order"
	"github.com/xenking/catering-kart/internal/storage/sqlstore"
	clientcart "github.com/xenking/catering-kart/pkg/kartclient/cart"
)

type testServer struct {
	t      *testing.T
	router *mux.Router
	users  *sqlstore.AuthRepository
	auth   *auth.Service
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, Name: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))

	catalogRepo := sqlstore.NewCatalogRepository(store)
	cartRepo := sqlstore.NewCartRepository(store)
	orderRepo := sqlstore.NewOrderRepository(store)
	users := sqlstore.NewAuthRepository(store)

	require.NoError(t, catalogRepo.Create(ctx, &catalog.Offering{
		ID:         "corp-lunch",
		Name:       "Executive Lunch Box",
		Occasion:   catalog.OccasionCorporate,
		Price:      decimal.NewFromInt(299),
		Type:       catalog.DietVeg,
		GuestTiers: []int{10, 25, 50},
		Items: []catalog.ItemCategory{
			{Name: "Mains", Items: []string{"Paneer butter masala", "Dal tadka"}},
		},
	}))

	authSvc := auth.NewService(users, users, auth.Config{
		Pepper:     []byte("test-pepper"),
		BcryptCost: bcrypt.MinCost,
	})
	h, err := New(Deps{
		Auth:      authSvc,
		Catalog:   catalogRepo,
		Occasions: catalogRepo,
		Cart:      cart.NewService(cartRepo, catalogRepo),
		Orders:    order.NewService(catalogRepo, cartRepo, orderRepo),
		Admin:     admin.NewService(sqlstore.NewAdminRepository(store), orderRepo),
	}, nil)
	require.NoError(t, err)

	r := mux.NewRouter()
	h.Register(r)
	return &testServer{t: t, router: r, users: users, auth: authSvc}
}

func (s *testServer) do(method, path, token string, body any) (int, response) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func (s *testServer) signup(email string) string {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/signup.php", "", map[string]string{
		"full_name": "Asha Rao",
		"email":     email,
		"phone":     "9876543210",
		"password":  "secret123",
	})
	require.Equal(s.t, http.StatusCreated, code, resp.Message)
	var sess sessionResponse
	require.NoError(s.t, json.Unmarshal(resp.Data, &sess))
	require.NotEmpty(s.t, sess.SessionToken)
	return sess.SessionToken
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	hash, err := s.auth.HashPassword("admin-pass")
	require.NoError(s.t, err)
	_, err = s.users.UpsertAdmin(context.Background(), &auth.User{
		ID:           "admin-1",
		FullName:     "Admin",
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(s.t, err)

	code, resp := s.do(http.MethodPost, "/api/admin/login.php", "", loginRequest{
		Email: "admin@example.com", Password: "admin-pass",
	})
	require.Equal(s.t, http.StatusOK, code, resp.Message)
	var sess sessionResponse
	require.NoError(s.t, json.Unmarshal(resp.Data, &sess))
	return sess.SessionToken
}

func TestHandler_Auth(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("asha@example.com")

	code, resp := s.do(http.MethodPost, "/api/signup.php", "", map[string]string{
		"full_name": "Other", "email": "ASHA@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)

	code, _ = s.do(http.MethodPost, "/api/signup.php", "", map[string]string{
		"full_name": "Short", "email": "short@example.com", "password": "123",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = s.do(http.MethodPost, "/api/login.php", "", loginRequest{Email: "asha@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/api/login.php", "", loginRequest{Email: "asha@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(http.MethodGet, "/api/verify_session.php", token, nil)
	require.Equal(t, http.StatusOK, code)
	var v verifyResponse
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	assert.Equal(t, "asha@example.com", v.Email)
	assert.Equal(t, auth.RoleUser, v.Role)

	code, resp = s.do(http.MethodGet, "/api/verify_session.php", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authentication required", resp.Message)

	code, _ = s.do(http.MethodGet, "/api/verify_session.php", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/api/admin/login.php", "", loginRequest{Email: "asha@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodGet, "/api/admin/dashboard.php", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(http.MethodPost, "/api/logout.php", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Logged out", resp.Message)

	code, _ = s.do(http.MethodGet, "/api/verify_session.php", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHandler_Meals(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(http.MethodGet, "/api/meals.php?occasion=corporate&type=veg", "", nil)
	require.Equal(t, http.StatusOK, code)
	var meals []mealDTO
	require.NoError(t, json.Unmarshal(resp.Data, &meals))
	require.Len(t, meals, 1)
	assert.Equal(t, 299.0, meals[0].Price)
	assert.Equal(t, []int{10, 25, 50}, meals[0].GuestTiers)

	code, resp = s.do(http.MethodGet, "/api/meals.php?type=non-veg", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &meals))
	assert.Empty(t, meals)

	code, _ = s.do(http.MethodGet, "/api/meals.php?type=vegan", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/meals.php?id=missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = s.do(http.MethodGet, "/api/nope.php", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
}

func TestHandler_CartAndCheckout(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("asha@example.com")

	code, _ := s.do(http.MethodGet, "/api/cart.php", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/api/cart.php", token, map[string]any{
		"offering_id": "corp-lunch", "guest_count": 30,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, resp := s.do(http.MethodPost, "/api/cart.php", token, map[string]any{
		"meal_id": "corp-lunch", "guest_count": 25,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var c cartDTO
	require.NoError(t, json.Unmarshal(resp.Data, &c))
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Count)
	assert.Equal(t, 7475.0, c.Subtotal)

	code, _ = s.do(http.MethodPut, "/api/cart_item.php?id=missing", token, map[string]any{"quantity": 2})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, "/api/checkout.php", token, map[string]any{
		"phone": "9876543210",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, resp = s.do(http.MethodPost, "/api/checkout.php", token, map[string]any{
		"delivery_address": "12 MG Road, Bengaluru",
		"phone":            "9876543210",
		"payment_method":   "upi",
		"event_date":       "2026-11-20",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var placed checkoutResponse
	require.NoError(t, json.Unmarshal(resp.Data, &placed))
	assert.NotEmpty(t, placed.OrderID)
	assert.Equal(t, order.StatusPending, placed.Status)
	assert.Equal(t, 7475.0, placed.Subtotal)
	assert.Equal(t, 373.75, placed.Tax)
	assert.Equal(t, 7898.75, placed.Total)

	code, resp = s.do(http.MethodGet, "/api/cart.php", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &c))
	assert.Empty(t, c.Items)

	code, resp = s.do(http.MethodPost, "/api/checkout.php", token, map[string]any{
		"delivery_address": "12 MG Road", "phone": "9876543210",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Cart is empty", resp.Message)

	code, resp = s.do(http.MethodGet, "/api/orders.php", token, nil)
	require.Equal(t, http.StatusOK, code)
	var history []orderDTO
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, placed.OrderID, history[0].OrderID)
	assert.Equal(t, "2026-11-20", history[0].EventDate)
	assert.Equal(t, order.PaymentUPI, history[0].PaymentMethod)
}

func TestHandler_CheckoutExplicitItems(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("asha@example.com")

	code, resp := s.do(http.MethodPost, "/api/checkout.php", token, map[string]any{
		"delivery_address": "12 MG Road",
		"phone":            "9876543210",
		"items": []map[string]any{
			{"offering_id": "corp-lunch", "guest_count": 25, "quantity": 1, "price": 1},
		},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var placed checkoutResponse
	require.NoError(t, json.Unmarshal(resp.Data, &placed))
	assert.Equal(t, 7898.75, placed.Total)

	code, _ = s.do(http.MethodPost, "/api/checkout.php", token, map[string]any{
		"delivery_address": "12 MG Road",
		"phone":            "9876543210",
		"items":            []map[string]any{{"offering_id": "ghost", "guest_count": 25}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = s.do(http.MethodPost, "/api/checkout.php", token, map[string]any{
		"delivery_address": "12 MG Road",
		"phone":            "9876543210",
		"event_date":       "next friday",
		"items":            []map[string]any{{"offering_id": "corp-lunch", "guest_count": 25}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestHandler_CheckoutAfterMealDeleted(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("asha@example.com")
	admin := s.adminToken()

	code, resp := s.do(http.MethodPost, "/api/admin/meals.php", admin, map[string]any{
		"name":        "Wedding Thali",
		"occasion":    "wedding",
		"price":       "450",
		"type":        "veg",
		"items":       "Biryani, Raita",
		"guest_tiers": []int{50, 100},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var meal mealDTO
	require.NoError(t, json.Unmarshal(resp.Data, &meal))

	code, resp = s.do(http.MethodPost, "/api/cart.php", token, map[string]any{
		"offering_id": meal.ID, "guest_count": 50,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	code, resp = s.do(http.MethodPost, "/api/cart.php", token, map[string]any{
		"offering_id": "corp-lunch", "guest_count": 25,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)

	code, _ = s.do(http.MethodDelete, "/api/admin/meals.php?id="+meal.ID, admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodGet, "/api/cart.php", token, nil)
	require.Equal(t, http.StatusOK, code)
	var c cartDTO
	require.NoError(t, json.Unmarshal(resp.Data, &c))
	require.Len(t, c.Items, 1)

	code, resp = s.do(http.MethodPost, "/api/checkout.php", token, map[string]any{
		"delivery_address": "12 MG Road", "phone": "9876543210",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var placed checkoutResponse
	require.NoError(t, json.Unmarshal(resp.Data, &placed))
	assert.Equal(t, 7898.75, placed.Total)

	code, resp = s.do(http.MethodPost, "/api/checkout.php", token, map[string]any{
		"delivery_address": "12 MG Road", "phone": "9876543210",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Cart is empty", resp.Message)
}

func TestHandler_Admin(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signup("asha@example.com")
	token := s.adminToken()

	code, resp := s.do(http.MethodPost, "/api/admin/meals.php", token, map[string]any{
		"name":        "Wedding Thali",
		"occasion":    "wedding",
		"price":       "650",
		"type":        "both",
		"items":       "Biryani, Raita, Gulab jamun",
		"guest_tiers": []int{100, 50},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var meal mealDTO
	require.NoError(t, json.Unmarshal(resp.Data, &meal))
	assert.NotEmpty(t, meal.ID)
	assert.Equal(t, []int{50, 100}, meal.GuestTiers)
	require.NotEmpty(t, meal.Items)

	code, _ = s.do(http.MethodPost, "/api/admin/meals.php", token, map[string]any{
		"id": "corp-lunch", "name": "Dup", "occasion": "corporate", "price": 10, "type": "veg",
		"guest_tiers": []int{10},
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPut, "/api/admin/meals.php", token, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodDelete, "/api/admin/meals.php?id="+meal.ID, token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodPost, "/api/admin/orders.php", token, map[string]any{
		"user_id":          "nobody",
		"delivery_address": "1 Park St",
		"phone":            "9876543210",
		"items":            []map[string]any{{"offering_id": "corp-lunch", "guest_count": 10}},
	})
	assert.Equal(t, http.StatusNotFound, code, resp.Message)

	code, resp = s.do(http.MethodPost, "/api/checkout.php", userToken, map[string]any{
		"delivery_address": "12 MG Road",
		"phone":            "9876543210",
		"items":            []map[string]any{{"offering_id": "corp-lunch", "guest_count": 25}},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var placed checkoutResponse
	require.NoError(t, json.Unmarshal(resp.Data, &placed))

	code, _ = s.do(http.MethodPut, "/api/admin/orders.php?id="+placed.OrderID, token, statusRequest{Status: "shipped"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, resp = s.do(http.MethodPut, "/api/admin/orders.php?id="+placed.OrderID, token, statusRequest{Status: "confirmed"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var updated orderDTO
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, order.StatusConfirmed, updated.Status)

	code, resp = s.do(http.MethodGet, "/api/admin/orders.php?status=confirmed", token, nil)
	require.Equal(t, http.StatusOK, code)
	var listed []orderDTO
	require.NoError(t, json.Unmarshal(resp.Data, &listed))
	assert.Len(t, listed, 1)

	code, resp = s.do(http.MethodGet, "/api/admin/dashboard.php", token, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var dash dashboardDTO
	require.NoError(t, json.Unmarshal(resp.Data, &dash))
	assert.Equal(t, int64(1), dash.TotalOrders)
	assert.Equal(t, 7898.75, dash.TotalRevenue)
	assert.Equal(t, int64(1), dash.Customers)
	require.Len(t, dash.RecentOrders, 1)

	code, resp = s.do(http.MethodGet, "/api/admin/analytics.php?days=7", token, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var stats analyticsDTO
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Len(t, stats.DailyRevenue, 7)
	assert.Len(t, stats.ByStatus, len(order.Statuses))
	require.Len(t, stats.TopMeals, 1)
	assert.Equal(t, "corp-lunch", stats.TopMeals[0].OfferingID)

	code, _ = s.do(http.MethodGet, "/api/admin/analytics.php?days=zero", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(http.MethodGet, "/api/admin/customers.php", token, nil)
	require.Equal(t, http.StatusOK, code)
	var customers []customerDTO
	require.NoError(t, json.Unmarshal(resp.Data, &customers))
	require.Len(t, customers, 1)
	assert.Equal(t, int64(1), customers[0].Orders)
	assert.Equal(t, 7898.75, customers[0].TotalSpent)

	code, _ = s.do(http.MethodDelete, "/api/admin/orders.php?id="+placed.OrderID, token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/api/admin/orders.php?id="+placed.OrderID, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestClassify(t *testing.T) {
	for _, tt := range []struct {
		err  error
		code int
	}{
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrForbidden, http.StatusForbidden},
		{catalog.ErrConflict, http.StatusConflict},
		{order.ErrNotFound, http.StatusNotFound},
		{order.ErrEmptyCart, http.StatusUnprocessableEntity},
		{&clientcart.QuantityError{Quantity: 0}, http.StatusUnprocessableEntity},
		{&clientcart.ServingsError{OfferingID: "custom", GuestCount: 10000, Quantity: 2}, http.StatusUnprocessableEntity},
		{order.ErrCartChanged, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	} {
		code, msg := classify(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}

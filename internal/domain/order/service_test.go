package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/catering-kart/internal/domain/cart"
	"github.com/xenking/catering-kart/internal/domain/catalog"
	clientcart "github.com/xenking/catering-kart/pkg/kartclient/cart"
)

// --- Mock implementations ---

type mockCatalog struct {
	byID   map[string]catalog.Offering
	getErr error
}

func (m *mockCatalog) List(context.Context, catalog.Filter) ([]catalog.Offering, error) {
	return nil, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*catalog.Offering, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &o, nil
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Offering, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []catalog.Offering
	for _, id := range ids {
		if o, ok := m.byID[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockCatalog) Create(context.Context, *catalog.Offering) error { return nil }
func (m *mockCatalog) Update(context.Context, *catalog.Offering) error { return nil }
func (m *mockCatalog) Delete(context.Context, string) error            { return nil }

type mockCarts struct {
	items []cart.Item
}

func (m *mockCarts) ListItems(_ context.Context, userID string) ([]cart.Item, error) {
	var out []cart.Item
	for _, it := range m.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockCarts) GetItem(context.Context, string, string) (*cart.Item, error) {
	return nil, cart.ErrItemNotFound
}
func (m *mockCarts) SaveItem(context.Context, *cart.Item) error       { return nil }
func (m *mockCarts) DeleteItem(context.Context, string, string) error { return nil }
func (m *mockCarts) ClearItems(context.Context, string) error         { return nil }

type mockOrderRepo struct {
	lastOrder    *Order
	lastConsumed []cart.Item
	createErr    error
	statuses     map[string]Status
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, consumed []cart.Item) error {
	m.lastOrder = o
	m.lastConsumed = consumed
	return m.createErr
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	st, ok := m.statuses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Order{ID: id, Status: st}, nil
}

func (m *mockOrderRepo) List(context.Context, ListFilter) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status, _ time.Time) error {
	if _, ok := m.statuses[id]; !ok {
		return ErrNotFound
	}
	m.statuses[id] = status
	return nil
}

func (m *mockOrderRepo) Delete(context.Context, string) error { return nil }

// --- Helpers ---

func testCatalog() *mockCatalog {
	return &mockCatalog{byID: map[string]catalog.Offering{
		"corp-exec-lunch": {
			ID:         "corp-exec-lunch",
			Name:       "Executive Lunch Box",
			Occasion:   catalog.OccasionCorporate,
			Price:      decimal.NewFromInt(299),
			GuestTiers: []int{10, 25, 50, 100},
		},
		"bday-custom": {
			ID:       "bday-custom",
			Name:     "Custom Birthday Spread",
			Occasion: catalog.OccasionBirthday,
			Price:    decimal.NewFromInt(180),
			Custom:   true,
		},
	}}
}

func validRequest(lines ...LineRequest) CheckoutRequest {
	return CheckoutRequest{
		DeliveryAddress: "12 MG Road, Bengaluru",
		Phone:           "+91 98450 00000",
		PaymentMethod:   PaymentUPI,
		Lines:           lines,
	}
}

func newTestService(orders *mockOrderRepo, carts *mockCarts) *Service {
	svc := NewService(testCatalog(), carts, orders)
	svc.newID = func() string { return "order-1" }
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

// --- Tests ---

func TestCheckout_RecomputesTotals(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(orders, &mockCarts{})

	o, err := svc.Checkout(context.Background(), "u1", validRequest(
		LineRequest{OfferingID: "corp-exec-lunch", GuestCount: 25, Quantity: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, catalog.OccasionCorporate, o.Occasion)
	assert.True(t, decimal.NewFromInt(7475).Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("373.75").Equal(o.Tax))
	assert.True(t, decimal.NewFromInt(50).Equal(o.DeliveryFee))
	assert.True(t, decimal.RequireFromString("7898.75").Equal(o.Total))

	require.Len(t, o.Items, 1)
	assert.Equal(t, "Executive Lunch Box", o.Items[0].Name)
	assert.True(t, decimal.NewFromInt(7475).Equal(o.Items[0].LineTotal))

	assert.Same(t, o, orders.lastOrder)
	assert.Empty(t, orders.lastConsumed, "explicit lines leave the server cart alone")
}

func TestCheckout_UsesServerCartWhenNoLines(t *testing.T) {
	orders := &mockOrderRepo{}
	carts := &mockCarts{items: []cart.Item{
		{ID: "i1", UserID: "u1", OfferingID: "bday-custom", GuestCount: 40, Quantity: 1},
		{ID: "i2", UserID: "u2", OfferingID: "corp-exec-lunch", GuestCount: 10, Quantity: 1},
	}}
	svc := newTestService(orders, carts)

	o, err := svc.Checkout(context.Background(), "u1", validRequest())
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	assert.Equal(t, "bday-custom", o.Items[0].OfferingID)
	assert.True(t, decimal.NewFromInt(7200).Equal(o.Subtotal))
	require.Len(t, orders.lastConsumed, 1)
	assert.Equal(t, "i1", orders.lastConsumed[0].ID)
}

func TestCheckout_SkipsItemsOfDeletedOfferings(t *testing.T) {
	orders := &mockOrderRepo{}
	carts := &mockCarts{items: []cart.Item{
		{ID: "a", UserID: "u1", OfferingID: "corp-exec-lunch", GuestCount: 25, Quantity: 1},
		{ID: "b", UserID: "u1", OfferingID: "retired", GuestCount: 50, Quantity: 1},
	}}
	svc := newTestService(orders, carts)

	o, err := svc.Checkout(context.Background(), "u1", validRequest())
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.True(t, decimal.RequireFromString("7898.75").Equal(o.Total))
	require.Len(t, orders.lastConsumed, 1)
	assert.Equal(t, "a", orders.lastConsumed[0].ID)

	carts.items = carts.items[1:]
	orders.lastOrder = nil
	_, err = svc.Checkout(context.Background(), "u1", validRequest())
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, orders.lastOrder)
}

func TestCheckout_TotalBound(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCarts{})
	svc.catalog = &mockCatalog{byID: map[string]catalog.Offering{
		"custom": {ID: "custom", Name: "Custom", Price: decimal.NewFromInt(100000), Custom: true},
	}}

	_, err := svc.Checkout(context.Background(), "u1", validRequest(
		LineRequest{OfferingID: "custom", GuestCount: clientcart.MaxServings, Quantity: 1},
	))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "total", vErr.Field)

	_, err = svc.Checkout(context.Background(), "u1", validRequest(
		LineRequest{OfferingID: "custom", GuestCount: clientcart.MaxServings, Quantity: 2},
	))
	var sErr *clientcart.ServingsError
	require.ErrorAs(t, err, &sErr)
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCarts{})

	_, err := svc.Checkout(context.Background(), "u1", validRequest())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_Validation(t *testing.T) {
	line := LineRequest{OfferingID: "corp-exec-lunch", GuestCount: 25, Quantity: 1}

	tests := []struct {
		name  string
		mod   func(r *CheckoutRequest)
		field string
	}{
		{"missing address", func(r *CheckoutRequest) { r.DeliveryAddress = "  " }, "delivery_address"},
		{"missing phone", func(r *CheckoutRequest) { r.Phone = "" }, "phone"},
		{"unknown payment method", func(r *CheckoutRequest) { r.PaymentMethod = "bitcoin" }, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockOrderRepo{}, &mockCarts{})
			req := validRequest(line)
			tt.mod(&req)

			_, err := svc.Checkout(context.Background(), "u1", req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestCheckout_DefaultsToCashOnDelivery(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCarts{})
	req := validRequest(LineRequest{OfferingID: "corp-exec-lunch", GuestCount: 10, Quantity: 1})
	req.PaymentMethod = ""

	o, err := svc.Checkout(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, PaymentCOD, o.PaymentMethod)
}

func TestCheckout_LineErrors(t *testing.T) {
	t.Run("unknown offering", func(t *testing.T) {
		svc := newTestService(&mockOrderRepo{}, &mockCarts{})
		_, err := svc.Checkout(context.Background(), "u1", validRequest(
			LineRequest{OfferingID: "missing", GuestCount: 10, Quantity: 1},
		))
		var nfErr *OfferingNotFoundError
		require.ErrorAs(t, err, &nfErr)
		assert.Equal(t, "missing", nfErr.OfferingID)
	})

	t.Run("guest count outside tiers", func(t *testing.T) {
		svc := newTestService(&mockOrderRepo{}, &mockCarts{})
		_, err := svc.Checkout(context.Background(), "u1", validRequest(
			LineRequest{OfferingID: "corp-exec-lunch", GuestCount: 30, Quantity: 1},
		))
		var gcErr *clientcart.GuestCountError
		require.ErrorAs(t, err, &gcErr)
	})

	t.Run("zero quantity", func(t *testing.T) {
		svc := newTestService(&mockOrderRepo{}, &mockCarts{})
		_, err := svc.Checkout(context.Background(), "u1", validRequest(
			LineRequest{OfferingID: "corp-exec-lunch", GuestCount: 25, Quantity: 0},
		))
		var qErr *clientcart.QuantityError
		require.ErrorAs(t, err, &qErr)
	})
}

func TestCheckout_PersistenceErrors(t *testing.T) {
	line := LineRequest{OfferingID: "corp-exec-lunch", GuestCount: 25, Quantity: 1}

	t.Run("catalog", func(t *testing.T) {
		svc := newTestService(&mockOrderRepo{}, &mockCarts{})
		svc.catalog = &mockCatalog{getErr: errors.New("connection reset")}
		_, err := svc.Checkout(context.Background(), "u1", validRequest(line))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "get offerings")
	})

	t.Run("create", func(t *testing.T) {
		svc := newTestService(&mockOrderRepo{createErr: errors.New("db write failed")}, &mockCarts{})
		_, err := svc.Checkout(context.Background(), "u1", validRequest(line))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create order")
	})
}

func TestUpdateStatus(t *testing.T) {
	orders := &mockOrderRepo{statuses: map[string]Status{"o1": StatusDelivered}}
	svc := newTestService(orders, &mockCarts{})
	ctx := context.Background()

	// Any status may follow any other.
	o, err := svc.UpdateStatus(ctx, "o1", "pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)

	_, err = svc.UpdateStatus(ctx, "o1", "shipped")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, StatusPending, orders.statuses["o1"])

	_, err = svc.UpdateStatus(ctx, "missing", "confirmed")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentMethodValid(t *testing.T) {
	for _, m := range []PaymentMethod{PaymentCOD, PaymentUPI, PaymentCard} {
		assert.True(t, m.Valid(), m)
	}
	assert.False(t, PaymentMethod("cheque").Valid())
	assert.False(t, PaymentMethod("").Valid())
}

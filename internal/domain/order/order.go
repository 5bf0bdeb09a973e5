package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/catering-kart/internal/domain/cart"
)

// Sentinel errors for order operations.
var (
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCartChanged is returned when the server-held cart was modified
	// while an order was being placed from it.
	ErrCartChanged = errors.New("cart changed during checkout")
)

// ValidationError reports an invalid checkout or status field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OfferingNotFoundError indicates a line references an unknown offering.
type OfferingNotFoundError struct {
	OfferingID string
}

func (e *OfferingNotFoundError) Error() string {
	return fmt.Sprintf("offering %s not found", e.OfferingID)
}

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled}

// ParseStatus validates s. Any known status may follow any other.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
}

// PaymentMethod is how the customer settles the order on delivery.
type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentUPI  PaymentMethod = "upi"
	PaymentCard PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentUPI, PaymentCard:
		return true
	}
	return false
}

// Order is a placed order. Items are a snapshot taken at checkout and are
// never repriced afterwards.
type Order struct {
	ID              string
	UserID          string
	Occasion        string
	DeliveryAddress string
	Phone           string
	Instructions    string
	PaymentMethod   PaymentMethod
	EventDate       *time.Time
	Items           []Item
	Subtotal        decimal.Decimal
	DeliveryFee     decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is a priced order line.
type Item struct {
	OfferingID string
	Name       string
	UnitPrice  decimal.Decimal
	GuestCount int
	Quantity   int
	LineTotal  decimal.Decimal
}

// ListFilter narrows an order listing. Zero values match everything.
type ListFilter struct {
	Status Status
	UserID string
	Limit  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order with its items and, in the same
	// transaction, removes the consumed cart items. It returns
	// ErrCartChanged if any consumed item no longer matches what was read.
	Create(ctx context.Context, o *Order, consumed []cart.Item) error
	Get(ctx context.Context, id string) (*Order, error)
	// List returns orders newest first.
	List(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
	Delete(ctx context.Context, id string) error
}

package kartclient

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/catering-kart/pkg/kartclient/cart"
)

// CartLines is the cart being checked out; *cart.Store implements it.
type CartLines interface {
	Lines() []cart.Line
}

// DeliveryInfo is what the customer enters at checkout.
type DeliveryInfo struct {
	Address      string
	Phone        string
	Instructions string
	// PaymentMethod is cod, upi or card; the server defaults to cod.
	PaymentMethod string
	// EventDate is sent as a calendar date when set.
	EventDate time.Time
	Occasion  string
}

// Placed is a successfully created order. The amounts are the server's,
// recomputed from the catalog.
type Placed struct {
	OrderID     string          `json:"order_id"`
	Status      string          `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// OrderItem is a line of a placed order.
type OrderItem struct {
	OfferingID string          `json:"offering_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	GuestCount int             `json:"guest_count"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// Order is an entry of the order history.
type Order struct {
	OrderID         string          `json:"order_id"`
	Occasion        string          `json:"occasion"`
	DeliveryAddress string          `json:"delivery_address"`
	Phone           string          `json:"phone"`
	PaymentMethod   string          `json:"payment_method"`
	EventDate       string          `json:"event_date"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

type checkoutLine struct {
	OfferingID string `json:"offering_id"`
	GuestCount int    `json:"guest_count"`
	Quantity   int    `json:"quantity"`
}

type checkoutBody struct {
	DeliveryAddress string         `json:"delivery_address"`
	Phone           string         `json:"phone"`
	Instructions    string         `json:"instructions,omitempty"`
	PaymentMethod   string         `json:"payment_method,omitempty"`
	EventDate       string         `json:"event_date,omitempty"`
	Occasion        string         `json:"occasion,omitempty"`
	Items           []checkoutLine `json:"items"`
}

// Orders places orders and reads the history.
type Orders struct {
	c *Client
}

// Checkout submits the cart lines with the stored session. Only offering
// IDs, guest counts and quantities are sent; prices come from the server.
// The cart is left untouched.
func (o *Orders) Checkout(ctx context.Context, lines CartLines, info DeliveryInfo) (*Placed, error) {
	body := checkoutBody{
		DeliveryAddress: info.Address,
		Phone:           info.Phone,
		Instructions:    info.Instructions,
		PaymentMethod:   info.PaymentMethod,
		Occasion:        info.Occasion,
	}
	if !info.EventDate.IsZero() {
		body.EventDate = info.EventDate.Format(time.DateOnly)
	}
	for _, l := range lines.Lines() {
		body.Items = append(body.Items, checkoutLine{
			OfferingID: l.OfferingID,
			GuestCount: l.GuestCount,
			Quantity:   l.Quantity,
		})
	}
	if len(body.Items) == 0 {
		return nil, &ValidationError{Status: http.StatusUnprocessableEntity, Message: "Cart is empty"}
	}

	var p Placed
	if err := o.c.do(ctx, http.MethodPost, "/api/checkout.php", body, true, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// History returns the signed-in user's orders, newest first.
func (o *Orders) History(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := o.c.do(ctx, http.MethodGet, "/api/orders.php", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

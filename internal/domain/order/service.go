package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/catering-kart/internal/domain/cart"
	"github.com/xenking/catering-kart/internal/domain/catalog"
	clientcart "github.com/xenking/catering-kart/pkg/kartclient/cart"
)

// LineRequest is a submitted cart line. Client-side prices are never part
// of it.
type LineRequest struct {
	OfferingID string
	GuestCount int
	Quantity   int
}

// CheckoutRequest holds the input for placing an order.
type CheckoutRequest struct {
	DeliveryAddress string
	Phone           string
	Instructions    string
	PaymentMethod   PaymentMethod
	EventDate       *time.Time
	// Occasion overrides the occasion derived from the first line.
	Occasion string
	// Lines may be empty, in which case the user's server-held cart is
	// ordered and the ordered items are removed from it.
	Lines []LineRequest
}

// Service encapsulates checkout and order administration.
type Service struct {
	catalog catalog.Repository
	carts   cart.Repository
	orders  Repository
	now     func() time.Time
	newID   func() string
}

// NewService creates an order Service with the required domain dependencies.
func NewService(offerings catalog.Repository, carts cart.Repository, orders Repository) *Service {
	return &Service{
		catalog: offerings,
		carts:   carts,
		orders:  orders,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Checkout validates the request, reprices every line from the catalog,
// and persists a pending order for userID.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*Order, error) {
	req.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.DeliveryAddress == "" {
		return nil, &ValidationError{Field: "delivery_address", Reason: "required"}
	}
	if req.Phone == "" {
		return nil, &ValidationError{Field: "phone", Reason: "required"}
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentCOD
	}
	if !req.PaymentMethod.Valid() {
		return nil, &ValidationError{Field: "payment_method", Reason: "must be one of cod, upi, card"}
	}

	requested := req.Lines
	var consumed []cart.Item
	if len(requested) == 0 {
		items, err := s.carts.ListItems(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "list cart items")
		}
		consumed = items
		for _, it := range items {
			requested = append(requested, LineRequest{
				OfferingID: it.OfferingID,
				GuestCount: it.GuestCount,
				Quantity:   it.Quantity,
			})
		}
	}
	if len(requested) == 0 {
		return nil, ErrEmptyCart
	}

	byID, err := s.offerings(ctx, requested)
	if err != nil {
		return nil, err
	}
	if consumed != nil {
		// Items whose meal plan is gone are hidden from the cart listing,
		// so they are not ordered either.
		requested, consumed = available(requested, consumed, byID)
	}
	if len(requested) == 0 {
		return nil, ErrEmptyCart
	}

	lines, offerings, err := price(requested, byID)
	if err != nil {
		return nil, err
	}
	q := QuoteLines(lines)
	if q.Total.GreaterThan(MaxTotal) {
		return nil, &ValidationError{Field: "total", Reason: "must not exceed " + MaxTotal.String()}
	}

	occasion := req.Occasion
	if occasion == "" {
		occasion = offerings[0].Occasion
	}

	now := s.now()
	o := &Order{
		ID:              s.newID(),
		UserID:          userID,
		Occasion:        occasion,
		DeliveryAddress: req.DeliveryAddress,
		Phone:           req.Phone,
		Instructions:    strings.TrimSpace(req.Instructions),
		PaymentMethod:   req.PaymentMethod,
		EventDate:       req.EventDate,
		Items:           make([]Item, len(lines)),
		Subtotal:        q.Subtotal,
		DeliveryFee:     q.DeliveryFee,
		Tax:             q.Tax,
		Total:           q.Total,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, l := range lines {
		o.Items[i] = Item{
			OfferingID: l.OfferingID,
			Name:       l.Name,
			UnitPrice:  l.UnitPrice,
			GuestCount: l.GuestCount,
			Quantity:   l.Quantity,
			LineTotal:  l.TotalPrice,
		}
	}

	if err := s.orders.Create(ctx, o, consumed); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// offerings fetches the offerings referenced by requested in one batch.
func (s *Service) offerings(ctx context.Context, requested []LineRequest) (map[string]catalog.Offering, error) {
	ids := make([]string, len(requested))
	for i, r := range requested {
		ids[i] = r.OfferingID
	}
	fetched, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get offerings")
	}
	byID := make(map[string]catalog.Offering, len(fetched))
	for _, o := range fetched {
		byID[o.ID] = o
	}
	return byID, nil
}

// available drops cart items whose offering is missing from byID.
// requested and items are parallel.
func available(requested []LineRequest, items []cart.Item, byID map[string]catalog.Offering) ([]LineRequest, []cart.Item) {
	var (
		keptReq   []LineRequest
		keptItems []cart.Item
	)
	for i, r := range requested {
		if _, ok := byID[r.OfferingID]; !ok {
			continue
		}
		keptReq = append(keptReq, r)
		keptItems = append(keptItems, items[i])
	}
	return keptReq, keptItems
}

// price builds validated lines in request order.
func price(requested []LineRequest, byID map[string]catalog.Offering) ([]clientcart.Line, []catalog.Offering, error) {
	lines := make([]clientcart.Line, len(requested))
	offerings := make([]catalog.Offering, len(requested))
	for i, r := range requested {
		o, ok := byID[r.OfferingID]
		if !ok {
			return nil, nil, &OfferingNotFoundError{OfferingID: r.OfferingID}
		}
		l, err := clientcart.NewLine(o.CartOffering(), r.GuestCount, r.Quantity)
		if err != nil {
			return nil, nil, err
		}
		lines[i] = l
		offerings[i] = o
	}
	return lines, offerings, nil
}

// History returns the user's orders, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.List(ctx, ListFilter{UserID: userID})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// List returns orders matching f, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// UpdateStatus sets the order status. No transition rules apply.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*Order, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, id, st, s.now()); err != nil {
		return nil, err
	}
	return s.orders.Get(ctx, id)
}

// Delete removes an order and its items.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.orders.Delete(ctx, id)
}

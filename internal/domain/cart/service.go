package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/catering-kart/internal/domain/catalog"
	clientcart "github.com/xenking/catering-kart/pkg/kartclient/cart"
)

// ErrItemNotFound is returned when a server-held cart item does not exist
// or belongs to another user.
var ErrItemNotFound = errors.New("cart item not found")

// Item is a persisted line of an authenticated user's server-held cart.
// Prices are not stored; they are read from the catalog on every listing.
type Item struct {
	ID         string
	UserID     string
	OfferingID string
	GuestCount int
	Quantity   int
	CreatedAt  time.Time
}

// Repository persists server-held carts.
type Repository interface {
	ListItems(ctx context.Context, userID string) ([]Item, error)
	GetItem(ctx context.Context, userID, itemID string) (*Item, error)
	SaveItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, userID, itemID string) error
	ClearItems(ctx context.Context, userID string) error
}

// Service manages the server-held cart of an authenticated user. It applies
// the same merge and validation rules as the client cart.Store.
type Service struct {
	items   Repository
	catalog catalog.Repository
	now     func() time.Time
	newID   func() string
}

// NewService creates a cart Service.
func NewService(items Repository, offerings catalog.Repository) *Service {
	return &Service{
		items:   items,
		catalog: offerings,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// List returns the user's cart lines priced from the current catalog.
// Items whose offering was removed from the catalog are skipped.
func (s *Service) List(ctx context.Context, userID string) ([]clientcart.Line, error) {
	items, err := s.items.ListItems(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	if len(items) == 0 {
		return []clientcart.Line{}, nil
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.OfferingID
	}
	offerings, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get offerings")
	}
	byID := make(map[string]catalog.Offering, len(offerings))
	for _, o := range offerings {
		byID[o.ID] = o
	}

	lines := make([]clientcart.Line, 0, len(items))
	for _, it := range items {
		o, ok := byID[it.OfferingID]
		if !ok {
			continue
		}
		l := clientcart.Line{
			ID:         it.ID,
			OfferingID: o.ID,
			Name:       o.Name,
			UnitPrice:  o.Price,
			GuestCount: it.GuestCount,
			Quantity:   it.Quantity,
			GuestTiers: o.GuestTiers,
			Custom:     o.Custom,
		}
		l.Recompute()
		lines = append(lines, l)
	}
	return lines, nil
}

// Add puts an offering into the user's cart, merging with the first item
// that already references it.
func (s *Service) Add(ctx context.Context, userID, offeringID string, guestCount, quantity int) (*Item, error) {
	o, err := s.catalog.GetByID(ctx, offeringID)
	if err != nil {
		return nil, errors.Wrapf(err, "get offering %s", offeringID)
	}
	if _, err := clientcart.NewLine(o.CartOffering(), guestCount, quantity); err != nil {
		return nil, err
	}

	items, err := s.items.ListItems(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	for _, it := range items {
		if it.OfferingID == offeringID {
			if err := clientcart.CheckQuantity(offeringID, it.GuestCount, it.Quantity+quantity); err != nil {
				return nil, err
			}
			it.Quantity += quantity
			if err := s.items.SaveItem(ctx, &it); err != nil {
				return nil, errors.Wrap(err, "save cart item")
			}
			return &it, nil
		}
	}

	it := &Item{
		ID:         s.newID(),
		UserID:     userID,
		OfferingID: offeringID,
		GuestCount: guestCount,
		Quantity:   quantity,
		CreatedAt:  s.now(),
	}
	if err := s.items.SaveItem(ctx, it); err != nil {
		return nil, errors.Wrap(err, "save cart item")
	}
	return it, nil
}

// Update merges p into the user's cart item.
func (s *Service) Update(ctx context.Context, userID, itemID string, p clientcart.Patch) (*Item, error) {
	it, err := s.items.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.GuestCount != nil {
		o, err := s.catalog.GetByID(ctx, it.OfferingID)
		if err != nil {
			return nil, errors.Wrapf(err, "get offering %s", it.OfferingID)
		}
		if err := clientcart.CheckGuests(o.CartOffering(), *p.GuestCount); err != nil {
			return nil, err
		}
		it.GuestCount = *p.GuestCount
	}
	if err := clientcart.CheckQuantity(it.OfferingID, it.GuestCount, it.Quantity); err != nil {
		return nil, err
	}
	if err := s.items.SaveItem(ctx, it); err != nil {
		return nil, errors.Wrap(err, "save cart item")
	}
	return it, nil
}

// Remove deletes the user's cart item; an absent item is not an error.
func (s *Service) Remove(ctx context.Context, userID, itemID string) error {
	if err := s.items.DeleteItem(ctx, userID, itemID); err != nil {
		return errors.Wrap(err, "delete cart item")
	}
	return nil
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.items.ClearItems(ctx, userID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

package cart

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// MaxServings bounds guests × quantity on a single line.
const MaxServings = 10000

// GuestCountError indicates a guest count the offering does not permit.
type GuestCountError struct {
	OfferingID string
	GuestCount int
	Allowed    []int
}

func (e *GuestCountError) Error() string {
	return fmt.Sprintf("guest count %d not allowed for offering %s (allowed: %v)", e.GuestCount, e.OfferingID, e.Allowed)
}

// QuantityError indicates a non-positive line quantity.
type QuantityError struct {
	OfferingID string
	Quantity   int
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for offering %s, got %d", e.OfferingID, e.Quantity)
}

// ServingsError indicates a line above MaxServings.
type ServingsError struct {
	OfferingID string
	GuestCount int
	Quantity   int
}

func (e *ServingsError) Error() string {
	return fmt.Sprintf("offering %s: %d guests × %d exceeds %d servings per line",
		e.OfferingID, e.GuestCount, e.Quantity, MaxServings)
}

// Offering is the part of a meal plan a cart line needs.
type Offering struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	GuestTiers []int
	// Custom offerings accept any positive guest count.
	Custom bool
}

// AllowsGuests reports whether n is a permitted guest count for the offering.
func (o Offering) AllowsGuests(n int) bool {
	if n < 1 {
		return false
	}
	if o.Custom {
		return true
	}
	return slices.Contains(o.GuestTiers, n)
}

// Line is one offering selection. TotalPrice is derived and recomputed on
// every change; it never drifts from UnitPrice × GuestCount × Quantity.
type Line struct {
	ID         string          `json:"id"`
	OfferingID string          `json:"offering_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	GuestCount int             `json:"guest_count"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	GuestTiers []int           `json:"guest_tiers,omitempty"`
	Custom     bool            `json:"custom,omitempty"`
}

// NewLine builds a validated line for the offering. The line ID is the
// offering ID.
func NewLine(o Offering, guestCount, quantity int) (Line, error) {
	if err := CheckGuests(o, guestCount); err != nil {
		return Line{}, err
	}
	if err := CheckQuantity(o.ID, guestCount, quantity); err != nil {
		return Line{}, err
	}
	l := Line{
		ID:         o.ID,
		OfferingID: o.ID,
		Name:       o.Name,
		UnitPrice:  o.Price,
		GuestCount: guestCount,
		Quantity:   quantity,
		GuestTiers: o.GuestTiers,
		Custom:     o.Custom,
	}
	l.Recompute()
	return l, nil
}

// CheckGuests returns a *GuestCountError when n is not permitted by o.
func CheckGuests(o Offering, n int) error {
	if !o.AllowsGuests(n) {
		return &GuestCountError{OfferingID: o.ID, GuestCount: n, Allowed: o.GuestTiers}
	}
	return nil
}

// CheckQuantity returns a *QuantityError for a non-positive quantity and a
// *ServingsError when guestCount × quantity exceeds MaxServings.
func CheckQuantity(offeringID string, guestCount, quantity int) error {
	if quantity < 1 {
		return &QuantityError{OfferingID: offeringID, Quantity: quantity}
	}
	if guestCount > MaxServings/quantity {
		return &ServingsError{OfferingID: offeringID, GuestCount: guestCount, Quantity: quantity}
	}
	return nil
}

// LineTotal is unitPrice × guestCount × quantity.
func LineTotal(unitPrice decimal.Decimal, guestCount, quantity int) decimal.Decimal {
	return unitPrice.
		Mul(decimal.NewFromInt(int64(guestCount))).
		Mul(decimal.NewFromInt(int64(quantity)))
}

// Recompute refreshes TotalPrice from the current price and counts.
func (l *Line) Recompute() {
	l.TotalPrice = LineTotal(l.UnitPrice, l.GuestCount, l.Quantity)
}

func (l *Line) offering() Offering {
	return Offering{ID: l.OfferingID, GuestTiers: l.GuestTiers, Custom: l.Custom}
}

package catalog

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/catering-kart/pkg/kartclient/cart"
)

// MaxPrice is the highest per-guest price an offering may carry.
var MaxPrice = decimal.NewFromInt(100000)

// Sentinel errors for catalog persistence.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// DietType classifies an offering's menu.
type DietType string

const (
	DietVeg    DietType = "veg"
	DietNonVeg DietType = "non-veg"
	DietBoth   DietType = "both"
)

// Valid reports whether t is a known diet type.
func (t DietType) Valid() bool {
	switch t {
	case DietVeg, DietNonVeg, DietBoth:
		return true
	}
	return false
}

// Well-known occasion tags.
const (
	OccasionCorporate  = "corporate"
	OccasionBirthday   = "birthday"
	OccasionWedding    = "wedding"
	OccasionHouseParty = "houseParty"
	OccasionPooja      = "pooja"
	OccasionOther      = "other"
)

// Occasion groups offerings and orders.
type Occasion struct {
	ID          string
	Name        string
	Description string
	Image       string
	SortOrder   int
}

// Offering is a purchasable meal plan. It is read-only to the cart.
type Offering struct {
	ID          string
	Name        string
	Description string
	Occasion    string
	Price       decimal.Decimal
	Type        DietType
	Items       []ItemCategory
	GuestTiers  []int
	Recommended bool
	Popular     bool
	// Custom offerings accept any positive guest count.
	Custom bool
	Image  string
}

// AllowsGuests reports whether n is a permitted guest count for the offering.
func (o Offering) AllowsGuests(n int) bool {
	return o.CartOffering().AllowsGuests(n)
}

// CartOffering is the view of o a cart line is built from.
func (o Offering) CartOffering() cart.Offering {
	return cart.Offering{
		ID:         o.ID,
		Name:       o.Name,
		Price:      o.Price,
		GuestTiers: o.GuestTiers,
		Custom:     o.Custom,
	}
}

// NormalizeTiers returns the positive tiers of in, sorted and deduplicated.
func NormalizeTiers(in []int) []int {
	out := make([]int, 0, len(in))
	for _, n := range in {
		if n > 0 {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Filter narrows an offering listing. Zero values match everything.
type Filter struct {
	Occasion string
	Type     DietType
}

// Repository defines persistence for the catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Offering, error)
	GetByID(ctx context.Context, id string) (*Offering, error)
	GetByIDs(ctx context.Context, ids []string) ([]Offering, error)
	Create(ctx context.Context, o *Offering) error
	Update(ctx context.Context, o *Offering) error
	Delete(ctx context.Context, id string) error
}

// OccasionRepository defines persistence for occasions.
type OccasionRepository interface {
	ListOccasions(ctx context.Context) ([]Occasion, error)
	CreateOccasion(ctx context.Context, o *Occasion) error
	UpdateOccasion(ctx context.Context, o *Occasion) error
	DeleteOccasion(ctx context.Context, id string) error
}

// ValidationError reports an invalid offering or occasion field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Normalize trims text fields, normalizes tiers and items, and validates
// the offering before it is stored.
func (o *Offering) Normalize() error {
	o.Name = strings.TrimSpace(o.Name)
	o.Occasion = strings.TrimSpace(o.Occasion)
	if o.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if o.Occasion == "" {
		return &ValidationError{Field: "occasion", Reason: "required"}
	}
	if !o.Price.IsPositive() {
		return &ValidationError{Field: "price", Reason: "must be positive"}
	}
	if o.Price.GreaterThan(MaxPrice) {
		return &ValidationError{Field: "price", Reason: "must not exceed " + MaxPrice.String()}
	}
	if o.Type == "" {
		o.Type = DietVeg
	}
	if !o.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be one of veg, non-veg, both"}
	}
	o.GuestTiers = NormalizeTiers(o.GuestTiers)
	if len(o.GuestTiers) == 0 && !o.Custom {
		return &ValidationError{Field: "guest_tiers", Reason: "at least one tier is required unless the plan is custom"}
	}
	o.Items = MergeCategories(o.Items)
	return nil
}

// Normalize trims and validates an occasion.
func (o *Occasion) Normalize() error {
	o.ID = strings.TrimSpace(o.ID)
	o.Name = strings.TrimSpace(o.Name)
	if o.ID == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	if o.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	return nil
}

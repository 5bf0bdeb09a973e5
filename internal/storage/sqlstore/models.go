package sqlstore

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/catering-kart/internal/domain/auth"
	"github.com/xenking/catering-kart/internal/domain/cart"
	"github.com/xenking/catering-kart/internal/domain/catalog"
	"github.com/xenking/catering-kart/internal/domain/order"
)

type userModel struct {
	ID           string    `gorm:"primaryKey;size:36"`
	FullName     string    `gorm:"size:255;not null"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	Phone        string    `gorm:"size:32"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:16;not null;default:user;index"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

type sessionModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;index"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (sessionModel) TableName() string { return "sessions" }

type occasionModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Image       string `gorm:"size:512"`
	SortOrder   int    `gorm:"not null;default:0"`
}

func (occasionModel) TableName() string { return "occasions" }

type mealPlanModel struct {
	ID          string          `gorm:"primaryKey;size:64"`
	Name        string          `gorm:"size:255;not null"`
	Description string          `gorm:"type:text"`
	Occasion    string          `gorm:"size:64;not null;index"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Type        string          `gorm:"size:16;not null;default:veg"`
	Items       string          `gorm:"type:text"`
	GuestTiers  string          `gorm:"type:text"`
	Recommended bool            `gorm:"not null;default:false"`
	Popular     bool            `gorm:"not null;default:false"`
	Custom      bool            `gorm:"not null;default:false"`
	Image       string          `gorm:"size:512"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (mealPlanModel) TableName() string { return "meal_plans" }

type cartItemModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     string    `gorm:"size:36;not null;index"`
	OfferingID string    `gorm:"size:64;not null"`
	GuestCount int       `gorm:"not null"`
	Quantity   int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (cartItemModel) TableName() string { return "cart_items" }

type orderModel struct {
	ID              string `gorm:"primaryKey;size:36"`
	UserID          string `gorm:"size:36;not null;index"`
	Occasion        string `gorm:"size:64;index"`
	DeliveryAddress string `gorm:"type:text;not null"`
	Phone           string `gorm:"size:32;not null"`
	Instructions    string `gorm:"type:text"`
	PaymentMethod   string `gorm:"size:16;not null"`
	EventDate       *time.Time
	Subtotal        decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	DeliveryFee     decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	Tax             decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Total           decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Status          string           `gorm:"size:16;not null;index"`
	CreatedAt       time.Time        `gorm:"not null;index"`
	UpdatedAt       time.Time        `gorm:"not null"`
	Items           []orderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	OrderID    string          `gorm:"size:36;not null;index"`
	Position   int             `gorm:"not null"`
	OfferingID string          `gorm:"size:64;not null;index"`
	Name       string          `gorm:"size:255;not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	GuestCount int             `gorm:"not null"`
	Quantity   int             `gorm:"not null"`
	LineTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (orderItemModel) TableName() string { return "order_items" }

// allModels lists every table in creation order.
var allModels = []any{
	&userModel{},
	&sessionModel{},
	&occasionModel{},
	&mealPlanModel{},
	&cartItemModel{},
	&orderModel{},
	&orderItemModel{},
}

// --- conversions ---

func (m userModel) toDomain() *auth.User {
	return &auth.User{
		ID:           m.ID,
		FullName:     m.FullName,
		Email:        m.Email,
		Phone:        m.Phone,
		PasswordHash: m.PasswordHash,
		Role:         auth.Role(m.Role),
		CreatedAt:    m.CreatedAt,
	}
}

func fromUser(u *auth.User) userModel {
	return userModel{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt.UTC(),
	}
}

func (m sessionModel) toDomain() *auth.Session {
	return &auth.Session{
		ID:        m.ID,
		UserID:    m.UserID,
		TokenHash: m.TokenHash,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func (m occasionModel) toDomain() catalog.Occasion {
	return catalog.Occasion{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Image:       m.Image,
		SortOrder:   m.SortOrder,
	}
}

func fromOccasion(o *catalog.Occasion) occasionModel {
	return occasionModel{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		Image:       o.Image,
		SortOrder:   o.SortOrder,
	}
}

// toDomain normalizes the stored items and tiers. Rows written by older
// front ends may hold any supported items shape.
func (m mealPlanModel) toDomain() (catalog.Offering, error) {
	items, err := catalog.ParseItems([]byte(m.Items))
	if err != nil {
		return catalog.Offering{}, err
	}
	return catalog.Offering{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Occasion:    m.Occasion,
		Price:       m.Price,
		Type:        catalog.DietType(m.Type),
		Items:       items,
		GuestTiers:  parseTiers(m.GuestTiers),
		Recommended: m.Recommended,
		Popular:     m.Popular,
		Custom:      m.Custom,
		Image:       m.Image,
	}, nil
}

func fromOffering(o *catalog.Offering) mealPlanModel {
	tiers, _ := json.Marshal(nonNilInts(o.GuestTiers))
	return mealPlanModel{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		Occasion:    o.Occasion,
		Price:       o.Price,
		Type:        string(o.Type),
		Items:       string(catalog.MustEncodeItems(o.Items)),
		GuestTiers:  string(tiers),
		Recommended: o.Recommended,
		Popular:     o.Popular,
		Custom:      o.Custom,
		Image:       o.Image,
	}
}

// parseTiers accepts a JSON number list or a comma-separated string.
// Unparseable entries are skipped.
func parseTiers(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var tiers []int
	if err := json.Unmarshal([]byte(raw), &tiers); err == nil {
		return catalog.NormalizeTiers(tiers)
	}
	raw = strings.Trim(raw, "[]")
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(part), `"`))
		if err == nil {
			tiers = append(tiers, n)
		}
	}
	return catalog.NormalizeTiers(tiers)
}

func nonNilInts(in []int) []int {
	if in == nil {
		return []int{}
	}
	return in
}

func (m cartItemModel) toDomain() cart.Item {
	return cart.Item{
		ID:         m.ID,
		UserID:     m.UserID,
		OfferingID: m.OfferingID,
		GuestCount: m.GuestCount,
		Quantity:   m.Quantity,
		CreatedAt:  m.CreatedAt,
	}
}

func fromCartItem(it *cart.Item) cartItemModel {
	return cartItemModel{
		ID:         it.ID,
		UserID:     it.UserID,
		OfferingID: it.OfferingID,
		GuestCount: it.GuestCount,
		Quantity:   it.Quantity,
		CreatedAt:  it.CreatedAt.UTC(),
	}
}

func (m orderModel) toDomain() order.Order {
	o := order.Order{
		ID:              m.ID,
		UserID:          m.UserID,
		Occasion:        m.Occasion,
		DeliveryAddress: m.DeliveryAddress,
		Phone:           m.Phone,
		Instructions:    m.Instructions,
		PaymentMethod:   order.PaymentMethod(m.PaymentMethod),
		EventDate:       m.EventDate,
		Items:           make([]order.Item, len(m.Items)),
		Subtotal:        m.Subtotal,
		DeliveryFee:     m.DeliveryFee,
		Tax:             m.Tax,
		Total:           m.Total,
		Status:          order.Status(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	for i, it := range m.Items {
		o.Items[i] = order.Item{
			OfferingID: it.OfferingID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			GuestCount: it.GuestCount,
			Quantity:   it.Quantity,
			LineTotal:  it.LineTotal,
		}
	}
	return o
}

func fromOrder(o *order.Order) orderModel {
	m := orderModel{
		ID:              o.ID,
		UserID:          o.UserID,
		Occasion:        o.Occasion,
		DeliveryAddress: o.DeliveryAddress,
		Phone:           o.Phone,
		Instructions:    o.Instructions,
		PaymentMethod:   string(o.PaymentMethod),
		EventDate:       o.EventDate,
		Subtotal:        o.Subtotal,
		DeliveryFee:     o.DeliveryFee,
		Tax:             o.Tax,
		Total:           o.Total,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
		Items:           make([]orderItemModel, len(o.Items)),
	}
	for i, it := range o.Items {
		m.Items[i] = orderItemModel{
			OrderID:    o.ID,
			Position:   i,
			OfferingID: it.OfferingID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			GuestCount: it.GuestCount,
			Quantity:   it.Quantity,
			LineTotal:  it.LineTotal,
		}
	}
	return m
}

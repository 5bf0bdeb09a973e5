package handler

import (
	"time"

	"github.com/xenking/catering-kart/internal/domain/admin"
	"github.com/xenking/catering-kart/pkg/kartclient/cart"
	"github.com/xenking/catering-kart/internal/domain/catalog"
	"github.com/xenking/catering-kart/internal/domain/order"
)

// Monetary amounts leave the API as JSON numbers; the front end formats
// them. They are exact decimals everywhere before this point.

type mealDTO struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Occasion    string                 `json:"occasion"`
	Price       float64                `json:"price"`
	Type        catalog.DietType       `json:"type"`
	Items       []catalog.ItemCategory `json:"items"`
	GuestTiers  []int                  `json:"guest_tiers"`
	Recommended bool                   `json:"recommended"`
	Popular     bool                   `json:"popular"`
	Custom      bool                   `json:"custom"`
	Image       string                 `json:"image,omitempty"`
}

func toMeal(o catalog.Offering) mealDTO {
	d := mealDTO{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		Occasion:    o.Occasion,
		Price:       o.Price.InexactFloat64(),
		Type:        o.Type,
		Items:       o.Items,
		GuestTiers:  o.GuestTiers,
		Recommended: o.Recommended,
		Popular:     o.Popular,
		Custom:      o.Custom,
		Image:       o.Image,
	}
	if d.Items == nil {
		d.Items = []catalog.ItemCategory{}
	}
	if d.GuestTiers == nil {
		d.GuestTiers = []int{}
	}
	return d
}

func toMeals(in []catalog.Offering) []mealDTO {
	out := make([]mealDTO, len(in))
	for i, o := range in {
		out[i] = toMeal(o)
	}
	return out
}

type occasionDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SortOrder   int    `json:"sort_order"`
}

func toOccasion(o catalog.Occasion) occasionDTO {
	return occasionDTO(o)
}

type cartLineDTO struct {
	ID         string  `json:"id"`
	OfferingID string  `json:"offering_id"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	GuestCount int     `json:"guest_count"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
	GuestTiers []int   `json:"guest_tiers,omitempty"`
	Custom     bool    `json:"custom,omitempty"`
}

type cartDTO struct {
	Items    []cartLineDTO `json:"items"`
	Count    int           `json:"count"`
	Subtotal float64       `json:"subtotal"`
}

func toCart(lines []cart.Line) cartDTO {
	q := order.QuoteLines(lines)
	d := cartDTO{Items: make([]cartLineDTO, len(lines)), Subtotal: q.Subtotal.InexactFloat64()}
	for i, l := range lines {
		d.Items[i] = cartLineDTO{
			ID:         l.ID,
			OfferingID: l.OfferingID,
			Name:       l.Name,
			UnitPrice:  l.UnitPrice.InexactFloat64(),
			GuestCount: l.GuestCount,
			Quantity:   l.Quantity,
			TotalPrice: l.TotalPrice.InexactFloat64(),
			GuestTiers: l.GuestTiers,
			Custom:     l.Custom,
		}
		d.Count += l.Quantity
	}
	return d
}

type orderItemDTO struct {
	OfferingID string  `json:"offering_id"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	GuestCount int     `json:"guest_count"`
	Quantity   int     `json:"quantity"`
	LineTotal  float64 `json:"line_total"`
}

type orderDTO struct {
	ID              string              `json:"id"`
	OrderID         string              `json:"order_id"`
	UserID          string              `json:"user_id"`
	Occasion        string              `json:"occasion,omitempty"`
	DeliveryAddress string              `json:"delivery_address"`
	Phone           string              `json:"phone"`
	Instructions    string              `json:"instructions,omitempty"`
	PaymentMethod   order.PaymentMethod `json:"payment_method"`
	EventDate       string              `json:"event_date,omitempty"`
	Items           []orderItemDTO      `json:"items"`
	Subtotal        float64             `json:"subtotal"`
	DeliveryFee     float64             `json:"delivery_fee"`
	Tax             float64             `json:"tax"`
	Total           float64             `json:"total"`
	Status          order.Status        `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

const dateLayout = "2006-01-02"

func toOrder(o order.Order) orderDTO {
	d := orderDTO{
		ID:              o.ID,
		OrderID:         o.ID,
		UserID:          o.UserID,
		Occasion:        o.Occasion,
		DeliveryAddress: o.DeliveryAddress,
		Phone:           o.Phone,
		Instructions:    o.Instructions,
		PaymentMethod:   o.PaymentMethod,
		Items:           make([]orderItemDTO, len(o.Items)),
		Subtotal:        o.Subtotal.InexactFloat64(),
		DeliveryFee:     o.DeliveryFee.InexactFloat64(),
		Tax:             o.Tax.InexactFloat64(),
		Total:           o.Total.InexactFloat64(),
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.EventDate != nil {
		d.EventDate = o.EventDate.Format(dateLayout)
	}
	for i, it := range o.Items {
		d.Items[i] = orderItemDTO{
			OfferingID: it.OfferingID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice.InexactFloat64(),
			GuestCount: it.GuestCount,
			Quantity:   it.Quantity,
			LineTotal:  it.LineTotal.InexactFloat64(),
		}
	}
	return d
}

func toOrders(in []order.Order) []orderDTO {
	out := make([]orderDTO, len(in))
	for i, o := range in {
		out[i] = toOrder(o)
	}
	return out
}

type dashboardDTO struct {
	TotalOrders   int64      `json:"total_orders"`
	PendingOrders int64      `json:"pending_orders"`
	TotalRevenue  float64    `json:"total_revenue"`
	Customers     int64      `json:"total_customers"`
	MealPlans     int64      `json:"total_meals"`
	RecentOrders  []orderDTO `json:"recent_orders"`
}

func toDashboard(d *admin.Dashboard) dashboardDTO {
	return dashboardDTO{
		TotalOrders:   d.Orders,
		PendingOrders: d.PendingOrders,
		TotalRevenue:  d.Revenue.InexactFloat64(),
		Customers:     d.Customers,
		MealPlans:     d.MealPlans,
		RecentOrders:  toOrders(d.RecentOrders),
	}
}

type occasionStatDTO struct {
	Occasion string  `json:"occasion"`
	Orders   int64   `json:"orders"`
	Revenue  float64 `json:"revenue"`
}

type statusCountDTO struct {
	Status order.Status `json:"status"`
	Orders int64        `json:"orders"`
}

type topMealDTO struct {
	OfferingID string  `json:"offering_id"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

type dailyRevenueDTO struct {
	Date    string  `json:"date"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type analyticsDTO struct {
	ByOccasion   []occasionStatDTO `json:"revenue_by_occasion"`
	ByStatus     []statusCountDTO  `json:"orders_by_status"`
	TopMeals     []topMealDTO      `json:"top_meals"`
	DailyRevenue []dailyRevenueDTO `json:"daily_revenue"`
}

func toAnalytics(a *admin.Analytics) analyticsDTO {
	d := analyticsDTO{
		ByOccasion:   make([]occasionStatDTO, len(a.ByOccasion)),
		ByStatus:     make([]statusCountDTO, len(a.ByStatus)),
		TopMeals:     make([]topMealDTO, len(a.TopOfferings)),
		DailyRevenue: make([]dailyRevenueDTO, len(a.Daily)),
	}
	for i, s := range a.ByOccasion {
		d.ByOccasion[i] = occasionStatDTO{Occasion: s.Occasion, Orders: s.Orders, Revenue: s.Revenue.InexactFloat64()}
	}
	for i, s := range a.ByStatus {
		d.ByStatus[i] = statusCountDTO(s)
	}
	for i, t := range a.TopOfferings {
		d.TopMeals[i] = topMealDTO{OfferingID: t.OfferingID, Name: t.Name, Quantity: t.Quantity, Revenue: t.Revenue.InexactFloat64()}
	}
	for i, day := range a.Daily {
		d.DailyRevenue[i] = dailyRevenueDTO{Date: day.Day.Format(dateLayout), Orders: day.Orders, Revenue: day.Revenue.InexactFloat64()}
	}
	return d
}

type customerDTO struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
	Orders     int64     `json:"total_orders"`
	TotalSpent float64   `json:"total_spent"`
}

func toCustomers(in []admin.Customer) []customerDTO {
	out := make([]customerDTO, len(in))
	for i, c := range in {
		out[i] = customerDTO{
			ID:         c.ID,
			FullName:   c.FullName,
			Email:      c.Email,
			Phone:      c.Phone,
			CreatedAt:  c.CreatedAt,
			Orders:     c.Orders,
			TotalSpent: c.Spent.InexactFloat64(),
		}
	}
	return out
}

package admin

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/catering-kart/internal/domain/order"
)

// Totals are the headline dashboard figures. Revenue excludes cancelled
// orders.
type Totals struct {
	Orders        int64
	PendingOrders int64
	Revenue       decimal.Decimal
	Customers     int64
	MealPlans     int64
}

// Dashboard is the admin landing view.
type Dashboard struct {
	Totals
	RecentOrders []order.Order
}

// OccasionStat aggregates non-cancelled orders of one occasion.
type OccasionStat struct {
	Occasion string
	Orders   int64
	Revenue  decimal.Decimal
}

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status order.Status
	Orders int64
}

// TopOffering ranks an offering by ordered quantity.
type TopOffering struct {
	OfferingID string
	Name       string
	Quantity   int64
	Revenue    decimal.Decimal
}

// DailyRevenue is the revenue of one calendar day (UTC).
type DailyRevenue struct {
	Day     time.Time
	Orders  int64
	Revenue decimal.Decimal
}

// Analytics is the read-only aggregation view.
type Analytics struct {
	ByOccasion   []OccasionStat
	ByStatus     []StatusCount
	TopOfferings []TopOffering
	Daily        []DailyRevenue
}

// Customer is a user with role user and their order history summary.
type Customer struct {
	ID        string
	FullName  string
	Email     string
	Phone     string
	CreatedAt time.Time
	Orders    int64
	Spent     decimal.Decimal
}

// OrderTotal is the creation time and total of a non-cancelled order.
type OrderTotal struct {
	CreatedAt time.Time
	Total     decimal.Decimal
}

// Repository runs the aggregate queries behind the admin views.
type Repository interface {
	// CountOrders counts orders in status, or all orders when status is empty.
	CountOrders(ctx context.Context, status order.Status) (int64, error)
	// Revenue sums totals of non-cancelled orders.
	Revenue(ctx context.Context) (decimal.Decimal, error)
	CountCustomers(ctx context.Context) (int64, error)
	CountOfferings(ctx context.Context) (int64, error)
	RevenueByOccasion(ctx context.Context) ([]OccasionStat, error)
	OrdersByStatus(ctx context.Context) ([]StatusCount, error)
	TopOfferings(ctx context.Context, limit int) ([]TopOffering, error)
	// OrderTotalsSince lists non-cancelled orders created at or after since.
	OrderTotalsSince(ctx context.Context, since time.Time) ([]OrderTotal, error)
	Customers(ctx context.Context) ([]Customer, error)
}

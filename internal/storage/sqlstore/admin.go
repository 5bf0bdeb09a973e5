package sqlstore

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xenking/catering-kart/internal/domain/admin"
	"github.com/xenking/catering-kart/internal/domain/auth"
	"github.com/xenking/catering-kart/internal/domain/order"
)

var _ admin.Repository = (*AdminRepository)(nil)

// AdminRepository implements admin.Repository with portable aggregate SQL.
type AdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository returns an AdminRepository on the store.
func NewAdminRepository(s *Store) *AdminRepository {
	return &AdminRepository{db: s.db}
}

func (r *AdminRepository) CountOrders(ctx context.Context, status order.Status) (int64, error) {
	q := r.db.WithContext(ctx).Model(&orderModel{})
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *AdminRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var rev decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&orderModel{}).
		Select("COALESCE(SUM(total), 0)").
		Where("status <> ?", string(order.StatusCancelled)).
		Row().Scan(&rev)
	if err != nil {
		return decimal.Zero, err
	}
	return rev.Decimal, nil
}

func (r *AdminRepository) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userModel{}).Where("role = ?", string(auth.RoleUser)).Count(&n).Error
	return n, err
}

func (r *AdminRepository) CountOfferings(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&mealPlanModel{}).Count(&n).Error
	return n, err
}

type occasionStatRow struct {
	Occasion     string
	OrderCount   int64
	TotalRevenue decimal.Decimal
}

func (r *AdminRepository) RevenueByOccasion(ctx context.Context) ([]admin.OccasionStat, error) {
	var rows []occasionStatRow
	err := r.db.WithContext(ctx).Model(&orderModel{}).
		Select("occasion, COUNT(*) AS order_count, COALESCE(SUM(total), 0) AS total_revenue").
		Where("status <> ?", string(order.StatusCancelled)).
		Group("occasion").
		Order("total_revenue DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]admin.OccasionStat, len(rows))
	for i, row := range rows {
		out[i] = admin.OccasionStat{Occasion: row.Occasion, Orders: row.OrderCount, Revenue: row.TotalRevenue}
	}
	return out, nil
}

type statusCountRow struct {
	Status     string
	OrderCount int64
}

func (r *AdminRepository) OrdersByStatus(ctx context.Context) ([]admin.StatusCount, error) {
	var rows []statusCountRow
	err := r.db.WithContext(ctx).Model(&orderModel{}).
		Select("status, COUNT(*) AS order_count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]admin.StatusCount, len(rows))
	for i, row := range rows {
		out[i] = admin.StatusCount{Status: order.Status(row.Status), Orders: row.OrderCount}
	}
	return out, nil
}

type topOfferingRow struct {
	OfferingID    string
	Name          string
	TotalQuantity int64
	TotalRevenue  decimal.Decimal
}

func (r *AdminRepository) TopOfferings(ctx context.Context, limit int) ([]admin.TopOffering, error) {
	var rows []topOfferingRow
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders AS o ON o.id = oi.order_id").
		Select("oi.offering_id AS offering_id, MAX(oi.name) AS name, "+
			"SUM(oi.quantity) AS total_quantity, COALESCE(SUM(oi.line_total), 0) AS total_revenue").
		Where("o.status <> ?", string(order.StatusCancelled)).
		Group("oi.offering_id").
		Order("total_quantity DESC").Order("total_revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]admin.TopOffering, len(rows))
	for i, row := range rows {
		out[i] = admin.TopOffering{
			OfferingID: row.OfferingID,
			Name:       row.Name,
			Quantity:   row.TotalQuantity,
			Revenue:    row.TotalRevenue,
		}
	}
	return out, nil
}

type orderTotalRow struct {
	CreatedAt time.Time
	Total     decimal.Decimal
}

func (r *AdminRepository) OrderTotalsSince(ctx context.Context, since time.Time) ([]admin.OrderTotal, error) {
	var rows []orderTotalRow
	err := r.db.WithContext(ctx).Model(&orderModel{}).
		Select("created_at, total").
		Where("status <> ? AND created_at >= ?", string(order.StatusCancelled), since.UTC()).
		Order("created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]admin.OrderTotal, len(rows))
	for i, row := range rows {
		out[i] = admin.OrderTotal{CreatedAt: row.CreatedAt, Total: row.Total}
	}
	return out, nil
}

type customerRow struct {
	ID         string
	FullName   string
	Email      string
	Phone      string
	CreatedAt  time.Time
	OrderCount int64
	TotalSpent decimal.Decimal
}

const customersSQL = `SELECT u.id, u.full_name, u.email, u.phone, u.created_at,
	COUNT(o.id) AS order_count,
	COALESCE(SUM(CASE WHEN o.status <> ? THEN o.total ELSE 0 END), 0) AS total_spent
FROM users u
LEFT JOIN orders o ON o.user_id = u.id
WHERE u.role = ?
GROUP BY u.id, u.full_name, u.email, u.phone, u.created_at
ORDER BY u.created_at DESC, u.id`

func (r *AdminRepository) Customers(ctx context.Context) ([]admin.Customer, error) {
	var rows []customerRow
	err := r.db.WithContext(ctx).
		Raw(customersSQL, string(order.StatusCancelled), string(auth.RoleUser)).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query customers")
	}
	out := make([]admin.Customer, len(rows))
	for i, row := range rows {
		out[i] = admin.Customer{
			ID:        row.ID,
			FullName:  row.FullName,
			Email:     row.Email,
			Phone:     row.Phone,
			CreatedAt: row.CreatedAt,
			Orders:    row.OrderCount,
			Spent:     row.TotalSpent,
		}
	}
	return out, nil
}

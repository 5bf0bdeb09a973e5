package sqlstore

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"github.com/xenking/catering-kart/internal/domain/cart"
	"github.com/xenking/catering-kart/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository returns an OrderRepository on the store.
func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{db: s.db}
}

// Create inserts the order and its items, and removes the consumed cart
// items, in one transaction. A consumed item that is gone or was changed
// since it was read rolls everything back with order.ErrCartChanged.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, consumed []cart.Item) error {
	m := fromOrder(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return errors.Wrapf(err, "insert order %q", o.ID)
		}
		for _, it := range consumed {
			res := tx.Where("id = ? AND user_id = ? AND guest_count = ? AND quantity = ?",
				it.ID, o.UserID, it.GuestCount, it.Quantity).
				Delete(&cartItemModel{})
			if res.Error != nil {
				return errors.Wrapf(res.Error, "remove cart item %q", it.ID)
			}
			if res.RowsAffected == 0 {
				return order.ErrCartChanged
			}
		}
		return nil
	})
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var row orderModel
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return nil, errors.Wrapf(notFound(err, order.ErrNotFound), "get order %q", id)
	}
	o := row.toDomain()
	return &o, nil
}

// List returns orders matching f, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items", orderItemsByPosition)
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []orderModel
	if err := q.Order("created_at DESC").Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	out := make([]order.Order, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&orderModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return errors.Wrapf(err, "count order %q", id)
		}
		if n == 0 {
			return order.ErrNotFound
		}
		err := tx.Model(&orderModel{}).Where("id = ?", id).Updates(map[string]any{
			"status":     string(status),
			"updated_at": at.UTC(),
		}).Error
		if err != nil {
			return errors.Wrapf(err, "update order %q", id)
		}
		return nil
	})
}

// Delete removes the order and its items.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&orderItemModel{}).Error; err != nil {
			return errors.Wrapf(err, "delete order %q items", id)
		}
		res := tx.Where("id = ?", id).Delete(&orderModel{})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete order %q", id)
		}
		if res.RowsAffected == 0 {
			return order.ErrNotFound
		}
		return nil
	})
}

func orderItemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

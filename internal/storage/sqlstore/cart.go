package sqlstore

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"github.com/xenking/catering-kart/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository.
type CartRepository struct {
	db *gorm.DB
}

// NewCartRepository returns a CartRepository on the store.
func NewCartRepository(s *Store) *CartRepository {
	return &CartRepository{db: s.db}
}

// ListItems returns the user's items in insertion order.
func (r *CartRepository) ListItems(ctx context.Context, userID string) ([]cart.Item, error) {
	var rows []cartItemModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	out := make([]cart.Item, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *CartRepository) GetItem(ctx context.Context, userID, itemID string) (*cart.Item, error) {
	var row cartItemModel
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Take(&row).Error
	if err != nil {
		return nil, errors.Wrapf(notFound(err, cart.ErrItemNotFound), "get cart item %q", itemID)
	}
	it := row.toDomain()
	return &it, nil
}

// SaveItem inserts or updates an item by ID.
func (r *CartRepository) SaveItem(ctx context.Context, item *cart.Item) error {
	m := fromCartItem(item)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return errors.Wrapf(err, "save cart item %q", item.ID)
	}
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, userID, itemID string) error {
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&cartItemModel{}).Error
	if err != nil {
		return errors.Wrapf(err, "delete cart item %q", itemID)
	}
	return nil
}

func (r *CartRepository) ClearItems(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&cartItemModel{}).Error; err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

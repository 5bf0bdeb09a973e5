package sqlstore

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xenking/catering-kart/internal/domain/catalog"
)

var (
	_ catalog.Repository         = (*CatalogRepository)(nil)
	_ catalog.OccasionRepository = (*CatalogRepository)(nil)
)

// CatalogRepository implements catalog.Repository and
// catalog.OccasionRepository.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository returns a CatalogRepository on the store.
func NewCatalogRepository(s *Store) *CatalogRepository {
	return &CatalogRepository{db: s.db}
}

// List returns offerings matching f ordered by occasion and name. A veg or
// non-veg type filter also matches offerings of type both.
func (r *CatalogRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Offering, error) {
	q := r.db.WithContext(ctx).Model(&mealPlanModel{})
	if f.Occasion != "" {
		q = q.Where("occasion = ?", f.Occasion)
	}
	switch f.Type {
	case "":
	case catalog.DietBoth:
		q = q.Where("type = ?", f.Type)
	default:
		q = q.Where("type IN ?", []string{string(f.Type), string(catalog.DietBoth)})
	}

	var rows []mealPlanModel
	if err := q.Order("occasion").Order("name").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list meal plans")
	}
	return toOfferings(rows)
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Offering, error) {
	var row mealPlanModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, errors.Wrapf(notFound(err, catalog.ErrNotFound), "get meal plan %q", id)
	}
	o, err := row.toDomain()
	if err != nil {
		return nil, errors.Wrapf(err, "decode meal plan %q", id)
	}
	return &o, nil
}

// GetByIDs fetches offerings in one query. Unknown IDs are skipped.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Offering, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []mealPlanModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "get meal plans")
	}
	return toOfferings(rows)
}

func (r *CatalogRepository) Create(ctx context.Context, o *catalog.Offering) error {
	m := fromOffering(o)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Wrapf(catalog.ErrConflict, "meal plan %q", o.ID)
		}
		return errors.Wrapf(err, "create meal plan %q", o.ID)
	}
	return nil
}

func (r *CatalogRepository) Update(ctx context.Context, o *catalog.Offering) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing mealPlanModel
		if err := tx.Where("id = ?", o.ID).Take(&existing).Error; err != nil {
			return errors.Wrapf(notFound(err, catalog.ErrNotFound), "get meal plan %q", o.ID)
		}
		m := fromOffering(o)
		m.CreatedAt = existing.CreatedAt
		if err := tx.Save(&m).Error; err != nil {
			return errors.Wrapf(err, "update meal plan %q", o.ID)
		}
		return nil
	})
}

// Delete removes the meal plan and any cart items still pointing at it.
func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&mealPlanModel{})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete meal plan %q", id)
		}
		if res.RowsAffected == 0 {
			return catalog.ErrNotFound
		}
		if err := tx.Where("offering_id = ?", id).Delete(&cartItemModel{}).Error; err != nil {
			return errors.Wrapf(err, "delete cart items for %q", id)
		}
		return nil
	})
}

// UpsertOffering inserts or fully replaces an offering by ID.
func (r *CatalogRepository) UpsertOffering(ctx context.Context, o *catalog.Offering) error {
	m := fromOffering(o)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(mealPlanColumns),
		}).
		Create(&m).Error
	if err != nil {
		return errors.Wrapf(err, "upsert meal plan %q", o.ID)
	}
	return nil
}

var mealPlanColumns = []string{
	"name", "description", "occasion", "price", "type", "items",
	"guest_tiers", "recommended", "popular", "custom", "image", "updated_at",
}

func toOfferings(rows []mealPlanModel) ([]catalog.Offering, error) {
	out := make([]catalog.Offering, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, errors.Wrapf(err, "decode meal plan %q", row.ID)
		}
		out = append(out, o)
	}
	return out, nil
}

// ListOccasions returns occasions ordered by sort order then name.
func (r *CatalogRepository) ListOccasions(ctx context.Context) ([]catalog.Occasion, error) {
	var rows []occasionModel
	if err := r.db.WithContext(ctx).Order("sort_order").Order("name").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list occasions")
	}
	out := make([]catalog.Occasion, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *CatalogRepository) CreateOccasion(ctx context.Context, o *catalog.Occasion) error {
	m := fromOccasion(o)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Wrapf(catalog.ErrConflict, "occasion %q", o.ID)
		}
		return errors.Wrapf(err, "create occasion %q", o.ID)
	}
	return nil
}

func (r *CatalogRepository) UpdateOccasion(ctx context.Context, o *catalog.Occasion) error {
	m := fromOccasion(o)
	res := r.db.WithContext(ctx).Model(&occasionModel{}).Where("id = ?", o.ID).
		Select("name", "description", "image", "sort_order").
		Updates(&m)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update occasion %q", o.ID)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&occasionModel{}).Where("id = ?", o.ID).Count(&n).Error; err != nil {
			return errors.Wrapf(err, "count occasion %q", o.ID)
		}
		if n == 0 {
			return catalog.ErrNotFound
		}
	}
	return nil
}

func (r *CatalogRepository) DeleteOccasion(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&occasionModel{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete occasion %q", id)
	}
	if res.RowsAffected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// UpsertOccasion inserts or replaces an occasion by ID.
func (r *CatalogRepository) UpsertOccasion(ctx context.Context, o *catalog.Occasion) error {
	m := fromOccasion(o)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "image", "sort_order"}),
		}).
		Create(&m).Error
	if err != nil {
		return errors.Wrapf(err, "upsert occasion %q", o.ID)
	}
	return nil
}

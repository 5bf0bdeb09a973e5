package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/catering-kart/db"
	"github.com/xenking/catering-kart/internal/domain/catalog"
)

type occasionJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SortOrder   int    `json:"sort_order"`
}

type mealPlanJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Occasion    string          `json:"occasion"`
	Price       decimal.Decimal `json:"price"`
	Type        string          `json:"type"`
	Items       json.RawMessage `json:"items"`
	GuestTiers  []int           `json:"guest_tiers"`
	Recommended bool            `json:"recommended"`
	Popular     bool            `json:"popular"`
	Custom      bool            `json:"custom"`
	Image       string          `json:"image"`
}

type catalogJSON struct {
	Occasions []occasionJSON `json:"occasions"`
	MealPlans []mealPlanJSON `json:"meal_plans"`
}

// seedCatalog is a validated catalog ready to upsert.
type seedCatalog struct {
	Occasions []catalog.Occasion
	Offerings []catalog.Offering
}

// readCatalog returns the embedded catalog when path is empty. Files
// ending in .gz are decompressed.
func readCatalog(path string) ([]byte, error) {
	if path == "" {
		return db.Catalog, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}
	return data, nil
}

func parseCatalog(data []byte) (*seedCatalog, error) {
	var raw catalogJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}

	out := &seedCatalog{
		Occasions: make([]catalog.Occasion, 0, len(raw.Occasions)),
		Offerings: make([]catalog.Offering, 0, len(raw.MealPlans)),
	}
	for _, o := range raw.Occasions {
		occ := catalog.Occasion(o)
		if err := occ.Normalize(); err != nil {
			return nil, errors.Wrapf(err, "occasion %q", o.ID)
		}
		out.Occasions = append(out.Occasions, occ)
	}

	seen := make(map[string]struct{}, len(raw.MealPlans))
	for _, p := range raw.MealPlans {
		if p.ID == "" {
			return nil, errors.Errorf("meal plan %q has no id", p.Name)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, errors.Errorf("duplicate meal plan id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		items, err := catalog.ParseItems(p.Items)
		if err != nil {
			return nil, errors.Wrapf(err, "meal plan %q items", p.ID)
		}
		o := catalog.Offering{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Occasion:    p.Occasion,
			Price:       p.Price,
			Type:        catalog.DietType(p.Type),
			Items:       items,
			GuestTiers:  p.GuestTiers,
			Recommended: p.Recommended,
			Popular:     p.Popular,
			Custom:      p.Custom,
			Image:       p.Image,
		}
		if err := o.Normalize(); err != nil {
			return nil, errors.Wrapf(err, "meal plan %q", p.ID)
		}
		out.Offerings = append(out.Offerings, o)
	}
	return out, nil
}

package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffering_AllowsGuests(t *testing.T) {
	tiered := Offering{ID: "m1", GuestTiers: []int{25, 50, 100}}
	custom := Offering{ID: "m2", Custom: true}

	tests := []struct {
		name     string
		offering Offering
		guests   int
		want     bool
	}{
		{"tier match", tiered, 25, true},
		{"largest tier", tiered, 100, true},
		{"between tiers", tiered, 30, false},
		{"zero", tiered, 0, false},
		{"custom any positive", custom, 37, true},
		{"custom zero", custom, 0, false},
		{"no tiers not custom", Offering{ID: "m3"}, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.offering.AllowsGuests(tt.guests))
		})
	}
}

func TestNormalizeTiers(t *testing.T) {
	assert.Equal(t, []int{10, 25, 50}, NormalizeTiers([]int{50, 25, 0, -5, 10, 25}))
	assert.Empty(t, NormalizeTiers(nil))
}

func TestDietType_Valid(t *testing.T) {
	assert.True(t, DietVeg.Valid())
	assert.True(t, DietNonVeg.Valid())
	assert.True(t, DietBoth.Valid())
	assert.False(t, DietType("vegan").Valid())
}

func TestOffering_Normalize(t *testing.T) {
	valid := func() Offering {
		return Offering{
			Name:       " Executive Lunch Box ",
			Occasion:   OccasionCorporate,
			Price:      decimal.NewFromInt(299),
			GuestTiers: []int{50, 10, 25, 10, -1},
			Items: []ItemCategory{
				{Name: "", Items: []string{"Dal", " "}},
				{Name: "Menu", Items: []string{"Rice"}},
			},
		}
	}

	o := valid()
	require.NoError(t, o.Normalize())
	assert.Equal(t, "Executive Lunch Box", o.Name)
	assert.Equal(t, DietVeg, o.Type)
	assert.Equal(t, []int{10, 25, 50}, o.GuestTiers)
	assert.Equal(t, []ItemCategory{{Name: DefaultCategory, Items: []string{"Dal", "Rice"}}}, o.Items)

	tests := []struct {
		name  string
		mod   func(o *Offering)
		field string
	}{
		{"missing name", func(o *Offering) { o.Name = "  " }, "name"},
		{"missing occasion", func(o *Offering) { o.Occasion = "" }, "occasion"},
		{"zero price", func(o *Offering) { o.Price = decimal.Zero }, "price"},
		{"price above max", func(o *Offering) { o.Price = MaxPrice.Add(decimal.NewFromInt(1)) }, "price"},
		{"unknown type", func(o *Offering) { o.Type = "vegan" }, "type"},
		{"no tiers", func(o *Offering) { o.GuestTiers = nil }, "guest_tiers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mod(&o)
			var vErr *ValidationError
			require.ErrorAs(t, o.Normalize(), &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	t.Run("custom without tiers", func(t *testing.T) {
		o := valid()
		o.GuestTiers = nil
		o.Custom = true
		require.NoError(t, o.Normalize())
	})
}

func TestOccasion_Normalize(t *testing.T) {
	o := Occasion{ID: " wedding ", Name: "Wedding"}
	require.NoError(t, o.Normalize())
	assert.Equal(t, "wedding", o.ID)

	var vErr *ValidationError
	require.ErrorAs(t, (&Occasion{ID: "x"}).Normalize(), &vErr)
	assert.Equal(t, "name", vErr.Field)
}

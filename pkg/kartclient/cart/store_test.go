package cart

import (
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executiveLunchBox() Offering {
	return Offering{
		ID:         "corp-exec-lunch",
		Name:       "Executive Lunch Box",
		Price:      decimal.NewFromInt(299),
		GuestTiers: []int{10, 25, 50, 100},
	}
}

func customPlatter() Offering {
	return Offering{
		ID:     "custom-platter",
		Name:   "Build Your Own Platter",
		Price:  decimal.RequireFromString("149.50"),
		Custom: true,
	}
}

type failingStorage struct {
	*MemoryStorage
	setErr error
}

func (f *failingStorage) Set(string, []byte) error { return f.setErr }

func persisted(t *testing.T, s Storage) []Line {
	t.Helper()
	data, ok, err := s.Get(StorageKey)
	require.NoError(t, err)
	require.True(t, ok, "cart should be persisted")
	var lines []Line
	require.NoError(t, json.Unmarshal(data, &lines))
	return lines
}

func intp(v int) *int { return &v }

func TestStore_AddSameOfferingMerges(t *testing.T) {
	storage := NewMemoryStorage()
	s := Open(storage, nil)

	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))
	assert.Equal(t, 1, s.Count())
	require.Len(t, s.Lines(), 1)
	assert.True(t, decimal.NewFromInt(7475).Equal(s.Lines()[0].TotalPrice))

	require.NoError(t, s.Add(executiveLunchBox(), 25, 2))
	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(22425).Equal(lines[0].TotalPrice),
		"expected 22425, got %s", lines[0].TotalPrice)
	assert.Equal(t, 3, s.Count())

	saved := persisted(t, storage)
	require.Len(t, saved, 1)
	assert.Equal(t, 3, saved[0].Quantity)
}

func TestStore_AddRefreshesUnitPrice(t *testing.T) {
	s := Open(NewMemoryStorage(), nil)
	o := executiveLunchBox()
	require.NoError(t, s.Add(o, 10, 1))

	o.Price = decimal.NewFromInt(320)
	require.NoError(t, s.Add(o, 10, 1))

	l := s.Lines()[0]
	assert.True(t, decimal.NewFromInt(320).Equal(l.UnitPrice))
	assert.True(t, decimal.NewFromInt(6400).Equal(l.TotalPrice))
}

func TestStore_AddPreservesInsertionOrder(t *testing.T) {
	s := Open(NewMemoryStorage(), nil)
	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))
	require.NoError(t, s.Add(customPlatter(), 7, 1))
	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "corp-exec-lunch", lines[0].ID)
	assert.Equal(t, "custom-platter", lines[1].ID)
	assert.Equal(t, 3, s.Count())
}

func TestStore_AddRejectsInvalidSelection(t *testing.T) {
	storage := NewMemoryStorage()
	s := Open(storage, nil)

	err := s.Add(executiveLunchBox(), 30, 1)
	var gcErr *GuestCountError
	require.ErrorAs(t, err, &gcErr)
	assert.Equal(t, 30, gcErr.GuestCount)

	err = s.Add(executiveLunchBox(), 25, 0)
	var qErr *QuantityError
	require.ErrorAs(t, err, &qErr)

	assert.Zero(t, s.Count())
	_, ok, _ := storage.Get(StorageKey)
	assert.False(t, ok, "rejected selections must not be persisted")
}

func TestStore_CustomOfferingAcceptsAnyGuestCount(t *testing.T) {
	s := Open(NewMemoryStorage(), nil)
	require.NoError(t, s.Add(customPlatter(), 37, 2))

	l := s.Lines()[0]
	assert.True(t, decimal.RequireFromString("11063").Equal(l.TotalPrice), "got %s", l.TotalPrice)
}

func TestStore_Update(t *testing.T) {
	storage := NewMemoryStorage()
	s := Open(storage, nil)
	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))

	require.NoError(t, s.Update("corp-exec-lunch", Patch{Quantity: intp(4)}))
	l := s.Lines()[0]
	assert.Equal(t, 4, l.Quantity)
	assert.True(t, decimal.NewFromInt(29900).Equal(l.TotalPrice))

	require.NoError(t, s.Update("corp-exec-lunch", Patch{GuestCount: intp(50)}))
	l = s.Lines()[0]
	assert.Equal(t, 50, l.GuestCount)
	assert.True(t, decimal.NewFromInt(59800).Equal(l.TotalPrice))
	assert.Equal(t, 50, persisted(t, storage)[0].GuestCount)

	t.Run("invalid guest count leaves line unchanged", func(t *testing.T) {
		err := s.Update("corp-exec-lunch", Patch{Quantity: intp(1), GuestCount: intp(33)})
		var gcErr *GuestCountError
		require.ErrorAs(t, err, &gcErr)
		assert.Equal(t, 4, s.Lines()[0].Quantity)
		assert.Equal(t, 50, s.Lines()[0].GuestCount)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		err := s.Update("corp-exec-lunch", Patch{Quantity: intp(0)})
		var qErr *QuantityError
		require.ErrorAs(t, err, &qErr)
	})

	t.Run("absent line is a no-op", func(t *testing.T) {
		before := s.Lines()
		require.NoError(t, s.Update("missing", Patch{Quantity: intp(9)}))
		assert.Equal(t, before, s.Lines())
	})
}

func TestStore_RemoveAbsentIsNoop(t *testing.T) {
	storage := NewMemoryStorage()
	s := Open(storage, nil)
	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))
	before := s.Lines()

	require.NoError(t, s.Remove("does-not-exist"))
	assert.Equal(t, before, s.Lines())

	require.NoError(t, s.Remove("corp-exec-lunch"))
	assert.Empty(t, s.Lines())
	assert.Empty(t, persisted(t, storage))
}

func TestStore_Clear(t *testing.T) {
	storage := NewMemoryStorage()
	s := Open(storage, nil)
	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))
	require.NoError(t, s.Add(customPlatter(), 3, 1))

	require.NoError(t, s.Clear())
	assert.Zero(t, s.Count())
	assert.True(t, s.Subtotal().IsZero())

	_, ok, err := storage.Get(StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_ReloadsSnapshot(t *testing.T) {
	storage := NewMemoryStorage()
	s := Open(storage, nil)
	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))
	require.NoError(t, s.Add(customPlatter(), 4, 1))

	reopened := Open(storage, nil)
	want, got := s.Lines(), reopened.Lines()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].GuestCount, got[i].GuestCount)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.True(t, want[i].UnitPrice.Equal(got[i].UnitPrice))
		assert.True(t, want[i].TotalPrice.Equal(got[i].TotalPrice))
	}
	assert.Equal(t, 2, reopened.Count())
}

func TestOpen_MalformedSnapshotYieldsEmptyCart(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(StorageKey, []byte("{not json")))

	s := Open(storage, nil)
	assert.Zero(t, s.Count())
	assert.Empty(t, s.Lines())

	// The cart is still usable afterwards.
	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))
	assert.Equal(t, 1, s.Count())
}

func TestStore_PersistFailureIsReturned(t *testing.T) {
	storage := &failingStorage{MemoryStorage: NewMemoryStorage(), setErr: errors.New("disk full")}
	s := Open(storage, nil)

	err := s.Add(executiveLunchBox(), 25, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist cart")
}

func TestStore_Subtotal(t *testing.T) {
	s := Open(NewMemoryStorage(), nil)
	require.NoError(t, s.Add(executiveLunchBox(), 25, 1))
	require.NoError(t, s.Add(customPlatter(), 2, 1))

	assert.True(t, decimal.RequireFromString("7774").Equal(s.Subtotal()), "got %s", s.Subtotal())
}

func TestStore_ServingsBound(t *testing.T) {
	storage := NewMemoryStorage()
	s := Open(storage, nil)

	var sErr *ServingsError
	require.ErrorAs(t, s.Add(customPlatter(), 1_000_000, 1), &sErr)
	assert.Equal(t, 1_000_000, sErr.GuestCount)
	assert.Zero(t, s.Count())

	require.NoError(t, s.Add(customPlatter(), 5000, 2))
	require.ErrorAs(t, s.Add(customPlatter(), 5000, 1), &sErr, "merging must respect the bound")
	assert.Equal(t, 3, sErr.Quantity)
	assert.Equal(t, 2, s.Count())

	require.ErrorAs(t, s.Update("custom-platter", Patch{Quantity: intp(3)}), &sErr)
	require.ErrorAs(t, s.Update("custom-platter", Patch{GuestCount: intp(5001)}), &sErr)
	assert.Equal(t, 5000, s.Lines()[0].GuestCount)
	assert.Equal(t, 2, persisted(t, storage)[0].Quantity)
}

func TestCheckQuantity(t *testing.T) {
	for _, tt := range []struct {
		name     string
		guests   int
		quantity int
		ok       bool
	}{
		{"AtBound", MaxServings, 1, true},
		{"SplitAtBound", MaxServings / 4, 4, true},
		{"OverBound", MaxServings/3 + 1, 3, false},
		{"Huge", 1 << 40, 1 << 20, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckQuantity("x", tt.guests, tt.quantity)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			var sErr *ServingsError
			require.ErrorAs(t, err, &sErr)
		})
	}
}

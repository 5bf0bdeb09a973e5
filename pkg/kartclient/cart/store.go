package cart

import (
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StorageKey is the fixed key the cart snapshot is persisted under.
const StorageKey = "cart"

// Storage is a durable key/value blob store, the client-side equivalent of
// browser local storage.
type Storage interface {
	// Get returns ok=false when the key is absent.
	Get(key string) (data []byte, ok bool, err error)
	Set(key string, data []byte) error
	Delete(key string) error
}

// Patch holds the fields Update merges into a line. Nil fields are kept.
type Patch struct {
	Quantity   *int `json:"quantity,omitempty"`
	GuestCount *int `json:"guest_count,omitempty"`
}

// Store is a client-side cart persisted in its entirety on every mutation.
//
// Mutations are serialized by a mutex; persistence failures are returned to
// the caller after the in-memory cart has been updated.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	storage Storage
	lg      *zap.Logger
}

// Open loads the persisted snapshot from storage. A missing or malformed
// snapshot yields an empty cart; the parse failure is logged, not returned.
func Open(storage Storage, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Store{storage: storage, lg: lg}

	data, ok, err := storage.Get(StorageKey)
	switch {
	case err != nil:
		lg.Warn("Read persisted cart", zap.Error(err))
	case !ok:
	default:
		var lines []Line
		if err := json.Unmarshal(data, &lines); err != nil {
			lg.Warn("Discarding malformed persisted cart", zap.Error(err))
			break
		}
		s.lines = lines
	}
	return s
}

// Add appends a line for the offering, or increments the quantity of the
// first line already referencing it. The guest count and quantity are
// validated before anything reaches the cart.
func (s *Store) Add(o Offering, guestCount, quantity int) error {
	line, err := NewLine(o, guestCount, quantity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(o.ID); i >= 0 {
		l := &s.lines[i]
		if err := CheckQuantity(o.ID, l.GuestCount, l.Quantity+quantity); err != nil {
			return err
		}
		l.Quantity += quantity
		l.UnitPrice = o.Price
		l.Name = o.Name
		l.GuestTiers = o.GuestTiers
		l.Custom = o.Custom
		l.Recompute()
	} else {
		s.lines = append(s.lines, line)
	}
	return s.persist()
}

// Update merges p into the line with the given ID. It is a no-op when the
// line is absent. Invalid values leave the line unchanged.
func (s *Store) Update(lineID string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(lineID)
	if i < 0 {
		return nil
	}
	l := s.lines[i]
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.GuestCount != nil {
		if err := CheckGuests(l.offering(), *p.GuestCount); err != nil {
			return err
		}
		l.GuestCount = *p.GuestCount
	}
	if err := CheckQuantity(l.OfferingID, l.GuestCount, l.Quantity); err != nil {
		return err
	}
	l.Recompute()
	s.lines[i] = l
	return s.persist()
}

// Remove deletes the line with the given ID if present.
func (s *Store) Remove(lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(lineID)
	if i < 0 {
		return nil
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return s.persist()
}

// Clear empties the cart and discards the persisted snapshot.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	if err := s.storage.Delete(StorageKey); err != nil {
		return errors.Wrap(err, "delete persisted cart")
	}
	return nil
}

// Count is the sum of quantities across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal is the advisory sum of line totals. The server recomputes it.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) index(id string) int {
	for i := range s.lines {
		if s.lines[i].ID == id {
			return i
		}
	}
	return -1
}

// persist writes the full snapshot. The caller must hold s.mu.
func (s *Store) persist() error {
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := s.storage.Set(StorageKey, data); err != nil {
		return errors.Wrap(err, "persist cart")
	}
	return nil
}

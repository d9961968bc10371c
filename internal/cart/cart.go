// Package cart owns the customer's in-progress order and its durable record.
//
// Every mutation is applied to a copy of the item list, written through to
// the KV, and only then swapped in. Mutations are serialized by the store's
// mutex, which is held across the write, so the persisted record is always
// the result of the last mutation that returned.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/store"
)

// StorageKey is the KV key of the persisted cart record.
const StorageKey = "foodking_cart"

// Store is the cart. Construct it with Open and share the pointer.
type Store struct {
	mu     sync.Mutex
	kv     store.KV
	items  []model.CartItem
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for hydration warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open hydrates a cart from kv. An absent, unreadable or corrupt record
// yields an empty cart; the problem is logged, never returned.
func Open(ctx context.Context, kv store.KV, opts ...Option) *Store {
	s := &Store{kv: kv, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := kv.Get(ctx, StorageKey)
	switch {
	case err != nil:
		s.logger.Warn("cart record unreadable, starting empty", "error", err)
	case !ok:
	default:
		items, err := decode(raw)
		if err != nil {
			s.logger.Warn("cart record corrupt, starting empty", "error", err)
			break
		}
		s.items = items
		s.logger.Debug("cart hydrated", "items", len(items))
	}
	return s
}

// decode parses a persisted record and enforces the cart invariants.
func decode(raw []byte) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("decode cart: duplicate item %s", it.ID)
		}
		seen[it.ID] = true
	}
	return items, nil
}

// Add puts one unit of item in the cart: the quantity of an existing entry
// with the same id goes up by one, otherwise a new entry with quantity 1 is
// appended. item.Quantity is ignored.
func (s *Store) Add(ctx context.Context, item model.CartItem) error {
	item.Quantity = 1
	if err := item.Validate(); err != nil {
		return model.NewValidationError("cart.add", fmt.Sprintf("this item cannot be added to the cart: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	if i := indexOf(next, item.ID); i >= 0 {
		next[i].Quantity++
	} else {
		next = append(next, item)
	}
	return s.commit(ctx, "cart.add", next)
}

// Remove deletes the entry with id. Removing an absent id does nothing.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, "cart.remove", id)
}

// SetQuantity sets the quantity of the entry with id. A quantity of zero or
// less removes the entry; an absent id does nothing.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, "cart.set_quantity", id)
	}
	i := indexOf(s.items, id)
	if i < 0 || s.items[i].Quantity == quantity {
		return nil
	}
	next := s.clone()
	next[i].Quantity = quantity
	return s.commit(ctx, "cart.set_quantity", next)
}

// Clear empties the cart and deletes the persisted record.
//
// Unlike the other mutations, Clear always empties the in-memory cart, even
// when the record cannot be removed: once an order is placed its items must
// not be submitted again. If the delete fails an empty list is written
// instead, and only when that fails too is an error returned.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	delErr := s.kv.Delete(ctx, StorageKey)
	if delErr == nil {
		return nil
	}
	s.logger.Warn("cart record not deleted, overwriting with an empty cart", "error", delErr)
	if err := s.kv.Put(ctx, StorageKey, []byte("[]")); err != nil {
		return persistError("cart.clear", errors.Join(delErr, err))
	}
	return nil
}

// Items returns a copy of the entries in display order.
func (s *Store) Items() []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone()
}

// Len returns the number of distinct entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total returns Σ price × quantity.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Count returns Σ quantity.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) removeLocked(ctx context.Context, op, id string) error {
	i := indexOf(s.items, id)
	if i < 0 {
		return nil
	}
	next := make([]model.CartItem, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	return s.commit(ctx, op, next)
}

// commit writes next through to the KV and swaps it in only on success.
// Caller must hold s.mu.
func (s *Store) commit(ctx context.Context, op string, next []model.CartItem) error {
	if next == nil {
		next = []model.CartItem{}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%s: encode cart: %w", op, err)
	}
	if err := s.kv.Put(ctx, StorageKey, raw); err != nil {
		return persistError(op, err)
	}
	s.items = next
	return nil
}

func (s *Store) clone() []model.CartItem {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]model.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func indexOf(items []model.CartItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func persistError(op string, err error) error {
	return fmt.Errorf("%s: save cart: %w", op, err)
}

// Package cart implements the single live shopping cart.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/quantum-store/internal/domain/product"
)

// Cart maps item IDs to quantities. Quantities are always positive; an item
// is removed from the map rather than stored with a zero quantity.
type Cart map[string]int

// Quantity returns the quantity for the given item, zero if absent.
func (c Cart) Quantity(itemID string) int {
	return c[itemID]
}

// ItemNotFoundError indicates the requested item does not exist in the catalog.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

// InvalidQuantityError indicates a non-positive quantity was requested.
type InvalidQuantityError struct {
	ItemID   string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s, got %d", e.ItemID, e.Quantity)
}

// Store owns the one live cart of the process. All access goes through its
// methods; snapshots returned to callers are copies and never alias the live
// map.
type Store struct {
	products product.Repository

	mu    sync.RWMutex
	items Cart
}

// NewStore creates an empty cart Store validating items against the given
// catalog.
func NewStore(products product.Repository) *Store {
	return &Store{
		products: products,
		items:    make(Cart),
	}
}

// AddItem adds quantity of the given item to the cart, creating the entry or
// incrementing an existing one, and returns a snapshot of the updated cart.
// It returns *ItemNotFoundError for unknown items and *InvalidQuantityError
// for non-positive quantities; in both cases the cart is left unchanged.
func (s *Store) AddItem(ctx context.Context, itemID string, quantity int) (Cart, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ItemID: itemID, Quantity: quantity}
	}

	if _, err := s.products.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &ItemNotFoundError{ItemID: itemID}
		}
		return nil, errors.Wrapf(err, "look up item %s", itemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[itemID] += quantity
	return s.snapshotLocked(), nil
}

// Snapshot returns a copy of the current cart contents.
func (s *Store) Snapshot() Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(Cart)
}

// Consume passes a snapshot of the cart to fn and, if fn returns nil, empties
// the cart. The cart lock is held for the whole call, so an AddItem that
// arrives while fn runs waits until Consume finishes: an acknowledged add can
// never land between the snapshot and the clear and be silently wiped. On a
// non-nil error the cart is left unchanged and the error is returned as is.
func (s *Store) Consume(fn func(items Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.snapshotLocked()); err != nil {
		return err
	}
	s.items = make(Cart)
	return nil
}

func (s *Store) snapshotLocked() Cart {
	out := make(Cart, len(s.items))
	for id, qty := range s.items {
		out[id] = qty
	}
	return out
}

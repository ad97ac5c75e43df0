package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/quantum-store/internal/catalog"
	"github.com/xenking/quantum-store/internal/domain/product"
)

func newTestStore() *Store {
	return NewStore(catalog.New([]product.Product{
		{ID: "item_001", Name: "Quantum T-Shirt", Price: decimal.RequireFromString("19.99")},
		{ID: "item_002", Name: "Flux Capacitor Mug", Price: decimal.RequireFromString("15.49")},
	}))
}

func TestAddItem_AccumulatesQuantities(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "item_001", 2)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "item_002", 1)
	require.NoError(t, err)
	updated, err := s.AddItem(ctx, "item_001", 3)
	require.NoError(t, err)

	assert.Equal(t, 5, updated.Quantity("item_001"))
	assert.Equal(t, 1, updated.Quantity("item_002"))
}

func TestAddItem_UnknownItem(t *testing.T) {
	s := newTestStore()

	_, err := s.AddItem(context.Background(), "item_999", 1)

	var nfErr *ItemNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "item_999", nfErr.ItemID)
	assert.Empty(t, s.Snapshot())
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for _, qty := range []int{0, -1, -100} {
		_, err := s.AddItem(ctx, "item_001", qty)

		var iqErr *InvalidQuantityError
		require.ErrorAs(t, err, &iqErr)
		assert.Equal(t, qty, iqErr.Quantity)
	}
	assert.Empty(t, s.Snapshot())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "item_001", 1)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap["item_001"] = 99

	assert.Equal(t, 1, s.Snapshot().Quantity("item_001"))
}

func TestClear_EmptiesCart(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "item_001", 2)
	require.NoError(t, err)

	s.Clear()
	assert.Empty(t, s.Snapshot())

	// Adding after Clear starts from scratch.
	updated, err := s.AddItem(ctx, "item_001", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity("item_001"))
}

func TestConsume_ClearsOnSuccess(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "item_001", 2)
	require.NoError(t, err)

	var seen Cart
	err = s.Consume(func(items Cart) error {
		seen = items
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, seen.Quantity("item_001"))
	assert.Empty(t, s.Snapshot())
}

func TestConsume_KeepsCartOnError(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "item_001", 2)
	require.NoError(t, err)

	fail := errors.New("pricing failed")
	err = s.Consume(func(Cart) error { return fail })
	require.ErrorIs(t, err, fail)

	assert.Equal(t, 2, s.Snapshot().Quantity("item_001"))
}

func TestConsume_BlocksConcurrentAdd(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "item_001", 1)
	require.NoError(t, err)

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Consume(func(Cart) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	added := make(chan error, 1)
	go func() {
		_, err := s.AddItem(ctx, "item_001", 1)
		added <- err
	}()

	// The add must wait for the consume to finish.
	select {
	case <-added:
		t.Fatal("AddItem completed while Consume held the cart")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-done
	require.NoError(t, <-added)
	assert.Equal(t, 1, s.Snapshot().Quantity("item_001"))
}

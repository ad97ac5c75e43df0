// Package stats accumulates cumulative store statistics.
package stats

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time copy of the store statistics.
type Snapshot struct {
	ItemsPurchasedCount int64
	TotalPurchaseAmount decimal.Decimal
	DiscountCodes       []string
	TotalDiscountAmount decimal.Decimal
}

// Aggregator holds the single StoreStats instance. Counters only ever grow.
// Mutation happens in lock-step with order creation under the checkout
// engine's transaction; the internal mutex exists so snapshots can be taken
// concurrently with updates.
type Aggregator struct {
	mu             sync.RWMutex
	itemsPurchased int64
	totalPurchase  decimal.Decimal
	codes          []string
	totalDiscount  decimal.Decimal
}

// NewAggregator returns an Aggregator with all counters at zero.
func NewAggregator() *Aggregator {
	return &Aggregator{
		totalPurchase: decimal.Zero,
		totalDiscount: decimal.Zero,
	}
}

// RecordOrder accumulates a completed order. No validation happens here: the
// checkout engine guarantees order validity before calling.
func (a *Aggregator) RecordOrder(itemsInOrder int, total, discountAmount decimal.Decimal, discountApplied bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.itemsPurchased += int64(itemsInOrder)
	a.totalPurchase = a.totalPurchase.Add(total)
	if discountApplied {
		a.totalDiscount = a.totalDiscount.Add(discountAmount)
	}
}

// RecordCode appends a newly issued discount code to the historical list.
func (a *Aggregator) RecordCode(code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codes = append(a.codes, code)
}

// Snapshot returns a copy of the current statistics.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	codes := make([]string, len(a.codes))
	copy(codes, a.codes)
	return Snapshot{
		ItemsPurchasedCount: a.itemsPurchased,
		TotalPurchaseAmount: a.totalPurchase,
		DiscountCodes:       codes,
		TotalDiscountAmount: a.totalDiscount,
	}
}

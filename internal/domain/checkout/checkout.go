// Package checkout implements the checkout transaction: pricing, discount
// redemption, order creation, statistics accumulation, and milestone-driven
// discount code issuance.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/quantum-store/internal/broadcast"
	"github.com/xenking/quantum-store/internal/domain/cart"
	"github.com/xenking/quantum-store/internal/domain/product"
	"github.com/xenking/quantum-store/internal/domain/stats"
	"github.com/xenking/quantum-store/internal/promo"
)

// ErrEmptyCart is returned when checkout is attempted on an empty cart.
// No state is mutated in that case.
var ErrEmptyCart = errors.New("cart is empty")

// discountRate is the fraction of the subtotal a valid code takes off.
var discountRate = decimal.RequireFromString("0.10")

// Order is the immutable record of a completed purchase. IDs are dense,
// 1-based, and strictly increasing.
type Order struct {
	ID              int64
	Items           cart.Cart
	Subtotal        decimal.Decimal
	DiscountApplied bool
	DiscountAmount  decimal.Decimal
	Total           decimal.Decimal
	CreatedAt       time.Time
}

// Service is the checkout engine. It owns the append-only order sequence and
// serializes every checkout transaction behind a single mutex: cart read and
// clear, order append, statistics update, and code redemption/issuance all
// happen as one atomic unit relative to concurrent checkouts.
type Service struct {
	lg       *zap.Logger
	products product.Repository
	cart     *cart.Store
	stats    *stats.Aggregator
	issuer   *promo.Issuer
	hub      *broadcast.Hub
	now      func() time.Time

	mu     sync.Mutex
	orders []*Order
}

// NewService creates a checkout Service with the required collaborators.
func NewService(
	lg *zap.Logger,
	products product.Repository,
	cartStore *cart.Store,
	aggregator *stats.Aggregator,
	issuer *promo.Issuer,
	hub *broadcast.Hub,
) *Service {
	return &Service{
		lg:       lg,
		products: products,
		cart:     cartStore,
		stats:    aggregator,
		issuer:   issuer,
		hub:      hub,
		now:      time.Now,
	}
}

// Checkout converts the current cart into an order.
//
// A provided discountCode is matched exactly (case-sensitive) against the
// active code; a match takes 10% off the subtotal and consumes the code. A
// mismatched or absent code is not an error and simply yields no discount.
// Rounding is fixed: subtotal rounded to 2 decimal places once, discount
// rounded to 2 decimal places once, then subtracted.
//
// The milestone check runs last, after the cart is cleared and statistics
// are updated, so a freshly issued code is never visible as current to the
// checkout that triggered it. The resulting broadcast is fire-and-forget.
func (s *Service) Checkout(ctx context.Context, discountCode string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The whole read-price-clear sequence runs under the cart lock via
	// Consume: an AddItem acknowledged while pricing is in flight waits for
	// the transaction to finish instead of being wiped by the clear.
	var (
		o            *Order
		itemsInOrder int
	)
	if err := s.cart.Consume(func(items cart.Cart) error {
		if len(items) == 0 {
			return ErrEmptyCart
		}

		subtotal := decimal.Zero
		for id, qty := range items {
			p, err := s.products.GetByID(ctx, id)
			if err != nil {
				return errors.Wrapf(err, "price item %s", id)
			}
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
			itemsInOrder += qty
		}
		subtotal = subtotal.Round(2)

		discountAmount := decimal.Zero
		discountApplied := false
		if s.issuer.Redeem(discountCode) {
			discountAmount = subtotal.Mul(discountRate).Round(2)
			discountApplied = true
		}

		total := subtotal.Sub(discountAmount).Round(2)
		if total.IsNegative() {
			// Cannot happen with a 10% discount; treat as an internal
			// inconsistency rather than returning a bad order.
			return errors.Errorf("computed negative total %s (subtotal %s, discount %s)",
				total, subtotal, discountAmount)
		}

		o = &Order{
			ID:              int64(len(s.orders)) + 1,
			Items:           items,
			Subtotal:        subtotal,
			DiscountApplied: discountApplied,
			DiscountAmount:  discountAmount,
			Total:           total,
			CreatedAt:       s.now(),
		}
		s.orders = append(s.orders, o)
		s.stats.RecordOrder(itemsInOrder, total, discountAmount, discountApplied)
		return nil
	}); err != nil {
		return nil, err
	}

	s.lg.Info("order completed",
		zap.Int64("order_id", o.ID),
		zap.Int("items", itemsInOrder),
		zap.String("total", o.Total.StringFixed(2)),
		zap.Bool("discount_applied", o.DiscountApplied),
	)

	if s.issuer.Milestone(o.ID) {
		code := s.issuer.Issue()
		s.stats.RecordCode(code)
		s.lg.Info("discount code issued",
			zap.Int64("order_id", o.ID),
			zap.String("code", code),
		)
		s.hub.Broadcast(broadcast.Event{Code: code})
	}

	return o, nil
}

// Orders returns the full order history. Orders are immutable once created,
// so the returned slice shares them safely.
func (s *Service) Orders() []*Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Order, len(s.orders))
	copy(out, s.orders)
	return out
}

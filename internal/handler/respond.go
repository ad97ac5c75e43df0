package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/quantum-store/internal/domain/cart"
	"github.com/xenking/quantum-store/internal/domain/checkout"
	"github.com/xenking/quantum-store/internal/domain/product"
	"github.com/xenking/quantum-store/internal/domain/stats"
)

// maxBodySize caps request bodies; all accepted payloads are tiny.
const maxBodySize = 1 << 16

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
	})
}

// encodeCart writes the cart as an item_id -> quantity object with stable key
// order.
func encodeCart(e *jx.Encoder, c cart.Cart) {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	e.Obj(func(e *jx.Encoder) {
		for _, id := range ids {
			qty := c[id]
			e.Field(id, func(e *jx.Encoder) { e.Int(qty) })
		}
	})
}

func encodeOrder(e *jx.Encoder, o *checkout.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("items", func(e *jx.Encoder) { encodeCart(e, o.Items) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, o.Subtotal) })
		e.Field("discount_applied", func(e *jx.Encoder) { e.Bool(o.DiscountApplied) })
		e.Field("discount_amount", func(e *jx.Encoder) { encodeMoney(e, o.DiscountAmount) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
	})
}

func encodeStats(e *jx.Encoder, s stats.Snapshot) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items_purchased_count", func(e *jx.Encoder) { e.Int64(s.ItemsPurchasedCount) })
		e.Field("total_purchase_amount", func(e *jx.Encoder) { encodeMoney(e, s.TotalPurchaseAmount) })
		e.Field("discount_codes_list", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, code := range s.DiscountCodes {
					e.Str(code)
				}
			})
		})
		e.Field("total_discount_amount", func(e *jx.Encoder) { encodeMoney(e, s.TotalDiscountAmount) })
	})
}

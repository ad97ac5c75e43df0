package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/quantum-store/internal/domain/checkout"
)

func decodeCheckout(r *http.Request) (discountCode string, err error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return "", errors.Wrap(err, "read body")
	}
	// An empty body means checkout without a code.
	if len(data) == 0 {
		return "", nil
	}

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "discount_code":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			discountCode = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return "", errors.Wrap(err, "decode body")
	}
	return discountCode, nil
}

// Checkout converts the current cart into an order, applying an optional
// discount code.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	code, err := decodeCheckout(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.checkout.Checkout(r.Context(), code)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			writeError(w, http.StatusBadRequest, "Cart is empty")
			return
		}
		zctx.From(r.Context()).Error("checkout", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str("Checkout successful!") })
			e.Field("order_details", func(e *jx.Encoder) { encodeOrder(e, order) })
		})
	})
}

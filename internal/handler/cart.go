package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/quantum-store/internal/domain/cart"
)

type addToCartRequest struct {
	ItemID   string
	Quantity int
}

func decodeAddToCart(r *http.Request) (addToCartRequest, error) {
	var req addToCartRequest

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return req, errors.Wrap(err, "read body")
	}

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "item_id":
			v, err := d.Str()
			req.ItemID = v
			return err
		case "quantity":
			v, err := d.Int()
			req.Quantity = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return req, errors.Wrap(err, "decode body")
	}

	if req.ItemID == "" {
		return req, errors.New("item_id is required")
	}
	return req, nil
}

// AddToCart adds a quantity of an item to the cart and returns the updated
// cart snapshot.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAddToCart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.cart.AddItem(r.Context(), req.ItemID, req.Quantity)
	if err != nil {
		var nfErr *cart.ItemNotFoundError
		if errors.As(err, &nfErr) {
			writeError(w, http.StatusNotFound, nfErr.Error())
			return
		}
		var iqErr *cart.InvalidQuantityError
		if errors.As(err, &iqErr) {
			writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
			return
		}
		zctx.From(r.Context()).Error("add to cart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	name := req.ItemID
	if p, err := h.products.GetByID(r.Context(), req.ItemID); err == nil {
		name = p.Name
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) {
				e.Str(fmt.Sprintf("Added %d of %s to cart.", req.Quantity, name))
			})
			e.Field("cart", func(e *jx.Encoder) { encodeCart(e, updated) })
		})
	})
}

// GetCart returns the current cart snapshot.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cart.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, snapshot)
	})
}

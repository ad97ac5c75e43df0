package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// GetStats returns a snapshot of the cumulative store statistics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	snapshot := h.stats.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeStats(e, snapshot)
	})
}

// ListOrders returns the full order history.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.checkout.Orders()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, o := range orders {
				encodeOrder(e, o)
			}
		})
	})
}

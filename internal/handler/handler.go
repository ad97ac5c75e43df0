// Package handler exposes the store over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/xenking/quantum-store/internal/broadcast"
	"github.com/xenking/quantum-store/internal/domain/cart"
	"github.com/xenking/quantum-store/internal/domain/checkout"
	"github.com/xenking/quantum-store/internal/domain/product"
	"github.com/xenking/quantum-store/internal/domain/stats"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// WSWriteTimeout bounds a single WebSocket write to a subscriber.
	WSWriteTimeout time.Duration
}

// Handler implements the HTTP surface, delegating business logic to the
// injected domain collaborators.
type Handler struct {
	products   product.Repository
	cart       *cart.Store
	checkout   *checkout.Service
	stats      *stats.Aggregator
	hub        *broadcast.Hub
	upgrader   websocket.Upgrader
	wsDeadline time.Duration
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	cartStore *cart.Store,
	checkoutSvc *checkout.Service,
	aggregator *stats.Aggregator,
	hub *broadcast.Hub,
) *Handler {
	deadline := cfg.WSWriteTimeout
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	return &Handler{
		products: products,
		cart:     cartStore,
		checkout: checkoutSvc,
		stats:    aggregator,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin browsing clients are allowed; CORS policy for
			// the rest of the API is enforced by middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		wsDeadline: deadline,
	}
}

// Routes returns the router for the /api subtree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/products", h.ListProducts)
	r.Post("/cart/add", h.AddToCart)
	r.Get("/cart", h.GetCart)
	r.Post("/checkout", h.Checkout)
	r.Get("/admin/stats", h.GetStats)
	r.Get("/admin/orders", h.ListOrders)
	r.Get("/ws", h.Notifications)
	return r
}

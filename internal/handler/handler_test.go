package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/quantum-store/internal/broadcast"
	"github.com/xenking/quantum-store/internal/catalog"
	"github.com/xenking/quantum-store/internal/domain/cart"
	"github.com/xenking/quantum-store/internal/domain/checkout"
	"github.com/xenking/quantum-store/internal/domain/stats"
	"github.com/xenking/quantum-store/internal/promo"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	products := catalog.Default()
	cartStore := cart.NewStore(products)
	aggregator := stats.NewAggregator()
	issuer := promo.NewIssuer("SAVE10", 3)
	hub := broadcast.NewHub(zap.NewNop(), 8, time.Second)
	svc := checkout.NewService(zap.NewNop(), products, cartStore, aggregator, issuer, hub)
	return New(Config{WSWriteTimeout: time.Second}, products, cartStore, svc, aggregator, hub)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// field walks a JSON object and returns the raw value of a top-level key.
func field(t *testing.T, data []byte, name string) string {
	t.Helper()
	var out string
	d := jx.DecodeBytes(data)
	require.NoError(t, d.Obj(func(d *jx.Decoder, key string) error {
		raw, err := d.Raw()
		if key == name {
			out = raw.String()
		}
		return err
	}))
	return out
}

func TestListProducts(t *testing.T) {
	h := newTestHandler(t).Routes()

	w := doJSON(t, h, http.MethodGet, "/products", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `"item_001"`)
	assert.Contains(t, body, `"Quantum T-Shirt"`)
	assert.Contains(t, body, `19.99`)
}

func TestAddToCart(t *testing.T) {
	h := newTestHandler(t).Routes()

	w := doJSON(t, h, http.MethodPost, "/cart/add", `{"item_id":"item_001","quantity":2}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Added 2 of Quantum T-Shirt to cart.")
	assert.Equal(t, `{"item_001":2}`, field(t, w.Body.Bytes(), "cart"))
}

func TestAddToCart_Errors(t *testing.T) {
	h := newTestHandler(t).Routes()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown item", `{"item_id":"item_999","quantity":1}`, http.StatusNotFound},
		{"zero quantity", `{"item_id":"item_001","quantity":0}`, http.StatusUnprocessableEntity},
		{"negative quantity", `{"item_id":"item_001","quantity":-2}`, http.StatusUnprocessableEntity},
		{"missing item id", `{"quantity":1}`, http.StatusBadRequest},
		{"malformed json", `{"item_id":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, "/cart/add", tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetCart(t *testing.T) {
	h := newTestHandler(t).Routes()

	w := doJSON(t, h, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{}", w.Body.String())

	doJSON(t, h, http.MethodPost, "/cart/add", `{"item_id":"item_002","quantity":3}`)

	w = doJSON(t, h, http.MethodGet, "/cart", "")
	assert.Equal(t, `{"item_002":3}`, w.Body.String())
}

func TestCheckout_EmptyCart(t *testing.T) {
	h := newTestHandler(t).Routes()

	w := doJSON(t, h, http.MethodPost, "/checkout", `{}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Cart is empty")
}

func TestCheckout_Success(t *testing.T) {
	h := newTestHandler(t).Routes()

	doJSON(t, h, http.MethodPost, "/cart/add", `{"item_id":"item_001","quantity":2}`)
	w := doJSON(t, h, http.MethodPost, "/checkout", `{"discount_code":null}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Checkout successful!")
	assert.Contains(t, body, `"order_id":1`)
	assert.Contains(t, body, `"subtotal":39.98`)
	assert.Contains(t, body, `"total":39.98`)
	assert.Contains(t, body, `"discount_applied":false`)

	// The cart is now empty again.
	w = doJSON(t, h, http.MethodGet, "/cart", "")
	assert.Equal(t, "{}", w.Body.String())
}

func TestAdminEndpoints(t *testing.T) {
	h := newTestHandler(t).Routes()

	doJSON(t, h, http.MethodPost, "/cart/add", `{"item_id":"item_001","quantity":2}`)
	doJSON(t, h, http.MethodPost, "/checkout", ``)

	w := doJSON(t, h, http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"items_purchased_count":2`)
	assert.Contains(t, body, `"total_purchase_amount":39.98`)
	assert.Contains(t, body, `"discount_codes_list":[]`)
	assert.Contains(t, body, `"total_discount_amount":0.00`)

	w = doJSON(t, h, http.MethodGet, "/admin/orders", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"order_id":1`)
}

func TestNotifications_BroadcastOnMilestone(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Three checkouts hit the default milestone and trigger one broadcast.
	client := srv.Client()
	for n := 0; n < 3; n++ {
		r, err := client.Post(srv.URL+"/cart/add", "application/json",
			strings.NewReader(`{"item_id":"item_001","quantity":1}`))
		require.NoError(t, err)
		r.Body.Close()

		r, err = client.Post(srv.URL+"/checkout", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, r.StatusCode)
		r.Body.Close()
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Regexp(t, `^New Discount Code Available: SAVE10-[0-9A-F]{4}$`, string(msg))
}

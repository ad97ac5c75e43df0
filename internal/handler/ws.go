package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Notifications upgrades the connection to a WebSocket and streams new
// discount code events to the client. Each issued code is pushed as the text
// message "New Discount Code Available: <code>". The connection closes
// cleanly when the client disconnects; no error is surfaced.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		lg.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Read pump: the client sends nothing meaningful; reading only detects
	// disconnects and handles control frames.
	g.Go(func() error {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return err
			}
		}
	})

	// Write pump: forward hub events until the subscription or connection ends.
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sub.Done():
				deadline := time.Now().Add(h.wsDeadline)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
				return nil
			case ev := <-sub.Events():
				_ = conn.SetWriteDeadline(time.Now().Add(h.wsDeadline))
				msg := "New Discount Code Available: " + ev.Code
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
					return err
				}
			}
		}
	})

	// Closer: unblocks the read pump once anything ends the session.
	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	err = g.Wait()
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		lg.Debug("websocket session ended", zap.Error(err))
		return
	}
	lg.Debug("websocket client disconnected")
}

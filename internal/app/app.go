package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/quantum-store/internal/broadcast"
	"github.com/xenking/quantum-store/internal/catalog"
	"github.com/xenking/quantum-store/internal/domain/cart"
	"github.com/xenking/quantum-store/internal/domain/checkout"
	"github.com/xenking/quantum-store/internal/domain/stats"
	"github.com/xenking/quantum-store/internal/handler"
	"github.com/xenking/quantum-store/internal/promo"
	"github.com/xenking/quantum-store/pkg/health"
	"github.com/xenking/quantum-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Catalog: built-in set, or loaded once from a file.
	products := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}
		products = loaded
		lg.Info("Catalog loaded", zap.String("file", cfg.CatalogFile))
	}

	// Domain services.
	cartStore := cart.NewStore(products)
	aggregator := stats.NewAggregator()
	issuer := promo.NewIssuer(cfg.Milestone.CodePrefix, cfg.Milestone.Interval)
	hub := broadcast.NewHub(lg.Named("broadcast"), cfg.Broadcast.Buffer, cfg.Broadcast.SendTimeout)
	checkoutSvc := checkout.NewService(lg.Named("checkout"), products, cartStore, aggregator, issuer, hub)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("subscribers", time.Second, func(context.Context) error {
		if n := hub.Len(); n > cfg.Broadcast.MaxClients {
			return errors.Errorf("subscriber count %d exceeds limit %d", n, cfg.Broadcast.MaxClients)
		}
		return nil
	})
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h := handler.New(
		handler.Config{WSWriteTimeout: 5 * time.Second},
		products,
		cartStore,
		checkoutSvc,
		aggregator,
		hub,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"E-commerce API is running"}`))
	})
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("store-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		// Release websocket subscribers so their handlers unwind.
		hub.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening",
		zap.String("addr", cfg.Addr),
		zap.Int("milestone_interval", cfg.Milestone.Interval),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/equb/internal/auth"
	"github.com/mmynk/equb/internal/config"
	"github.com/mmynk/equb/internal/equb"
	"github.com/mmynk/equb/internal/metrics"
	"github.com/mmynk/equb/internal/middleware"
	"github.com/mmynk/equb/internal/notify"
	"github.com/mmynk/equb/internal/service"
	"github.com/mmynk/equb/internal/storage/sqlite"
	"github.com/mmynk/equb/pkg/equbapi/equbapiconnect"
	"github.com/mmynk/equb/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".", "/etc/equb")
	if err != nil {
		return err
	}

	logging.Setup(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("set EQUB_AUTH_JWT_SECRET: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mt := metrics.New(registry)

	// Every notification is logged and written to the outbox.
	notifier := notify.Fanout{notify.LogSink{Logger: slog.Default()}, store}

	manager := equb.NewManager(store,
		equb.WithNotifier(notifier),
		equb.WithMetrics(mt),
		equb.WithNotifyTimeout(cfg.Notify.Timeout),
	)
	enforcer := equb.NewEnforcer(store, store,
		equb.WithEnforcerNotifier(notifier),
		equb.WithEnforcerMetrics(mt),
	)

	mux := http.NewServeMux()

	// Register Connect services
	roundPath, roundHandler := equbapiconnect.NewRoundServiceHandler(
		service.NewRoundService(manager),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(slog.Default())),
	)
	mux.Handle(roundPath, roundHandler)

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// RPCs are logged by the interceptor; the HTTP layer only handles CORS.
	// h2c serves HTTP/2 without TLS, which Connect's gRPC protocol needs.
	handler := h2c.NewHandler(middleware.CORS(cfg.CORS.AllowedOrigins, mux), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return enforcer.Run(ctx, cfg.Sweep.Interval, cfg.Sweep.Timeout)
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

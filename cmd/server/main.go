// cmd/server/main.go
// This is the entry point for the badminton club API server.
// The "cmd/server" directory follows a common Go convention: the cmd/ folder holds executable
// binaries, and internal/ holds packages that are not meant to be imported by other projects.
//
// The process runs three things side by side until it receives SIGINT or SIGTERM:
//   - the REST API (Fiber) on PORT
//   - the realtime notifier (gorilla/websocket on net/http) on REALTIME_PORT
//   - the status scheduler, which completes finished matches every AUTO_UPDATE_INTERVAL
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

	// fiber is a fast HTTP web framework inspired by Express.js
	"github.com/gofiber/fiber/v2"
	// adaptor mounts a net/http handler (the Prometheus exporter) on a Fiber route
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	// cors handles Cross-Origin Resource Sharing so the dashboard can call the API from its own origin
	"github.com/gofiber/fiber/v2/middleware/cors"
	// logger prints request details (method, path, status, duration) to stdout
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/sync/errgroup"

	"github.com/trentd187/badminton-club/internal/config"
	"github.com/trentd187/badminton-club/internal/database"
	"github.com/trentd187/badminton-club/internal/handlers"
	"github.com/trentd187/badminton-club/internal/metrics"
	"github.com/trentd187/badminton-club/internal/middleware"
	"github.com/trentd187/badminton-club/internal/stats"
	"github.com/trentd187/badminton-club/internal/status"
	"github.com/trentd187/badminton-club/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration from environment variables (and optionally a .env file).
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	// Cancelled on SIGINT/SIGTERM; everything below shuts down from this context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Run any pending SQL migration files before anything touches the schema.
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return err
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("close database", slog.Any("error", err))
		}
	}()

	// Keys written under an older normalization rule are brought in line before any
	// duplicate-name check runs against them.
	rebuilt, err := database.RebuildNameKeys(ctx, db, log)
	if err != nil {
		return err
	}
	if rebuilt > 0 {
		log.Info("rebuilt player name keys", slog.Int("count", rebuilt))
	}

	recorder := metrics.New()

	// The hub is created here and handed to everything that publishes, instead of living
	// in a package-level variable. Its lifetime is the errgroup below.
	hub := websocket.NewHub(log.With(slog.String("component", "realtime")))

	updater := status.NewUpdater(db, cfg.Location, log.With(slog.String("component", "status")), recorder, hub)
	scheduler := status.NewScheduler(updater, log.With(slog.String("component", "scheduler")), cfg.AutoUpdateInterval)
	env := handlers.NewEnv(db, updater, stats.NewAggregator(db), hub, log, cfg.Location)

	app := newApp(cfg, env, recorder, log)

	realtime := &http.Server{
		Addr:              ":" + cfg.RealtimePort,
		Handler:           realtimeMux(hub, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	scheduler.Start(gctx)

	g.Go(func() error {
		log.Info("api listening", slog.String("port", cfg.Port), slog.String("env", cfg.Env))
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("realtime listening", slog.String("port", cfg.RealtimePort))
		if err := realtime.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("realtime server: %w", err)
		}
		return nil
	})

	// Wait for a signal (or a server failing), then stop everything within the timeout.
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := scheduler.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop api: %w", err))
		}
		if err := realtime.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop realtime: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// newApp builds the Fiber app with global middleware and every route.
func newApp(cfg *config.Config, env *handlers.Env, recorder *metrics.Recorder, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Badminton Club API",
		ErrorHandler:          handlers.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),
	})

	// --- Global middleware ---
	// These run on every request before any route handler, in registration order.
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(middleware.Metrics(recorder))

	// --- Public routes (no auth required) ---
	app.Get("/health", handlers.HealthCheck(env.DB))
	app.Get("/metrics", adaptor.HTTPHandler(recorder.Handler()))

	// --- Authenticated API routes ---
	// Route group pattern: app.Group(prefix, middlewares...) applies Auth to every route
	// registered on the returned group.
	api := app.Group("/api/v1", middleware.Auth(cfg))
	handlers.Register(api, env)

	return app
}

// realtimeMux serves the WebSocket endpoint. It runs on plain net/http because the
// gorilla upgrader needs to hijack the connection, which fasthttp does not expose.
func realtimeMux(hub *websocket.Hub, origins string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler(origins))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

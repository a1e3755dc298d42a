package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/met-local-forecast/internal/api/http"
	"github.com/i474232898/met-local-forecast/internal/config"
	"github.com/i474232898/met-local-forecast/internal/geocode"
	"github.com/i474232898/met-local-forecast/internal/registry"
	"github.com/i474232898/met-local-forecast/internal/scheduler"
	"github.com/i474232898/met-local-forecast/internal/setup"
	"github.com/i474232898/met-local-forecast/internal/store"
	"github.com/i474232898/met-local-forecast/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// One client shared by every location.
	fetcher := providers.NewMetNoProvider(providers.MetNoConfig{
		BaseURL:   cfg.MetBaseURL,
		UserAgent: cfg.MetUserAgent,
		Timeout:   cfg.HTTPTimeout,
		Limit:     cfg.RateLimit,
	})

	// Config entries survive restarts only when a database path is set.
	var entries registry.Store
	if cfg.DBPath != "" {
		sqlStore, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			log.Fatalf("failed to open entry store: %v", err)
		}
		defer sqlStore.Close()
		entries = sqlStore
	} else {
		entries = store.NewMemoryStore()
	}

	reg := registry.New(fetcher, entries)

	// Scheduler follows the registry so every location gets a refresh job.
	sched := scheduler.New()
	reg.Subscribe(sched)
	sched.Start()
	defer sched.Stop()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	if err := reg.Load(startupCtx); err != nil {
		log.Fatalf("failed to load entries: %v", err)
	}

	var resolver setup.Resolver
	if cfg.GeocoderAPIKey != "" {
		resolver = geocode.NewGoogle(cfg.GeocoderAPIKey)
	}
	flow := setup.NewFlow(fetcher, reg, resolver)

	for _, l := range cfg.Locations {
		lat, lon := l.Latitude, l.Longitude
		_, err := flow.Submit(startupCtx, setup.Input{Name: l.Name, Latitude: &lat, Longitude: &lon})
		if err != nil && !errors.Is(err, registry.ErrAlreadyConfigured) {
			log.Printf("ERROR: could not configure %s: %s (%v)", l.Name, setup.Code(err), err)
		}
	}
	cancelStartup()

	app := fiber.New(fiber.Config{
		AppName:               "met-local-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "met-local-forecast",
			"locations": len(reg.List()),
		})
	})

	httpapi.RegisterRoutes(app, reg, flow)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

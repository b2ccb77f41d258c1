package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"detour.raceday.org/internal/app"
	"detour.raceday.org/internal/geocode"
	"detour.raceday.org/internal/limiter"
	"detour.raceday.org/internal/logging"
	"detour.raceday.org/internal/restapi"
	"detour.raceday.org/internal/routing"
	"detour.raceday.org/internal/store"
	"detour.raceday.org/internal/track"
)

func main() {
	var cfg app.Config

	flag.IntVar(&cfg.Port, "port", 4000, "API server port")
	flag.StringVar(&cfg.Env, "env", "development", "Environment (development|staging|production)")
	flag.StringVar(&cfg.RoutingEngine, "routing-engine", "valhalla", "Routing engine (valhalla|osrm)")
	flag.StringVar(&cfg.ValhallaURL, "valhalla-url", routing.DefaultValhallaURL, "Valhalla base URL")
	flag.StringVar(&cfg.OSRMURL, "osrm-url", routing.DefaultOSRMURL, "OSRM base URL")
	flag.StringVar(&cfg.GeocodeURL, "geocode-url", geocode.DefaultGeocodeURL, "Address search base URL")
	flag.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection string (empty runs with an in-memory store)")
	flag.IntVar(&cfg.RateLimit, "rate-limit", 10, "Requests per second per client (0 blocks, negative disables)")
	flag.Parse()

	logger := logging.NewStructuredLogger(os.Stdout, slog.LevelInfo)

	events, closures, cleanup, err := buildStores(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	engine, stopEngine, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize routing engine", "error", err)
		os.Exit(1)
	}
	defer stopEngine()

	application := &app.Application{
		Config:       cfg,
		Logger:       logger,
		RouteService: routing.NewService(engine, events, closures, logger),
		Importer:     track.NewImporter(events, closures, logger),
		Geocoder:     geocode.NewClient(cfg.GeocodeURL, logger),
	}

	api := restapi.NewRestAPI(application)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     api.Routes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 5 * time.Second,
		// Route calls can sit in the engine's queue for up to its full
		// timeout before running.
		WriteTimeout: limiter.DefaultTimeout + 30*time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "engine", engine.Name())
	err = srv.ListenAndServe()
	logger.Error(err.Error())
	os.Exit(1)
}

// buildStores selects PostgreSQL when a connection string is configured and
// falls back to the in-memory store otherwise. The in-memory store loses all
// closures on restart; it exists for development and tests.
func buildStores(cfg app.Config, logger *slog.Logger) (store.EventStore, store.ClosureStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no database configured, using in-memory store")
		mem := store.NewMemory()
		return mem, mem, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return pg, pg, pg.Close, nil
}

func buildEngine(cfg app.Config, logger *slog.Logger) (routing.Engine, func(), error) {
	switch cfg.RoutingEngine {
	case "valhalla":
		lim := limiter.New(limiter.DefaultSpacing, limiter.DefaultTimeout, logger)
		return routing.NewValhallaEngine(cfg.ValhallaURL, lim, logger), lim.Stop, nil
	case "osrm":
		return routing.NewOSRMEngine(cfg.OSRMURL, logger), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown routing engine %q", cfg.RoutingEngine)
}

package app

import (
	"log/slog"

	"detour.raceday.org/internal/geocode"
	"detour.raceday.org/internal/routing"
	"detour.raceday.org/internal/track"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware: the configuration, a logger, and the services the API
// exposes.
type Application struct {
	Config       Config
	Logger       *slog.Logger
	RouteService *routing.Service
	Importer     *track.Importer
	Geocoder     *geocode.Client
}

// Config holds all the configuration settings for our Application. We read
// these in from command-line flags when the Application starts.
type Config struct {
	Port          int
	Env           string
	RoutingEngine string
	ValhallaURL   string
	OSRMURL       string
	GeocodeURL    string
	DatabaseURL   string
	RateLimit     int
}

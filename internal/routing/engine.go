// Package routing orchestrates route calculation across two interchangeable
// external engines: Valhalla, which can exclude closure polygons, and OSRM,
// which cannot. Each client translates the uniform request into its
// provider's wire format and normalizes the response; the Service layered on
// top resolves closures, selects the engine, and produces warnings.
package routing

import (
	"context"

	"github.com/paulmach/orb"

	"detour.raceday.org/internal/models"
)

// Engine is one routing provider. Implementations translate requests into
// their provider's wire format, validate the raw response, and return a
// normalized result with distance in meters, duration in seconds, and
// [lon, lat] geometry.
type Engine interface {
	// Name identifies the provider in results and logs.
	Name() string

	// SupportsExclusions reports whether the engine honors exclusion
	// polygons. Engines that do not are given none.
	SupportsExclusions() bool

	// CalculateRoute computes a route. Exclusions are closed outer rings
	// to avoid; engines without exclusion support ignore the argument.
	CalculateRoute(ctx context.Context, origin, destination orb.Point, profile models.Profile, exclusions []orb.Polygon) (*models.RouteResult, error)
}

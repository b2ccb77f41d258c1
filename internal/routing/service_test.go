package routing

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detour.raceday.org/internal/apperr"
	"detour.raceday.org/internal/models"
	"detour.raceday.org/internal/store"
)

// fakeEngine records the exclusions it was handed and returns a canned route.
type fakeEngine struct {
	name           string
	exclusionAware bool
	result         *models.RouteResult
	err            error

	gotExclusions []orb.Polygon
	gotProfile    models.Profile
	calls         int
}

func (f *fakeEngine) Name() string             { return f.name }
func (f *fakeEngine) SupportsExclusions() bool { return f.exclusionAware }

func (f *fakeEngine) CalculateRoute(ctx context.Context, origin, destination orb.Point, profile models.Profile, exclusions []orb.Polygon) (*models.RouteResult, error) {
	f.calls++
	f.gotExclusions = exclusions
	f.gotProfile = profile
	if f.err != nil {
		return nil, f.err
	}
	result := *f.result
	return &result, nil
}

func serviceNow() time.Time {
	return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
}

func squareRing(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}

func activeClosure(polygon orb.Polygon) models.ClosureGeometry {
	return models.ClosureGeometry{
		Type:      models.ClosureZone,
		Polygon:   polygon,
		StartTime: serviceNow().Add(-time.Hour),
		EndTime:   serviceNow().Add(time.Hour),
	}
}

func newTestService(t *testing.T, engine Engine, mem *store.Memory) *Service {
	t.Helper()
	svc := NewService(engine, mem, mem, nil)
	svc.now = serviceNow
	return svc
}

func routeThrough(polygon orb.Polygon) *models.RouteResult {
	ring := polygon[0]
	mid := orb.Point{(ring[0].Lon() + ring[2].Lon()) / 2, (ring[0].Lat() + ring[2].Lat()) / 2}
	return &models.RouteResult{
		Distance: 1200,
		Duration: 300,
		Geometry: orb.LineString{{ring[0].Lon() - 0.1, ring[0].Lat() - 0.1}, mid, {ring[2].Lon() + 0.1, ring[2].Lat() + 0.1}},
	}
}

func TestCalculateRouteRejectsInvalidProfile(t *testing.T) {
	engine := &fakeEngine{name: "valhalla", exclusionAware: true}
	svc := newTestService(t, engine, store.NewMemory())

	_, err := svc.CalculateRoute(context.Background(), models.RouteRequest{
		Origin:      orb.Point{6.02, 44.56},
		Destination: orb.Point{6.03, 44.57},
		Profile:     "hovercraft",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.From(err).Code)
	assert.Zero(t, engine.calls, "invalid requests never reach the engine")
}

func TestCalculateRouteWithoutEvent(t *testing.T) {
	engine := &fakeEngine{
		name:           "valhalla",
		exclusionAware: true,
		result:         &models.RouteResult{Distance: 500, Duration: 60, Geometry: orb.LineString{{6.02, 44.56}, {6.03, 44.57}}},
	}
	svc := newTestService(t, engine, store.NewMemory())

	result, err := svc.CalculateRoute(context.Background(), models.RouteRequest{
		Origin:      orb.Point{6.02, 44.56},
		Destination: orb.Point{6.03, 44.57},
		Profile:     models.ProfileDriving,
	})
	require.NoError(t, err)
	assert.Empty(t, engine.gotExclusions)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "valhalla", result.Engine)
}

func TestCalculateRouteUnknownSlugIsNotAnError(t *testing.T) {
	engine := &fakeEngine{
		name:           "valhalla",
		exclusionAware: true,
		result:         &models.RouteResult{Geometry: orb.LineString{{6.02, 44.56}, {6.03, 44.57}}},
	}
	svc := newTestService(t, engine, store.NewMemory())

	result, err := svc.CalculateRoute(context.Background(), models.RouteRequest{
		Origin:      orb.Point{6.02, 44.56},
		Destination: orb.Point{6.03, 44.57},
		Profile:     models.ProfileDriving,
		EventSlug:   "no-such-event",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1, engine.calls)
}

func TestCalculateRouteForwardsExclusions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	event := mem.AddEvent("alpine-race", "Alpine Race", serviceNow())

	inWindow := squareRing(6.02, 44.56, 6.03, 44.57)
	require.NoError(t, mem.Create(ctx, event.ID, activeClosure(inWindow)))

	expired := activeClosure(squareRing(6.10, 44.60, 6.11, 44.61))
	expired.StartTime = serviceNow().Add(-3 * time.Hour)
	expired.EndTime = serviceNow().Add(-2 * time.Hour)
	require.NoError(t, mem.Create(ctx, event.ID, expired))

	engine := &fakeEngine{
		name:           "valhalla",
		exclusionAware: true,
		result:         &models.RouteResult{Geometry: orb.LineString{{6.0, 44.5}, {6.1, 44.6}}},
	}
	svc := newTestService(t, engine, mem)

	result, err := svc.CalculateRoute(ctx, models.RouteRequest{
		Origin:      orb.Point{6.0, 44.5},
		Destination: orb.Point{6.1, 44.6},
		Profile:     models.ProfileDriving,
		EventSlug:   "alpine-race",
	})
	require.NoError(t, err)

	// Only the closure active right now goes to the engine.
	require.Len(t, engine.gotExclusions, 1)
	assert.Equal(t, inWindow, engine.gotExclusions[0])

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Route calculated avoiding 1 active closure(s)", result.Warnings[0])
}

func TestCalculateRouteWarnsWhenEngineCannotExclude(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	event := mem.AddEvent("alpine-race", "Alpine Race", serviceNow())

	polygon := squareRing(6.02, 44.56, 6.03, 44.57)
	require.NoError(t, mem.Create(ctx, event.ID, activeClosure(polygon)))

	engine := &fakeEngine{
		name:           "osrm",
		exclusionAware: false,
		result:         routeThrough(polygon),
	}
	svc := newTestService(t, engine, mem)

	result, err := svc.CalculateRoute(ctx, models.RouteRequest{
		Origin:      orb.Point{6.0, 44.5},
		Destination: orb.Point{6.1, 44.6},
		Profile:     models.ProfileDriving,
		EventSlug:   "alpine-race",
	})
	require.NoError(t, err)

	assert.Nil(t, engine.gotExclusions, "exclusion-blind engines receive none")
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, "osrm cannot avoid closures. 1 active closure(s) detected for this event", result.Warnings[0])
	assert.Equal(t, "Route intersects with 1 closure(s)", result.Warnings[1])
}

func TestCalculateRouteNoIntersectionWarningWhenRouteAvoidsClosures(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	event := mem.AddEvent("alpine-race", "Alpine Race", serviceNow())
	require.NoError(t, mem.Create(ctx, event.ID, activeClosure(squareRing(6.02, 44.56, 6.03, 44.57))))

	engine := &fakeEngine{
		name:           "osrm",
		exclusionAware: false,
		result:         &models.RouteResult{Geometry: orb.LineString{{7.0, 45.5}, {7.1, 45.6}}},
	}
	svc := newTestService(t, engine, mem)

	result, err := svc.CalculateRoute(ctx, models.RouteRequest{
		Origin:      orb.Point{7.0, 45.5},
		Destination: orb.Point{7.1, 45.6},
		Profile:     models.ProfileDriving,
		EventSlug:   "alpine-race",
	})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "cannot avoid closures")
}

func TestCalculateRoutePropagatesEngineErrors(t *testing.T) {
	engine := &fakeEngine{
		name:           "valhalla",
		exclusionAware: true,
		err:            apperr.Upstream(apperr.CodeNoRoute, "no route found between the given points"),
	}
	svc := newTestService(t, engine, store.NewMemory())

	_, err := svc.CalculateRoute(context.Background(), models.RouteRequest{
		Origin:      orb.Point{6.02, 44.56},
		Destination: orb.Point{6.03, 44.57},
		Profile:     models.ProfileDriving,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNoRoute, apperr.From(err).Code)
}

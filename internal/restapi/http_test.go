package restapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"detour.raceday.org/internal/app"
	"detour.raceday.org/internal/geocode"
	"detour.raceday.org/internal/models"
	"detour.raceday.org/internal/routing"
	"detour.raceday.org/internal/store"
	"detour.raceday.org/internal/track"
)

// stubEngine returns a canned result so handler tests never touch the
// network.
type stubEngine struct {
	name           string
	exclusionAware bool
	result         *models.RouteResult
	err            error
}

func (s *stubEngine) Name() string             { return s.name }
func (s *stubEngine) SupportsExclusions() bool { return s.exclusionAware }

func (s *stubEngine) CalculateRoute(ctx context.Context, origin, destination orb.Point, profile models.Profile, exclusions []orb.Polygon) (*models.RouteResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := *s.result
	return &result, nil
}

func straightRoute() *models.RouteResult {
	return &models.RouteResult{
		Distance: 1500,
		Duration: 300,
		Geometry: orb.LineString{{6.02, 44.56}, {6.03, 44.57}},
		Steps:    []models.Step{{Distance: 1500, Duration: 300, Instruction: "Head north"}},
	}
}

type testAPIOptions struct {
	engine     routing.Engine
	rateLimit  int
	geocodeURL string
}

func newTestAPI(t *testing.T, opts testAPIOptions) (*RestAPI, *store.Memory) {
	t.Helper()

	if opts.engine == nil {
		opts.engine = &stubEngine{name: "valhalla", exclusionAware: true, result: straightRoute()}
	}
	if opts.rateLimit == 0 {
		opts.rateLimit = -1
	}

	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	application := &app.Application{
		Config: app.Config{
			Env:       "test",
			RateLimit: opts.rateLimit,
		},
		Logger:       logger,
		RouteService: routing.NewService(opts.engine, mem, mem, logger),
		Importer:     track.NewImporter(mem, mem, logger),
		Geocoder:     geocode.NewClient(opts.geocodeURL, logger),
	}

	return NewRestAPI(application), mem
}

func serveRequest(api *RestAPI, r *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	api.Routes().ServeHTTP(recorder, r)
	return recorder
}

func addActiveClosure(mem *store.Memory, eventID int64) {
	mem.Create(context.Background(), eventID, models.ClosureGeometry{
		Type: models.ClosureZone,
		Polygon: orb.Polygon{{
			{6.02, 44.56}, {6.03, 44.56}, {6.03, 44.57}, {6.02, 44.57}, {6.02, 44.56},
		}},
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
		Name:      "finish line barrier",
	})
}

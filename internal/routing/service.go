package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"detour.raceday.org/internal/apperr"
	"detour.raceday.org/internal/models"
	"detour.raceday.org/internal/store"
)

// Service resolves active closures for a request and delegates to the
// configured engine. The result carries warnings describing how closures
// affected, or could not affect, the route.
type Service struct {
	engine   Engine
	events   store.EventStore
	closures store.ClosureStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the orchestrator. A nil events or closures store disables
// closure awareness entirely; routes still calculate.
func NewService(engine Engine, events store.EventStore, closures store.ClosureStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:   engine,
		events:   events,
		closures: closures,
		logger:   logger,
		now:      time.Now,
	}
}

// CalculateRoute validates the request, gathers active closure polygons for
// the named event, and calls the engine. Exclusions are passed only to
// engines that support them; otherwise the result warns that closures could
// not be avoided and flags any that the route crosses.
func (s *Service) CalculateRoute(ctx context.Context, req models.RouteRequest) (*models.RouteResult, error) {
	if !req.Profile.Valid() {
		return nil, apperr.Validation("invalid profile %q", req.Profile)
	}

	now := s.now()
	event, polygons, err := s.activeClosures(ctx, req.EventSlug, now)
	if err != nil {
		return nil, err
	}

	exclusions := polygons
	if !s.engine.SupportsExclusions() {
		exclusions = nil
	}

	result, err := s.engine.CalculateRoute(ctx, req.Origin, req.Destination, req.Profile, exclusions)
	if err != nil {
		return nil, err
	}
	result.Engine = s.engine.Name()

	if len(polygons) > 0 {
		if s.engine.SupportsExclusions() {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Route calculated avoiding %d active closure(s)", len(polygons)))
		} else {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s cannot avoid closures. %d active closure(s) detected for this event", s.engine.Name(), len(polygons)))
			crossed, err := s.closures.CountIntersecting(ctx, event.ID, result.Geometry, now)
			if err != nil {
				s.logger.Warn("routing: intersection check failed", "error", err)
			} else if crossed > 0 {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Route intersects with %d closure(s)", crossed))
			}
		}
	}

	s.logger.Info("route calculated",
		"engine", result.Engine,
		"profile", string(req.Profile),
		"distance_m", result.Distance,
		"closures", len(polygons),
		"warnings", len(result.Warnings))

	return result, nil
}

// activeClosures resolves the event and its currently active closure
// polygons. An empty slug or an unknown event yields no closures rather than
// an error; closure awareness is best-effort by design of the request shape.
func (s *Service) activeClosures(ctx context.Context, slug string, now time.Time) (*store.Event, []orb.Polygon, error) {
	if slug == "" || s.events == nil || s.closures == nil {
		return nil, nil, nil
	}

	event, err := s.events.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("routing: unknown event slug, routing without closures", "slug", slug)
			return nil, nil, nil
		}
		return nil, nil, apperr.Internal(fmt.Errorf("resolve event: %w", err))
	}

	polygons, err := s.closures.ActivePolygons(ctx, event.ID, now)
	if err != nil {
		return nil, nil, apperr.Internal(fmt.Errorf("load active closures: %w", err))
	}
	return event, polygons, nil
}

// Package store defines the storage boundary consumed by the routing and
// import paths, with a PostGIS-backed implementation and an in-memory one
// for tests and database-less runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"detour.raceday.org/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("store: not found")

// Event is an organizer-declared event owning closures.
type Event struct {
	ID   int64
	Slug string
	Name string
	Date time.Time
}

// EventStore resolves events by their public slug.
type EventStore interface {
	FindBySlug(ctx context.Context, slug string) (*Event, error)
}

// ClosureStore persists closures and answers the spatial questions the
// routing path needs. Activity is always evaluated against the instant the
// caller passes in; implementations never cache window results.
type ClosureStore interface {
	// Create stores one closure for an event.
	Create(ctx context.Context, eventID int64, closure models.ClosureGeometry) error

	// ActivePolygons returns the polygons of closures whose time window
	// contains now.
	ActivePolygons(ctx context.Context, eventID int64, now time.Time) ([]orb.Polygon, error)

	// CountIntersecting returns how many closures active at now have a
	// polygon intersecting the given route line.
	CountIntersecting(ctx context.Context, eventID int64, line orb.LineString, now time.Time) (int, error)
}

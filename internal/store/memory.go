package store

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"detour.raceday.org/internal/geo"
	"detour.raceday.org/internal/models"
)

// Memory is an in-memory EventStore and ClosureStore. It backs tests and
// database-less development runs.
type Memory struct {
	mu       sync.RWMutex
	nextID   int64
	events   map[string]*Event
	closures map[int64][]models.ClosureGeometry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextID:   1,
		events:   make(map[string]*Event),
		closures: make(map[int64][]models.ClosureGeometry),
	}
}

// AddEvent registers an event and returns it with its assigned ID.
func (m *Memory) AddEvent(slug, name string, date time.Time) *Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := &Event{ID: m.nextID, Slug: slug, Name: name, Date: date}
	m.nextID++
	m.events[slug] = event
	return event
}

func (m *Memory) FindBySlug(ctx context.Context, slug string) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	event, ok := m.events[slug]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (m *Memory) Create(ctx context.Context, eventID int64, closure models.ClosureGeometry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closures[eventID] = append(m.closures[eventID], closure)
	return nil
}

func (m *Memory) ActivePolygons(ctx context.Context, eventID int64, now time.Time) ([]orb.Polygon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var polygons []orb.Polygon
	for _, c := range m.closures[eventID] {
		if c.ActiveAt(now) {
			polygons = append(polygons, c.Polygon)
		}
	}
	return polygons, nil
}

func (m *Memory) CountIntersecting(ctx context.Context, eventID int64, line orb.LineString, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, c := range m.closures[eventID] {
		if c.ActiveAt(now) && geo.LineIntersectsPolygon(line, c.Polygon) {
			count++
		}
	}
	return count, nil
}

package track

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"detour.raceday.org/internal/geo"
	"detour.raceday.org/internal/models"
)

// buildClosure converts one feature into a closure geometry, or explains
// why it cannot.
func buildClosure(f feature, reference time.Time) (models.ClosureGeometry, error) {
	closureType, err := resolveType(f)
	if err != nil {
		return models.ClosureGeometry{}, err
	}

	start, end, err := resolveWindow(f, reference)
	if err != nil {
		return models.ClosureGeometry{}, err
	}

	closure := models.ClosureGeometry{
		Type:        closureType,
		StartTime:   start,
		EndTime:     end,
		Name:        f.name,
		Description: f.description,
	}

	switch closureType {
	case models.ClosureBarrier:
		if f.element != elementPoint {
			return models.ClosureGeometry{}, errors.New("barriers must be waypoints")
		}
		center := f.coords[0]
		closure.Polygon = geo.Circle(center, barrierRadiusMeters)
		closure.Points = &models.ClosurePoints{Center: &center}

	case models.ClosureSegment:
		if f.element != elementLine {
			return models.ClosureGeometry{}, errors.New("segments must be tracks or routes")
		}
		polygon, err := geo.BufferLine(orb.LineString(f.coords), segmentHalfWidthMeters)
		if err != nil {
			return models.ClosureGeometry{}, fmt.Errorf("failed to buffer segment: %w", err)
		}
		first, last := f.coords[0], f.coords[len(f.coords)-1]
		closure.Polygon = polygon
		closure.Points = &models.ClosurePoints{Start: &first, End: &last}

	case models.ClosureZone:
		if f.element != elementLine {
			return models.ClosureGeometry{}, errors.New("zones must be tracks or routes")
		}
		ring := geo.CloseRing(orb.Ring(f.coords))
		if len(ring) < 4 {
			return models.ClosureGeometry{}, errors.New("zones need at least three distinct points")
		}
		closure.Polygon = orb.Polygon{ring}
	}

	return closure, nil
}

// resolveType returns the declared closure type when present, otherwise
// infers one from the geometry: points become barriers, lines become
// segments, and lines that close back onto their first vertex become zones.
func resolveType(f feature) (models.ClosureType, error) {
	if f.declaredType != "" {
		closureType := models.ClosureType(f.declaredType)
		if !closureType.Valid() {
			return "", fmt.Errorf("invalid type %q: must be barrier, segment, or zone", f.declaredType)
		}
		return closureType, nil
	}

	switch f.element {
	case elementPoint:
		return models.ClosureBarrier, nil
	case elementLine:
		if isClosedRing(f.coords) {
			return models.ClosureZone, nil
		}
		return models.ClosureSegment, nil
	}
	return "", fmt.Errorf("unsupported geometry type: %s", f.element)
}

func isClosedRing(coords []orb.Point) bool {
	return len(coords) >= 4 && coords[0] == coords[len(coords)-1]
}

// resolveWindow applies the feature's declared window. When neither bound
// is declared and a reference date exists, the window defaults to eight
// hours from the reference. A feature declaring exactly one bound fails.
func resolveWindow(f feature, reference time.Time) (time.Time, time.Time, error) {
	start, end := f.start, f.end

	if start == nil && end == nil && !reference.IsZero() {
		s := reference
		e := reference.Add(defaultClosureWindow)
		start, end = &s, &e
	}

	if start == nil || end == nil {
		return time.Time{}, time.Time{}, errors.New("start_time and end_time required in GPX extensions or must provide event date")
	}
	if !start.Before(*end) {
		return time.Time{}, time.Time{}, errors.New("start_time must be before end_time")
	}
	return *start, *end, nil
}

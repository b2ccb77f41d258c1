// Package geo provides the geographic primitives used to build closure
// polygons and to test routes against them. Buffering uses a local
// equirectangular approximation, which is adequate at closure scale
// (tens of meters).
package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	earthRadiusMeters  = 6371000
	metersPerDegreeLat = 111320.0
	circleSegmentCount = 32
)

// Haversine returns the great-circle distance between two [lon, lat] points
// in meters.
func Haversine(a, b orb.Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dlat := lat2 - lat1
	dlon := (b.Lon() - a.Lon()) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// offset shifts a point by dx meters east and dy meters north.
func offset(p orb.Point, dx, dy float64) orb.Point {
	lat := p.Lat() + dy/metersPerDegreeLat
	lon := p.Lon() + dx/(metersPerDegreeLat*math.Cos(p.Lat()*math.Pi/180))
	return orb.Point{lon, lat}
}

// Circle returns a closed polygon approximating a disc of the given radius
// in meters around center.
func Circle(center orb.Point, radiusMeters float64) orb.Polygon {
	ring := make(orb.Ring, 0, circleSegmentCount+1)
	for i := 0; i < circleSegmentCount; i++ {
		angle := 2 * math.Pi * float64(i) / circleSegmentCount
		ring = append(ring, offset(center, radiusMeters*math.Sin(angle), radiusMeters*math.Cos(angle)))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// BufferLine returns a closed corridor polygon of the given half-width in
// meters around a line. Caps are flat.
func BufferLine(line orb.LineString, halfWidthMeters float64) (orb.Polygon, error) {
	points := dedupe(line)
	if len(points) < 2 {
		return nil, errors.New("line must contain at least two distinct points")
	}

	left := make([]orb.Point, len(points))
	right := make([]orb.Point, len(points))
	for i, p := range points {
		nx, ny := vertexNormal(points, i)
		left[i] = offset(p, nx*halfWidthMeters, ny*halfWidthMeters)
		right[i] = offset(p, -nx*halfWidthMeters, -ny*halfWidthMeters)
	}

	ring := make(orb.Ring, 0, 2*len(points)+1)
	ring = append(ring, left...)
	for i := len(right) - 1; i >= 0; i-- {
		ring = append(ring, right[i])
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}, nil
}

// vertexNormal returns the unit normal at vertex i, averaging the normals of
// the adjacent segments.
func vertexNormal(points []orb.Point, i int) (float64, float64) {
	var dx, dy float64
	if i > 0 {
		sx, sy := segmentVector(points[i-1], points[i])
		dx += sx
		dy += sy
	}
	if i < len(points)-1 {
		sx, sy := segmentVector(points[i], points[i+1])
		dx += sx
		dy += sy
	}
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 0, 0
	}
	return -dy / length, dx / length
}

// segmentVector returns the direction of a segment in local meter space.
func segmentVector(a, b orb.Point) (float64, float64) {
	cosLat := math.Cos(a.Lat() * math.Pi / 180)
	dx := (b.Lon() - a.Lon()) * metersPerDegreeLat * cosLat
	dy := (b.Lat() - a.Lat()) * metersPerDegreeLat
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 0, 0
	}
	return dx / length, dy / length
}

func dedupe(line orb.LineString) []orb.Point {
	out := make([]orb.Point, 0, len(line))
	for _, p := range line {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

// CloseRing appends the first vertex when the ring is open. Closing an
// already-closed ring is a no-op.
func CloseRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 {
		return ring
	}
	if ring[0] == ring[len(ring)-1] {
		return ring
	}
	return append(ring, ring[0])
}

// LineIntersectsPolygon reports whether a line touches a polygon: either a
// vertex lies inside it, or a segment crosses one of its ring edges.
func LineIntersectsPolygon(line orb.LineString, poly orb.Polygon) bool {
	if len(line) == 0 || len(poly) == 0 {
		return false
	}
	for _, p := range line {
		if planar.PolygonContains(poly, p) {
			return true
		}
	}
	for i := 0; i+1 < len(line); i++ {
		for _, ring := range poly {
			for j := 0; j+1 < len(ring); j++ {
				if segmentsCross(line[i], line[i+1], ring[j], ring[j+1]) {
					return true
				}
			}
		}
	}
	return false
}

// segmentsCross reports whether segments ab and cd intersect, including
// collinear overlap.
func segmentsCross(a, b, c, d orb.Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(a, b, c) {
		return true
	}
	if o2 == 0 && onSegment(a, b, d) {
		return true
	}
	if o3 == 0 && onSegment(c, d, a) {
		return true
	}
	if o4 == 0 && onSegment(c, d, b) {
		return true
	}
	return false
}

// orientation returns the sign of the cross product of (b-a) and (c-a).
func orientation(a, b, c orb.Point) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// onSegment reports whether collinear point p lies within segment ab's
// bounding box.
func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// Package track turns uploaded GPX files into closure geometries. A
// malformed feature fails alone; the rest of the upload proceeds. Only a
// document that cannot be parsed at all, is empty, or is oversized rejects
// the whole file.
package track

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-gpx"

	"detour.raceday.org/internal/apperr"
	"detour.raceday.org/internal/models"
)

const (
	// MaxFeatures bounds a single upload.
	MaxFeatures = 100

	barrierRadiusMeters    = 30
	segmentHalfWidthMeters = 15

	// defaultClosureWindow is applied when a feature declares neither
	// start nor end time and an event date is available.
	defaultClosureWindow = 8 * time.Hour
)

const (
	elementPoint = "Point"
	elementLine  = "LineString"
)

// feature is one candidate closure extracted from a GPX document.
type feature struct {
	element      string
	coords       []orb.Point
	name         string
	description  string
	declaredType string
	start        *time.Time
	end          *time.Time
}

// Parse converts raw GPX bytes into closures. Reference is the fallback
// anchor for features that declare no time window, typically the event
// date; a zero reference disables the fallback. Individual feature failures
// are returned as ParseErrors alongside the successes, in input order.
func Parse(data []byte, reference time.Time) ([]models.ClosureGeometry, []models.ParseError, error) {
	doc, err := gpx.Read(bytes.NewReader(data))
	if err != nil {
		return nil, nil, apperr.Validation("failed to parse GPX: %v", err)
	}

	features := collectFeatures(doc)
	if len(features) == 0 {
		return nil, nil, apperr.Validation("GPX file is empty")
	}
	if len(features) > MaxFeatures {
		return nil, nil, apperr.Validation("maximum %d elements allowed per GPX file", MaxFeatures)
	}

	var closures []models.ClosureGeometry
	var parseErrors []models.ParseError
	for _, f := range features {
		closure, err := buildClosure(f, reference)
		if err != nil {
			parseErrors = append(parseErrors, models.ParseError{
				Element: f.element,
				Name:    f.name,
				Message: err.Error(),
			})
			continue
		}
		closures = append(closures, closure)
	}
	return closures, parseErrors, nil
}

// collectFeatures flattens a GPX document into features: waypoints first,
// then routes, then tracks, each class in document order.
func collectFeatures(doc *gpx.GPX) []feature {
	var features []feature

	for _, w := range doc.Wpt {
		ext := parseExtensions(w.Extensions)
		features = append(features, feature{
			element:      elementPoint,
			coords:       []orb.Point{{w.Lon, w.Lat}},
			name:         w.Name,
			description:  w.Desc,
			declaredType: firstNonEmpty(w.Type, ext.Type),
			start:        parseTime(ext.StartTime),
			end:          parseTime(ext.EndTime),
		})
	}

	for _, r := range doc.Rte {
		ext := parseExtensions(r.Extensions)
		features = append(features, feature{
			element:      elementLine,
			coords:       pointsOf(r.RtePt),
			name:         r.Name,
			description:  r.Desc,
			declaredType: firstNonEmpty(r.Type, ext.Type),
			start:        parseTime(ext.StartTime),
			end:          parseTime(ext.EndTime),
		})
	}

	for _, t := range doc.Trk {
		ext := parseExtensions(t.Extensions)
		var coords []orb.Point
		for _, seg := range t.TrkSeg {
			coords = append(coords, pointsOf(seg.TrkPt)...)
		}
		features = append(features, feature{
			element:      elementLine,
			coords:       coords,
			name:         t.Name,
			description:  t.Desc,
			declaredType: firstNonEmpty(t.Type, ext.Type),
			start:        parseTime(ext.StartTime),
			end:          parseTime(ext.EndTime),
		})
	}

	return features
}

func pointsOf(wpts []*gpx.WptType) []orb.Point {
	points := make([]orb.Point, len(wpts))
	for i, w := range wpts {
		points[i] = orb.Point{w.Lon, w.Lat}
	}
	return points
}

// extensionData holds the closure attributes read from a GPX <extensions>
// block.
type extensionData struct {
	Type      string `xml:"type"`
	StartTime string `xml:"start_time"`
	EndTime   string `xml:"end_time"`
}

func parseExtensions(ext *gpx.ExtensionsType) extensionData {
	var data extensionData
	if ext == nil || len(ext.XML) == 0 {
		return data
	}
	wrapped := append([]byte("<extensions>"), ext.XML...)
	wrapped = append(wrapped, []byte("</extensions>")...)
	// Malformed extensions are treated as absent attributes, not as a
	// feature failure.
	_ = xml.Unmarshal(wrapped, &data)
	return data
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package models

import (
	"time"

	"github.com/paulmach/orb"
)

// ClosureType tags the kind of course closure a geometry represents.
type ClosureType string

const (
	ClosureBarrier ClosureType = "barrier"
	ClosureSegment ClosureType = "segment"
	ClosureZone    ClosureType = "zone"
)

// Valid reports whether t is one of the supported closure types.
func (t ClosureType) Valid() bool {
	switch t {
	case ClosureBarrier, ClosureSegment, ClosureZone:
		return true
	}
	return false
}

// ClosurePoints carries optional display metadata alongside a closure's
// polygon: the center of a barrier, or the endpoints of a segment. It is
// auxiliary and not required for exclusion correctness.
type ClosurePoints struct {
	Center *orb.Point `json:"center,omitempty"`
	Start  *orb.Point `json:"start,omitempty"`
	End    *orb.Point `json:"end,omitempty"`
}

// ClosureGeometry is a time-bounded geographic exclusion area. The polygon's
// outer ring is always closed (first coordinate equals last) and StartTime
// is strictly before EndTime.
type ClosureGeometry struct {
	Type        ClosureType
	Polygon     orb.Polygon
	Points      *ClosurePoints
	StartTime   time.Time
	EndTime     time.Time
	Name        string
	Description string
}

// ActiveAt reports whether the closure's window contains the given instant.
func (c ClosureGeometry) ActiveAt(t time.Time) bool {
	return !t.Before(c.StartTime) && !t.After(c.EndTime)
}

// ParseError describes a single track feature that could not be converted
// into a closure. Failed features are reported, never silently dropped.
type ParseError struct {
	Element string `json:"element"`
	Name    string `json:"name,omitempty"`
	Message string `json:"error"`
}

// ImportResult summarizes a track file import: how many closures were
// created and which features failed.
type ImportResult struct {
	Created int          `json:"created"`
	Errors  []ParseError `json:"errors"`
}

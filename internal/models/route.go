package models

import (
	"github.com/paulmach/orb"
)

// Profile is the travel mode used to select engine-specific costing.
type Profile string

const (
	ProfileDriving Profile = "driving"
	ProfileWalking Profile = "walking"
	ProfileCycling Profile = "cycling"
	ProfileFoot    Profile = "foot"
)

// Valid reports whether p is one of the supported travel profiles.
func (p Profile) Valid() bool {
	switch p {
	case ProfileDriving, ProfileWalking, ProfileCycling, ProfileFoot:
		return true
	}
	return false
}

// RouteRequest describes a single route calculation. Coordinates are
// [lon, lat]. EventSlug is optional; when set, active closures for that
// event are resolved at request time.
type RouteRequest struct {
	Origin      orb.Point
	Destination orb.Point
	Profile     Profile
	EventSlug   string
}

// Step is one turn-by-turn instruction of a route.
type Step struct {
	Distance    float64 `json:"distance"` // meters
	Duration    float64 `json:"duration"` // seconds
	Instruction string  `json:"instruction"`
	Name        string  `json:"name,omitempty"`
}

// RouteResult is the engine-independent route representation. Geometry is
// ordered [lon, lat] coordinates; Engine names the provider that produced
// the result.
type RouteResult struct {
	Distance float64 // meters
	Duration float64 // seconds
	Geometry orb.LineString
	Steps    []Step
	Warnings []string
	Engine   string
}

package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"detour.raceday.org/internal/apperr"
	"detour.raceday.org/internal/models"
)

// DefaultOSRMURL is the public OSRM demo instance.
const DefaultOSRMURL = "http://router.project-osrm.org"

// OSRMEngine is the routing provider without exclusion support. It is not
// rate-sensitive, so calls go out directly.
type OSRMEngine struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOSRMEngine creates an OSRM client. An empty baseURL selects the public
// instance.
func NewOSRMEngine(baseURL string, logger *slog.Logger) *OSRMEngine {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OSRMEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (e *OSRMEngine) Name() string { return "osrm" }

func (e *OSRMEngine) SupportsExclusions() bool { return false }

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64           `json:"distance"` // meters
	Duration float64           `json:"duration"` // seconds
	Geometry *geojson.Geometry `json:"geometry"`
	Legs     []osrmLeg         `json:"legs"`
}

type osrmLeg struct {
	Steps []osrmStep `json:"steps"`
}

type osrmStep struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Name     string       `json:"name"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmManeuver struct {
	Type        string `json:"type"`
	Instruction string `json:"instruction"`
}

// osrmErrors maps the provider's response codes onto the stable taxonomy.
var osrmErrors = map[string]*apperr.Error{
	"NoRoute":   apperr.Upstream(apperr.CodeNoRoute, "no route found between the given points"),
	"NoSegment": apperr.Upstream(apperr.CodeNoRoute, "one of the given points is not near a routable road"),
}

// CalculateRoute issues a direct coordinate-pair request. The exclusions
// argument is ignored; OSRM cannot honor it and the orchestrator warns the
// caller instead.
func (e *OSRMEngine) CalculateRoute(ctx context.Context, origin, destination orb.Point, profile models.Profile, exclusions []orb.Polygon) (*models.RouteResult, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%s;%s?overview=full&steps=true&geometries=geojson",
		e.baseURL,
		osrmProfile(profile),
		formatCoordinate(origin),
		formatCoordinate(destination),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create osrm request: %w", err))
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	var decoded osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, apperr.Upstream(apperr.CodeUpstream, fmt.Sprintf("routing engine request failed with status %d", resp.StatusCode))
		}
		return nil, apperr.Upstream(apperr.CodeUpstream, "routing engine returned an unreadable response")
	}

	if decoded.Code != "Ok" {
		if mapped, ok := osrmErrors[decoded.Code]; ok {
			return nil, mapped
		}
		e.logger.Warn("osrm: unmapped error code", "code", decoded.Code, "message", decoded.Message)
		return nil, apperr.Upstream(apperr.CodeUpstream, fmt.Sprintf("routing engine rejected the request: %s", decoded.Code))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream(apperr.CodeUpstream, fmt.Sprintf("routing engine request failed with status %d", resp.StatusCode))
	}
	if len(decoded.Routes) == 0 {
		return nil, apperr.Upstream(apperr.CodeUpstream, "routing engine returned no routes")
	}

	return normalizeOSRM(decoded.Routes[0])
}

// normalizeOSRM converts the provider response into the uniform route
// result. Distances and durations are already in final units; geometry
// arrives pre-decoded as GeoJSON.
func normalizeOSRM(route osrmRoute) (*models.RouteResult, error) {
	if route.Geometry == nil {
		return nil, apperr.Upstream(apperr.CodeUpstream, "routing engine returned no route geometry")
	}
	geometry, ok := route.Geometry.Geometry().(orb.LineString)
	if !ok {
		return nil, apperr.Upstream(apperr.CodeUpstream, "routing engine returned unexpected route geometry")
	}

	var steps []models.Step
	if len(route.Legs) > 0 {
		steps = make([]models.Step, len(route.Legs[0].Steps))
		for i, s := range route.Legs[0].Steps {
			instruction := s.Maneuver.Instruction
			if instruction == "" {
				instruction = s.Name
			}
			if instruction == "" {
				instruction = "Continue"
			}
			steps[i] = models.Step{
				Distance:    s.Distance,
				Duration:    s.Duration,
				Instruction: instruction,
				Name:        s.Name,
			}
		}
	}

	return &models.RouteResult{
		Distance: route.Distance,
		Duration: route.Duration,
		Geometry: geometry,
		Steps:    steps,
	}, nil
}

func formatCoordinate(p orb.Point) string {
	return strings.Join([]string{
		strconv.FormatFloat(p.Lon(), 'f', 6, 64),
		strconv.FormatFloat(p.Lat(), 'f', 6, 64),
	}, ",")
}

func osrmProfile(profile models.Profile) string {
	switch profile {
	case models.ProfileWalking, models.ProfileFoot:
		return "foot"
	case models.ProfileCycling:
		return "bike"
	default:
		return "car"
	}
}

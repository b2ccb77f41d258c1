package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/paulmach/orb"

	"detour.raceday.org/internal/apperr"
	"detour.raceday.org/internal/geo"
	"detour.raceday.org/internal/limiter"
	"detour.raceday.org/internal/models"
)

// DefaultValhallaURL is the public Valhalla instance. It is rate-sensitive;
// all calls go through the limiter.
const DefaultValhallaURL = "https://valhalla1.openstreetmap.de"

// ValhallaEngine is the exclusion-capable routing provider.
type ValhallaEngine struct {
	baseURL    string
	httpClient *http.Client
	limiter    *limiter.Limiter
	logger     *slog.Logger
}

// NewValhallaEngine creates a Valhalla client that schedules every call
// through lim. An empty baseURL selects the public instance.
func NewValhallaEngine(baseURL string, lim *limiter.Limiter, logger *slog.Logger) *ValhallaEngine {
	if baseURL == "" {
		baseURL = DefaultValhallaURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ValhallaEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: lim,
		logger:  logger,
	}
}

func (e *ValhallaEngine) Name() string { return "valhalla" }

func (e *ValhallaEngine) SupportsExclusions() bool { return true }

type valhallaLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type valhallaRequest struct {
	Locations       []valhallaLocation `json:"locations"`
	Costing         string             `json:"costing"`
	ExcludePolygons [][][]float64      `json:"exclude_polygons,omitempty"`
}

type valhallaResponse struct {
	Trip *valhallaTrip `json:"trip"`
}

type valhallaTrip struct {
	Summary valhallaSummary `json:"summary"`
	Legs    []valhallaLeg   `json:"legs"`
}

type valhallaSummary struct {
	Length float64 `json:"length"` // kilometers
	Time   float64 `json:"time"`   // seconds
}

type valhallaLeg struct {
	Shape     string             `json:"shape"`
	Maneuvers []valhallaManeuver `json:"maneuvers"`
}

type valhallaManeuver struct {
	Instruction string   `json:"instruction"`
	Length      float64  `json:"length"` // kilometers
	Time        float64  `json:"time"`   // seconds
	StreetNames []string `json:"street_names"`
}

type valhallaErrorBody struct {
	ErrorCode int    `json:"error_code"`
	Error     string `json:"error"`
}

// valhallaErrors maps the provider's domain error codes onto the stable
// taxonomy. Unmapped codes fall back to a generic upstream error carrying
// the provider's message.
var valhallaErrors = map[int]*apperr.Error{
	442: apperr.Upstream(apperr.CodeNoRoute, "no route found between the given points"),
	157: apperr.Upstream(apperr.CodeExclusionTooLarge, "closure exclusion area is too large for the routing engine"),
}

func (e *ValhallaEngine) CalculateRoute(ctx context.Context, origin, destination orb.Point, profile models.Profile, exclusions []orb.Polygon) (*models.RouteResult, error) {
	request := valhallaRequest{
		Locations: []valhallaLocation{
			{Lat: origin.Lat(), Lon: origin.Lon()},
			{Lat: destination.Lat(), Lon: destination.Lon()},
		},
		Costing: valhallaCosting(profile),
	}
	for _, polygon := range exclusions {
		if len(polygon) == 0 {
			continue
		}
		ring := make([][]float64, len(polygon[0]))
		for i, p := range polygon[0] {
			ring[i] = []float64{p.Lon(), p.Lat()}
		}
		request.ExcludePolygons = append(request.ExcludePolygons, ring)
	}

	var result *models.RouteResult
	err := e.limiter.Schedule(ctx, func(ctx context.Context) error {
		response, err := e.call(ctx, request)
		if err != nil {
			return err
		}
		result = response
		return nil
	})
	if err != nil {
		return nil, classifyLimiterError(err)
	}
	return result, nil
}

func (e *ValhallaEngine) call(ctx context.Context, request valhallaRequest) (*models.RouteResult, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("marshal valhalla request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/route", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create valhalla request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, e.upstreamError(resp.StatusCode, raw)
	}

	var decoded valhallaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperr.Upstream(apperr.CodeUpstream, "routing engine returned an unreadable response")
	}
	if decoded.Trip == nil || len(decoded.Trip.Legs) == 0 {
		return nil, apperr.Upstream(apperr.CodeUpstream, "routing engine returned no trip data")
	}

	return normalizeValhalla(decoded.Trip)
}

// upstreamError translates a non-success Valhalla status into the stable
// error shape, never passing the raw payload through.
func (e *ValhallaEngine) upstreamError(status int, raw []byte) error {
	var body valhallaErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.ErrorCode != 0 {
		if mapped, ok := valhallaErrors[body.ErrorCode]; ok {
			return mapped
		}
		e.logger.Warn("valhalla: unmapped error code",
			"error_code", body.ErrorCode,
			"message", body.Error)
		return apperr.Upstream(apperr.CodeUpstream, fmt.Sprintf("routing engine rejected the request: %s", body.Error))
	}
	return apperr.Upstream(apperr.CodeUpstream, fmt.Sprintf("routing engine request failed with status %d", status))
}

// normalizeValhalla converts the provider response into the uniform route
// result: kilometers to meters, encoded shape to coordinates, maneuvers to
// steps.
func normalizeValhalla(trip *valhallaTrip) (*models.RouteResult, error) {
	leg := trip.Legs[0]

	geometry, err := geo.DecodeShape(leg.Shape)
	if err != nil {
		return nil, apperr.Upstream(apperr.CodeUpstream, "routing engine returned an undecodable route shape")
	}

	steps := make([]models.Step, len(leg.Maneuvers))
	for i, m := range leg.Maneuvers {
		step := models.Step{
			Distance:    m.Length * 1000,
			Duration:    m.Time,
			Instruction: m.Instruction,
		}
		if len(m.StreetNames) > 0 {
			step.Name = m.StreetNames[0]
		}
		steps[i] = step
	}

	return &models.RouteResult{
		Distance: trip.Summary.Length * 1000,
		Duration: trip.Summary.Time,
		Geometry: geometry,
		Steps:    steps,
	}, nil
}

// classifyLimiterError keeps queue failures within the taxonomy while
// passing through errors already classified by call.
func classifyLimiterError(err error) error {
	switch {
	case errors.Is(err, limiter.ErrTimeout):
		return apperr.Timeout("routing engine request timed out in the queue")
	case errors.Is(err, limiter.ErrQueueFull), errors.Is(err, limiter.ErrDropped):
		return apperr.Timeout("routing engine is busy, try again later")
	}
	return err
}

func valhallaCosting(profile models.Profile) string {
	switch profile {
	case models.ProfileWalking, models.ProfileFoot:
		return "pedestrian"
	case models.ProfileCycling:
		return "bicycle"
	default:
		return "auto"
	}
}

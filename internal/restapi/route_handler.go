package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"detour.raceday.org/internal/models"
	"detour.raceday.org/internal/utils"
)

const maxRouteBodyBytes = 64 * 1024

type calculateRouteRequest struct {
	Origin      []float64 `json:"origin"`
	Destination []float64 `json:"destination"`
	Profile     string    `json:"profile"`
	EventSlug   string    `json:"eventSlug"`
}

type calculateRouteResponse struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Geometry *geojson.Geometry `json:"geometry"`
	Steps    []models.Step     `json:"steps"`
	Warnings []string          `json:"warnings"`
	Engine   string            `json:"routing_engine"`
}

func (api *RestAPI) calculateRouteHandler(w http.ResponseWriter, r *http.Request) {
	var body calculateRouteRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRouteBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"body": {"request body must be valid JSON"},
		})
		return
	}

	fieldErrors := make(map[string][]string)
	origin, errs := parseCoordinate(body.Origin)
	for _, e := range errs {
		fieldErrors["origin"] = append(fieldErrors["origin"], e)
	}
	destination, errs := parseCoordinate(body.Destination)
	for _, e := range errs {
		fieldErrors["destination"] = append(fieldErrors["destination"], e)
	}
	profile := models.Profile(body.Profile)
	if body.Profile == "" {
		profile = models.ProfileDriving
	} else if !profile.Valid() {
		fieldErrors["profile"] = append(fieldErrors["profile"], "profile must be one of driving, walking, cycling, foot")
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	result, err := api.RouteService.CalculateRoute(r.Context(), models.RouteRequest{
		Origin:      origin,
		Destination: destination,
		Profile:     profile,
		EventSlug:   body.EventSlug,
	})
	if err != nil {
		api.sendError(w, r, err)
		return
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	steps := result.Steps
	if steps == nil {
		steps = []models.Step{}
	}

	api.sendJSON(w, r, http.StatusOK, calculateRouteResponse{
		Distance: result.Distance,
		Duration: result.Duration,
		Geometry: geojson.NewGeometry(result.Geometry),
		Steps:    steps,
		Warnings: warnings,
		Engine:   result.Engine,
	})
}

// parseCoordinate reads a [lon, lat] pair and validates both bounds.
func parseCoordinate(raw []float64) (orb.Point, []string) {
	if len(raw) != 2 {
		return orb.Point{}, []string{"coordinate must be a [lon, lat] pair"}
	}

	var errs []string
	if err := utils.ValidateLongitude(raw[0]); err != nil {
		errs = append(errs, err.Error())
	}
	if err := utils.ValidateLatitude(raw[1]); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return orb.Point{}, errs
	}
	return orb.Point{raw[0], raw[1]}, nil
}

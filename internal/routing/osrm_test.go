package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detour.raceday.org/internal/apperr"
	"detour.raceday.org/internal/models"
)

const osrmRouteBody = `{
	"code": "Ok",
	"routes": [{
		"distance": 1834.2,
		"duration": 312.7,
		"geometry": {"type": "LineString", "coordinates": [[6.02, 44.56], [6.03, 44.57]]},
		"legs": [{
			"steps": [
				{"distance": 900, "duration": 150, "name": "Avenue de la Gare", "maneuver": {"type": "depart"}},
				{"distance": 934.2, "duration": 162.7, "name": "", "maneuver": {"type": "arrive"}}
			]
		}]
	}]
}`

func TestOSRMRequestShape(t *testing.T) {
	var captured *http.Request

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		w.Write([]byte(osrmRouteBody))
	}))
	defer server.Close()

	engine := NewOSRMEngine(server.URL, nil)
	result, err := engine.CalculateRoute(context.Background(),
		orb.Point{6.02, 44.56}, orb.Point{6.03, 44.57}, models.ProfileCycling, nil)
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, "/route/v1/bike/6.020000,44.560000;6.030000,44.570000", captured.URL.Path)
	query := captured.URL.Query()
	assert.Equal(t, "full", query.Get("overview"))
	assert.Equal(t, "true", query.Get("steps"))
	assert.Equal(t, "geojson", query.Get("geometries"))

	assert.InDelta(t, 1834.2, result.Distance, 1e-9)
	assert.InDelta(t, 312.7, result.Duration, 1e-9)
	require.Len(t, result.Geometry, 2)
	assert.Equal(t, orb.Point{6.02, 44.56}, result.Geometry[0])

	// Steps fall back from maneuver instruction to street name to a
	// generic continue.
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "Avenue de la Gare", result.Steps[0].Instruction)
	assert.Equal(t, "Continue", result.Steps[1].Instruction)
}

func TestOSRMProfileMapping(t *testing.T) {
	cases := map[models.Profile]string{
		models.ProfileDriving: "car",
		models.ProfileWalking: "foot",
		models.ProfileFoot:    "foot",
		models.ProfileCycling: "bike",
	}

	for profile, want := range cases {
		assert.Equal(t, want, osrmProfile(profile), string(profile))
	}
}

func TestOSRMErrorMapping(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantCode    apperr.Code
		wantMessage string
	}{
		{
			name:        "no route",
			body:        `{"code": "NoRoute", "message": "Impossible route between points"}`,
			wantCode:    apperr.CodeNoRoute,
			wantMessage: "no route found between the given points",
		},
		{
			name:        "no segment",
			body:        `{"code": "NoSegment", "message": "Could not find a matching segment"}`,
			wantCode:    apperr.CodeNoRoute,
			wantMessage: "one of the given points is not near a routable road",
		},
		{
			name:     "unmapped",
			body:     `{"code": "InvalidQuery", "message": "Query string malformed"}`,
			wantCode: apperr.CodeUpstream,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			engine := NewOSRMEngine(server.URL, nil)
			_, err := engine.CalculateRoute(context.Background(),
				orb.Point{6.02, 44.56}, orb.Point{6.03, 44.57}, models.ProfileDriving, nil)
			require.Error(t, err)
			appErr := apperr.From(err)
			assert.Equal(t, tc.wantCode, appErr.Code)
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, appErr.Message)
			}
			assert.NotContains(t, err.Error(), "Impossible route")
		})
	}
}

func TestOSRMUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	engine := NewOSRMEngine(server.URL, nil)
	_, err := engine.CalculateRoute(context.Background(),
		orb.Point{6.02, 44.56}, orb.Point{6.03, 44.57}, models.ProfileDriving, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeEngineUnreachable, apperr.From(err).Code)
}

func TestOSRMMissingRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "Ok", "routes": []}`))
	}))
	defer server.Close()

	engine := NewOSRMEngine(server.URL, nil)
	_, err := engine.CalculateRoute(context.Background(),
		orb.Point{6.02, 44.56}, orb.Point{6.03, 44.57}, models.ProfileDriving, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUpstream, apperr.From(err).Code)
}

// Package geocode resolves free-text addresses to coordinates through the
// BAN address API, so clients can look up route endpoints by name instead of
// supplying raw coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"detour.raceday.org/internal/apperr"
)

// DefaultGeocodeURL is the public BAN (Base Adresse Nationale) search
// endpoint.
const DefaultGeocodeURL = "https://api-adresse.data.gouv.fr/search/"

// DefaultLimit is the number of results returned when the caller does not
// ask for a specific count.
const DefaultLimit = 5

// Result is one address match in Nominatim-like shape. Coordinates stay
// strings on the wire for compatibility with clients that consume either
// geocoder.
type Result struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client queries the geocoding service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a geocoding client. An empty baseURL selects the public
// instance.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultGeocodeURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Search resolves a free-text query into address matches. A non-positive
// limit selects the default. No matches is an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create geocode request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream(apperr.CodeUpstream, fmt.Sprintf("geocoding service request failed with status %d", resp.StatusCode))
	}

	var collection geojson.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, apperr.Upstream(apperr.CodeUpstream, "geocoding service returned an unreadable response")
	}

	results := make([]Result, 0, len(collection.Features))
	for _, feature := range collection.Features {
		point, ok := feature.Geometry.(orb.Point)
		if !ok {
			c.logger.Warn("geocode: skipping non-point feature")
			continue
		}
		results = append(results, Result{
			Lat:         strconv.FormatFloat(point.Lat(), 'f', -1, 64),
			Lon:         strconv.FormatFloat(point.Lon(), 'f', -1, 64),
			DisplayName: feature.Properties.MustString("label", ""),
		})
	}
	return results, nil
}

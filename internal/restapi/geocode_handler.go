package restapi

import (
	"net/http"
	"strconv"
	"strings"
)

const maxGeocodeResults = 20

func (api *RestAPI) geocodeHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		api.sendJSON(w, r, http.StatusOK, []struct{}{})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxGeocodeResults {
			api.validationErrorResponse(w, r, map[string][]string{
				"limit": {"limit must be an integer between 1 and 20"},
			})
			return
		}
		limit = parsed
	}

	results, err := api.Geocoder.Search(r.Context(), query, limit)
	if err != nil {
		api.sendError(w, r, err)
		return
	}

	api.sendJSON(w, r, http.StatusOK, results)
}

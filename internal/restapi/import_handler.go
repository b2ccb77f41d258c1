package restapi

import (
	"io"
	"net/http"

	"detour.raceday.org/internal/utils"
)

// Track files from mapping tools are small; a couple of megabytes covers
// hundreds of densely sampled tracks.
const maxTrackFileBytes = 5 * 1024 * 1024

func (api *RestAPI) importClosuresHandler(w http.ResponseWriter, r *http.Request) {
	slug := utils.ExtractSlugFromParams(r, "slug")
	if err := utils.ValidateID(slug); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"slug": {err.Error()},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxTrackFileBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"body": {"track file too large or unreadable"},
		})
		return
	}

	result, err := api.Importer.ImportTrackFile(r.Context(), slug, data)
	if err != nil {
		api.sendError(w, r, err)
		return
	}

	api.sendJSON(w, r, http.StatusCreated, result)
}

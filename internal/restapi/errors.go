package restapi

import (
	"encoding/json"
	"net/http"

	"detour.raceday.org/internal/apperr"
)

type errorResponse struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
}

// sendError maps any error onto the stable taxonomy and writes it as JSON.
// Internal errors are logged with their cause; the response body never
// carries it.
func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Code == apperr.CodeInternal {
		api.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	encodeErr := json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Status:  appErr.Status,
	})
	if encodeErr != nil {
		api.Logger.Error("failed to encode error response", "error", encodeErr)
	}
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := struct {
		Code        apperr.Code         `json:"code"`
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		Code:        apperr.CodeValidation,
		FieldErrors: fieldErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.Logger.Error("failed to encode validation error response", "error", err)
	}
}

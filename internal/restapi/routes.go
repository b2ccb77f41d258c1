package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Routes builds the full handler chain: router, then compression, then rate
// limiting, then request logging on the outside so rejected requests are
// still logged.
func (api *RestAPI) Routes() http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/api/v1/health", api.healthHandler)
	router.HandlerFunc(http.MethodGet, "/api/v1/geocode", api.geocodeHandler)
	router.HandlerFunc(http.MethodPost, "/api/v1/route", api.calculateRouteHandler)
	router.HandlerFunc(http.MethodPost, "/api/v1/events/:slug/closures/import", api.importClosuresHandler)

	handler := CompressionMiddleware(router)
	handler = api.rateLimiter(handler)
	return NewRequestLoggingMiddleware(api.Logger)(handler)
}

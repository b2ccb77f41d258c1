package utils

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// ExtractSlugFromParams retrieves a path parameter from the request context
// and strips a trailing ".json" extension if one was supplied.
func ExtractSlugFromParams(r *http.Request, paramName string) string {
	params := httprouter.ParamsFromContext(r.Context())
	raw := params.ByName(paramName)
	return strings.Split(raw, ".json")[0]
}

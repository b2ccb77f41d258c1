package restapi

import "net/http"

func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	api.sendJSON(w, r, http.StatusOK, map[string]string{
		"status":      "ok",
		"environment": api.Config.Env,
	})
}

package handler

import "net/http"

// HealthCheck is the liveness probe. It never touches the database;
// /api/v1/status does.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

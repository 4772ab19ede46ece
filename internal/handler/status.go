package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"financeplanner/internal/config"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

const statusTimeout = 2 * time.Second

// statusHandler reports service identity and database reachability.
// A nil db reports the database as "unknown".
func statusHandler(cfg *config.Config, db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, database, code := "operational", "unknown", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				log.Printf("status: database health check failed: %v", err)
				status, database, code = "degraded", "unreachable", http.StatusServiceUnavailable
			} else {
				database = "ok"
			}
		}

		writeJSON(w, code, map[string]any{
			"service":     "financeplanner",
			"version":     "0.1.0",
			"environment": cfg.Environment,
			"status":      status,
			"database":    database,
		})
	}
}

package handlers

import (
	"database/sql"
	"net/http"
	"time"
)

// HealthResponse reports service status.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Healthz returns a liveness/readiness handler. With a database handle it
// also verifies connectivity and reports 503 when the database is down.
func Healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
					Status:    "unavailable",
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

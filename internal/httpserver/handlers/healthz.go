package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string    `json:"status"`
	Service       string    `json:"service"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Version       string    `json:"version,omitempty"`
	Commit        string    `json:"commit,omitempty"`
	BuildDate     string    `json:"build_date,omitempty"`
	GoVersion     string    `json:"go_version,omitempty"`
}

// Healthz is liveness only; it never touches a registry or the session store.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			Service:       "relay",
			StartedAt:     start.UTC(),
			UptimeSeconds: d.Now().Sub(start).Seconds(),
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		})
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	relayredis "github.com/MrSnakeDoc/relay/internal/redis"
)

type componentStatus struct {
	OK      bool     `json:"ok"`
	Count   *int     `json:"count,omitempty"`
	Fresh   *int     `json:"fresh,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	State   string   `json:"state,omitempty"`
	Targets []string `json:"targets,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the client's own components without querying any registry.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		registries := d.Resolver.Sources()
		registryCount := len(registries)

		entries := d.Resolver.Cache().Snapshot()
		cached, fresh := len(entries), 0
		for _, e := range entries {
			if e.Fresh {
				fresh++
			}
		}

		components := map[string]componentStatus{
			"registries": {
				OK:      registryCount > 0,
				Count:   &registryCount,
				Targets: registries,
			},
			"cache": {
				OK:    true,
				Count: &cached,
				Fresh: &fresh,
			},
			"session": checkSession(r.Context(), d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if reg, ok := components["registries"]; ok && !reg.OK {
		return "critical" // nothing to resolve against
	}
	if s, ok := components["session"]; ok && !s.OK {
		return "degraded" // calls work, sessions do not persist
	}
	return "operational"
}

func checkSession(ctx context.Context, d deps.Deps) componentStatus {
	st := componentStatus{OK: true, Mode: d.SessionBackend}
	if d.Session != nil {
		st.State = d.Session.State().Kind().String()
	}
	if d.SessionBackend != "redis" {
		return st
	}

	if err := relayredis.Ping(ctx, d.RedisClient, 2*time.Second); err != nil {
		st.OK = false
		st.Error = err.Error()
	}
	return st
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
)

const defaultReadyTimeout = 10 * time.Second

type readyzResponse struct {
	Ready    bool           `json:"ready"`
	Services map[string]int `json:"services"` // key -> replica count
}

// Readyz resolves every catalogue service (cache first) and is ready when at
// least one of them has a replica.
func Readyz(d deps.Deps) http.HandlerFunc {
	timeout := d.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		resp := readyzResponse{Services: map[string]int{}}
		for _, svc := range d.Catalog.All() {
			n := len(d.Resolver.Resolve(ctx, svc))
			resp.Services[svc.Key] = n
			if n > 0 {
				resp.Ready = true
			}
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

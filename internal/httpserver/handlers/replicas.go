package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/discovery"
	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/logger"
)

type replicasResponse struct {
	TTLSeconds float64                `json:"ttl_seconds"`
	Registries []string               `json:"registries"`
	Entries    []discovery.CacheEntry `json:"entries"`
}

type resolveResponse struct {
	Service  string   `json:"service"`
	AppID    int      `json:"app_id"`
	Replicas []string `json:"replicas"`
}

// ListReplicas dumps the replica cache without resolving anything.
func ListReplicas(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cache := d.Resolver.Cache()
		writeJSON(w, http.StatusOK, replicasResponse{
			TTLSeconds: cache.TTL().Seconds(),
			Registries: d.Resolver.Sources(),
			Entries:    cache.Snapshot(),
		})
	}
}

// ResolveReplicas resolves one service through the cache and registries.
func ResolveReplicas(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "service")
		svc, ok := d.Catalog.Lookup(key)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown service: " + key})
			return
		}

		replicas := d.Resolver.Resolve(r.Context(), svc)
		status := http.StatusOK
		if len(replicas) == 0 {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resolveResponse{Service: svc.Key, AppID: svc.AppID, Replicas: replicas})
	}
}

// InvalidateReplicas drops the cached set of ?service=key, or every set when
// no service is given. The next resolution goes to the registries.
func InvalidateReplicas(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("service")
		if key == "" {
			d.Resolver.InvalidateAll()
			d.Logger.Info("replica cache invalidated via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Replica cache invalidated\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
			return
		}

		if _, ok := d.Catalog.Lookup(key); !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown service: " + key})
			return
		}
		d.Resolver.Cache().Invalidate(key)
		d.Logger.Info("replica cache entry invalidated via endpoint",
			logger.String("service", key),
			logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusAccepted)
		if _, err := w.Write([]byte("✅ Replica cache entry invalidated: " + key + "\n")); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

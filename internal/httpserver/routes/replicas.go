package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/relay/internal/httpserver/mw"
)

func init() { Register("replicas", registerReplicas) }

func registerReplicas(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			RPS:        d.RateLimitRPS,
			Burst:      d.RateLimitBurst,
			MaxEntries: 10000,
			TrustProxy: d.TrustProxy,
		}))

		r.Get("/replicas", handlers.ListReplicas(d))
		r.Get("/replicas/{service}", handlers.ResolveReplicas(d))
		r.With(mw.EnforceHost(d.AllowedHosts, d.Logger)).Post("/replicas/invalidate", handlers.InvalidateReplicas(d))
	})
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/relay/internal/httpserver/mw"
)

func init() { Register("health", registerHealth) }

func registerHealth(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Get("/readyz", handlers.Readyz(d))
}

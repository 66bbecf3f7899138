package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/relay/internal/httpserver/mw"
)

func init() { Register("infra", registerInfra) }

func registerInfra(r chi.Router, d deps.Deps) {
	allow := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	r.With(allow).Get("/infra", handlers.Infra(d))
	r.With(allow).Get("/session", handlers.Session(d))
}

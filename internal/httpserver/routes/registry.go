// Package routes collects the ops route groups. Each file registers itself
// from init; server.NewRouter mounts them all once.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type group struct {
	name string
	reg  Registrar
	mws  []Middleware
}

var groups []group

// Register adds a named route group with optional middlewares applied to
// all of its routes.
func Register(name string, reg Registrar, mws ...Middleware) {
	groups = append(groups, group{name: name, reg: reg, mws: mws})
}

// RegisterAll mounts every group on r and returns their names in mount order.
func RegisterAll(r chi.Router, d deps.Deps) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		sub := r
		if len(g.mws) > 0 {
			sub = r.With(g.mws...)
		}
		g.reg(sub, d)
		names = append(names, g.name)
	}
	return names
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/mw"
)

func init() { Register(registerDocument) }

// guard restricts a route to the allowed CIDRs and Host headers.
func guard(d deps.Deps) []Middleware {
	return []Middleware{
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
	}
}

func registerDocument(r chi.Router, d deps.Deps) {
	r.Route("/api/document", func(r chi.Router) {
		r.Use(guard(d)...)
		r.Get("/", handlers.Document(d))
		r.Get("/search", handlers.Search(d))
	})
}

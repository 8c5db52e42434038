package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/handlers"
)

func init() { Register(registerEntries) }

func registerEntries(r chi.Router, d deps.Deps) {
	r.Route("/api/entries", func(r chi.Router) {
		r.Use(guard(d)...)
		r.Post("/", handlers.CreateEntry(d))
		r.Patch("/", handlers.EditEntry(d))
		r.Delete("/", handlers.DeleteEntry(d))
		r.Post("/move", handlers.MoveEntry(d))
	})
}

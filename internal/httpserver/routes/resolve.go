package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/handlers"
)

func init() { Register(registerResolve) }

func registerResolve(r chi.Router, d deps.Deps) {
	r.With(guard(d)...).Get("/api/resolve", handlers.Resolve(d))
}

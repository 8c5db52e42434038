package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/handlers"
)

func init() { Register(registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	r.With(guard(d)...).Post("/api/reload", handlers.Reload(d))
	r.With(guard(d)...).Post("/api/refresh", handlers.Refresh(d))
}

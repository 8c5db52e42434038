package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/mw"
)

func init() { Register(registerPublish) }

func registerPublish(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.PublishBurst,
		RefillPerIPPerMin: d.PublishPerMin,
		MaxEntries:        1024,
		TrustProxy:        d.TrustProxy,
		Scope:             "publish",
		Logger:            d.Logger,
	})

	r.With(guard(d)...).Get("/api/check", handlers.Check(d))
	r.With(guard(d)...).Get("/api/diff", handlers.Diff(d))
	r.With(append(guard(d), limit)...).Post("/api/publish", handlers.Publish(d))
}

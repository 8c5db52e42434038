package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/resolver"
)

type resolveResponse struct {
	resolver.Resolution
	Message string `json:"reply"`
}

// Resolve answers ?q= the way the bot answers "!link <q>".
func Resolve(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, r, d, errBadRequest, errorResponse{})
			return
		}

		res := d.Resolver.Resolve(r.Context(), query)
		d.Logger.Info("resolve request",
			logger.String("query", res.Query),
			logger.String("kind", string(res.Kind)))
		writeJSON(w, d, http.StatusOK, resolveResponse{Resolution: res, Message: res.Reply()})
	}
}

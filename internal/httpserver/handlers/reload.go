package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/utils"
)

// Reload discards local edits and reloads the default branch.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Session.Load(r.Context()); err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		d.Logger.Info("document reloaded via endpoint",
			logger.String("remote_ip", utils.ResolveClient(r, d.TrustProxy).String()))
		writeState(w, r, d)
	}
}

// Refresh asks the remote watcher to pick up a new default-branch
// revision. Pending edits are never discarded.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.RefreshTrigger <- struct{}{}:
			d.Logger.Info("manual refresh triggered via endpoint",
				logger.String("remote_ip", utils.ResolveClient(r, d.TrustProxy).String()))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Refresh triggered successfully\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("refresh already in progress",
				logger.String("remote_ip", utils.ResolveClient(r, d.TrustProxy).String()))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Refresh already in progress, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/mutation"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
)

type checkResponse struct {
	OK         bool               `json:"ok"`
	Dirty      bool               `json:"dirty"`
	Violations []domain.Violation `json:"violations"`
	Duplicates []domain.Duplicate `json:"duplicates"`
}

// Check runs the publish gates without publishing.
func Check(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dirty, err := d.Session.Dirty()
		if err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		report := d.Session.Check()
		resp := checkResponse{
			OK:         report.OK(),
			Dirty:      dirty,
			Violations: report.Violations,
			Duplicates: report.Duplicates,
		}
		if resp.Violations == nil {
			resp.Violations = []domain.Violation{}
		}
		if resp.Duplicates == nil {
			resp.Duplicates = []domain.Duplicate{}
		}
		writeJSON(w, d, http.StatusOK, resp)
	}
}

// Diff returns the line diff a publish would commit, as text/plain.
func Diff(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		diff, err := d.Session.Diff()
		if err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if diff == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(diff)); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

type publishRequest struct {
	Message           string `json:"message" validate:"omitempty,max=500"`
	ConfirmDuplicates bool   `json:"confirm_duplicates"`
}

type publishResponse struct {
	Strategy string                 `json:"strategy"`
	Branch   string                 `json:"branch"`
	Revision string                 `json:"revision"`
	Resynced bool                   `json:"resynced"`
	Review   *publish.ReviewRequest `json:"review,omitempty"`
}

// Publish commits the working copy with the configured strategy. Shared
// aliases need confirm_duplicates, otherwise they come back with 409.
func Publish(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req publishRequest
		if r.ContentLength != 0 {
			if err := decode(w, r, &req); err != nil {
				writeError(w, r, d, err, errorResponse{})
				return
			}
		}

		res, err := d.Session.Publish(r.Context(), req.Message, mutation.AllowAliases{Duplicates: req.ConfirmDuplicates})
		if err != nil {
			extra := errorResponse{}
			if errors.Is(err, mutation.ErrDeclined) {
				extra.Duplicates = d.Session.Check().Duplicates
			}
			if errors.Is(err, publish.ErrConflict) {
				d.Logger.Warn("publish rejected by a concurrent change", logger.Error(err))
			}
			writeError(w, r, d, err, extra)
			return
		}

		if !res.Resynced {
			d.Logger.Warn("published but could not re-read the default branch; reload before editing further")
		}
		writeJSON(w, d, http.StatusOK, publishResponse{
			Strategy: res.Strategy.String(),
			Branch:   res.Branch,
			Revision: res.Snapshot.Revision,
			Resynced: res.Resynced,
			Review:   res.Review,
		})
	}
}

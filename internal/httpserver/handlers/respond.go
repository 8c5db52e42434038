package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/mutation"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
	"github.com/MrSnakeDoc/linkdesk/internal/session"
)

const maxBodyBytes = 1 << 20

var requests = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error      string             `json:"error"`
	Violations []domain.Violation `json:"violations,omitempty"`
	Collisions []domain.Collision `json:"collisions,omitempty"`
	Duplicates []domain.Duplicate `json:"duplicates,omitempty"`
}

func writeJSON(w http.ResponseWriter, d deps.Deps, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := requests.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("bad request")

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var terr *publish.TransportError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrNoChanges),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrEmptyCategory):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrPositionOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, publish.ErrConflict),
		errors.Is(err, mutation.ErrDeclined):
		return http.StatusConflict
	case errors.Is(err, publish.ErrPermissionDenied),
		errors.Is(err, session.ErrNoWriteAccess):
		return http.StatusForbidden
	case errors.Is(err, session.ErrPublishInFlight),
		errors.Is(err, session.ErrLoadInFlight):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.As(err, &terr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its status. extra may carry collision or
// duplicate details for 409 responses.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error, extra errorResponse) {
	status := statusFor(err)
	body := extra
	body.Error = err.Error()

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Violations = verr.Violations
	}

	if status >= http.StatusInternalServerError {
		d.Logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	} else {
		d.Logger.Debug("request rejected",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeJSON(w, d, status, body)
}

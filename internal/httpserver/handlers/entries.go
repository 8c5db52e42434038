package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/mutation"
)

type positionRequest struct {
	Category string `json:"category" validate:"required"`
	Position *int   `json:"position" validate:"required,min=0"`
}

func (p positionRequest) pos() domain.Position {
	return domain.Position{Category: p.Category, Index: *p.Position}
}

type createRequest struct {
	Category    string   `json:"category"`
	DisplayName string   `json:"display_name"`
	Aliases     []string `json:"aliases"`
	Link        string   `json:"link"`

	// ConfirmAliases lists the colliding aliases the caller accepts sharing.
	ConfirmAliases []string `json:"confirm_aliases"`
}

type createResponse struct {
	domain.Position
	Dirty bool `json:"dirty"`
}

// CreateEntry appends an entry. Aliases already held elsewhere must be
// listed in confirm_aliases, otherwise the collisions come back with 409.
func CreateEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}

		pos, err := d.Session.Create(mutation.NewEntry{
			Category:    req.Category,
			DisplayName: req.DisplayName,
			Aliases:     req.Aliases,
			Link:        req.Link,
		}, mutation.AllowAliases{Aliases: req.ConfirmAliases})
		if err != nil {
			extra := errorResponse{}
			if errors.Is(err, mutation.ErrDeclined) {
				extra.Collisions = d.Session.Collisions(req.Aliases)
			}
			writeError(w, r, d, err, extra)
			return
		}

		d.Logger.Info("entry created via api",
			logger.String("category", pos.Category),
			logger.Int("position", pos.Index))
		writeJSON(w, d, http.StatusCreated, createResponse{Position: pos, Dirty: true})
	}
}

type editRequest struct {
	positionRequest
	Field string `json:"field" validate:"required,oneof=display_name aliases link"`
	Value string `json:"value"`
}

// EditEntry sets one field of one entry.
func EditEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		field, err := domain.ParseField(req.Field)
		if err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		if err := d.Session.EditField(req.pos(), field, req.Value); err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		writeState(w, r, d)
	}
}

type deleteResponse struct {
	Removed domain.Entry `json:"removed"`
	Dirty   bool         `json:"dirty"`
}

// DeleteEntry removes ?category=&position= once confirm=true is passed.
func DeleteEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		idx, err := strconv.Atoi(q.Get("position"))
		if err != nil || idx < 0 {
			writeError(w, r, d, fmt.Errorf("%w: position must be a non-negative integer", errBadRequest), errorResponse{})
			return
		}
		confirm, _ := strconv.ParseBool(q.Get("confirm"))

		pos := domain.Position{Category: q.Get("category"), Index: idx}
		removed, err := d.Session.Delete(pos, mutation.AllowAliases{Delete: confirm})
		if err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		writeJSON(w, d, http.StatusOK, deleteResponse{Removed: removed, Dirty: true})
	}
}

type moveRequest struct {
	From positionRequest `json:"from" validate:"required"`
	To   positionRequest `json:"to" validate:"required"`
}

// MoveEntry relocates an entry; the target category is created on demand.
func MoveEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		if err := d.Session.Move(req.From.pos(), req.To.pos()); err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}
		writeState(w, r, d)
	}
}

type stateResponse struct {
	Revision string `json:"revision"`
	Dirty    bool   `json:"dirty"`
}

func writeState(w http.ResponseWriter, r *http.Request, d deps.Deps) {
	st, err := d.Session.Snapshot()
	if err != nil {
		writeError(w, r, d, err, errorResponse{})
		return
	}
	writeJSON(w, d, http.StatusOK, stateResponse{Revision: st.Revision, Dirty: st.Dirty})
}

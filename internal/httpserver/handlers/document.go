package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
)

type categoryView struct {
	Name    string         `json:"name"`
	Entries []domain.Entry `json:"entries"`
}

type documentResponse struct {
	Repository string         `json:"repository"`
	Path       string         `json:"path"`
	Branch     string         `json:"branch"`
	Strategy   string         `json:"strategy"`
	Revision   string         `json:"revision"`
	Dirty      bool           `json:"dirty"`
	Publishing bool           `json:"publishing"`
	User       string         `json:"user,omitempty"`
	Categories []categoryView `json:"categories"`
}

// Document returns the working copy with its revision and dirty flag.
func Document(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Session.Snapshot()
		if err != nil {
			writeError(w, r, d, err, errorResponse{})
			return
		}

		names := st.Document.Categories()
		cats := make([]categoryView, 0, len(names))
		for _, name := range names {
			entries, _ := st.Document.Category(name)
			cats = append(cats, categoryView{Name: name, Entries: entries})
		}

		writeJSON(w, d, http.StatusOK, documentResponse{
			Repository: d.Repository,
			Path:       d.FilePath,
			Branch:     d.DefaultBranch,
			Strategy:   d.Strategy.String(),
			Revision:   st.Revision,
			Dirty:      st.Dirty,
			Publishing: st.Publishing,
			User:       st.User,
			Categories: cats,
		})
	}
}

type searchResponse struct {
	Query   string         `json:"query"`
	Matches []domain.Match `json:"matches"`
}

// Search filters the working copy on category, display name and aliases.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		matches := d.Session.Filter(query)
		if matches == nil {
			matches = []domain.Match{}
		}
		writeJSON(w, d, http.StatusOK, searchResponse{Query: query, Matches: matches})
	}
}

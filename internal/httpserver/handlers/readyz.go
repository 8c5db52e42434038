package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready    bool   `json:"ready"`
	Revision string `json:"revision,omitempty"`
}

// Readyz reports ready once the document has been loaded.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		st, err := d.Session.Snapshot()
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(readyzResponse{Ready: false})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(readyzResponse{
			Ready:    true,
			Revision: st.Revision,
		})
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool   `json:"ok"`
	Revision      string `json:"revision,omitempty"`
	EntriesLoaded *int   `json:"entries_loaded,omitempty"`
	AliasesLoaded *int   `json:"aliases_loaded,omitempty"`
	Dirty         *bool  `json:"dirty,omitempty"`
	LastReload    string `json:"last_reload,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Impact        string `json:"impact,omitempty"`
	Error         string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of the document, the repository link, Redis and
// the resolver.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		components := map[string]componentStatus{
			"document": checkDocument(d),
			"repository": {
				OK:   true,
				Mode: d.Strategy.String(),
			},
			"redis":    checkRedis(d),
			"resolver": checkResolver(d),
		}

		response := infraResponse{
			Status:     determineStatus(components),
			Components: components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func determineStatus(components map[string]componentStatus) string {
	// Nothing can be edited or resolved without a document
	if doc, exists := components["document"]; exists && !doc.OK {
		return "critical"
	}

	// Redis - non-critical but impacts caching and usage ranking
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded"
	}

	return "operational"
}

func checkDocument(d deps.Deps) componentStatus {
	st, err := d.Session.Snapshot()
	if err != nil {
		return componentStatus{OK: false, Impact: "editing-disabled", Error: err.Error()}
	}
	entries := st.Document.Len()
	dirty := st.Dirty
	return componentStatus{
		OK:            true,
		Revision:      st.Revision,
		EntriesLoaded: &entries,
		Dirty:         &dirty,
	}
}

func checkResolver(d deps.Deps) componentStatus {
	aliases := d.MemoryIndex.Count()
	lastReload := d.MemoryIndex.GetLastReload()
	lastReloadStr := "never"
	if !lastReload.IsZero() {
		lastReloadStr = lastReload.Format("2006-01-02 15:04:05")
	}
	return componentStatus{
		OK:            aliases > 0,
		AliasesLoaded: &aliases,
		LastReload:    lastReloadStr,
		Mode:          "fuzzy+usage-ranking",
	}
}

func checkRedis(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "resolution-cache-disabled",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := d.RedisClient.Ping(ctx).Err()
	if err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "resolution-cache-disabled",
			Error:  "timeout",
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "resolution-cache-enabled",
	}
}

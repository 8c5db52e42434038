package mw

import (
	"encoding/json"
	"net/http"
)

// deny writes a JSON error body matching the API's error responses.
func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

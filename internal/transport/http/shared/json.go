// Package shared holds the response writers every HTTP handler goes through.
package shared

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes the response with the given status.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// The status line is already gone; nothing sensible left to do.
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError emits the same JSON error shape the handlers use, so the
// middleware boundary stays consistent with the API surface.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

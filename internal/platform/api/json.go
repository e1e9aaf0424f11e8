package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON serializes v and writes it with the given status.
// Encoding errors after the header is flushed cannot be reported; they are dropped.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

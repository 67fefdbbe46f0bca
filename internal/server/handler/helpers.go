package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// writeJSON encodes v to the response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing left to salvage.
		return
	}
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt parses an integer query parameter, clamped to [min, max].
// Missing or malformed values yield def.
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// parseListOpts extracts pagination from the query string.
// Defaults: limit=50 (max 200), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	return domain.ListOpts{
		Limit:  queryInt(r, "limit", 50, 1, 200),
		Offset: queryInt(r, "offset", 0, 0, 1<<30),
	}
}

// parseLimit extracts a bare limit parameter with a default and cap.
func parseLimit(r *http.Request, def, max int) int {
	return queryInt(r, "limit", def, 1, max)
}

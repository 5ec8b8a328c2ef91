package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dlevitt/radar/internal/alerts"
	"github.com/dlevitt/radar/internal/auth"
	"github.com/dlevitt/radar/internal/friends"
	"github.com/dlevitt/radar/internal/location"
	"github.com/dlevitt/radar/internal/store"
)

// extractCookieToken extracts a named cookie value from the "Cookie"
// header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a core error onto its HTTP status. Typed domain
// failures go back to the caller for display; store outages become a
// clear offline signal rather than a silent queue.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		http.Error(w, "not signed in", http.StatusUnauthorized)
	case errors.Is(err, friends.ErrNotFound):
		http.Error(w, "friend not found", http.StatusNotFound)
	case errors.Is(err, friends.ErrSelfReference):
		http.Error(w, "cannot add yourself as a friend", http.StatusBadRequest)
	case errors.Is(err, alerts.ErrInvalidThreshold):
		http.Error(w, "threshold must be a positive distance in km", http.StatusBadRequest)
	case errors.Is(err, location.ErrInvalidPosition):
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
	case errors.Is(err, store.ErrUnavailable):
		http.Error(w, "store offline, try again", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

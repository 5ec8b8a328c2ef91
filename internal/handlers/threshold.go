// internal/handlers/threshold.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// SetThresholdHandler configures the signed-in user's alert distance
// for one friend, in kilometers.
//
// Request payload: { "friend_id": "uuid", "distance_km": 10 }
func (s *Server) SetThresholdHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		FriendID   string  `json:"friend_id"`
		DistanceKm float64 `json:"distance_km"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		http.Error(w, "invalid friend_id", http.StatusBadRequest)
		return
	}

	if err := s.Thresholds.Set(r.Context(), ownerID, friendID, req.DistanceKm); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("threshold set"))
}

// GetThresholdHandler reads the configured distance for one friend.
// Query: ?friend_id=uuid. Responds {configured:false} when unset.
func (s *Server) GetThresholdHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	friendID, err := uuid.Parse(r.URL.Query().Get("friend_id"))
	if err != nil {
		http.Error(w, "invalid friend_id", http.StatusBadRequest)
		return
	}

	km, ok, err := s.Thresholds.Get(r.Context(), ownerID, friendID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		Configured bool    `json:"configured"`
		DistanceKm float64 `json:"distance_km,omitempty"`
	}{Configured: ok, DistanceKm: km}
	writeJSON(w, http.StatusOK, resp)
}

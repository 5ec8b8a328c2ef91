// internal/handlers/position.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dlevitt/radar/internal/geo"
)

// ReportLocationHandler ingests one position sample for the signed-in
// user. Samples faster than the configured spacing are accepted and
// dropped; last write wins.
//
// Request payload: { "latitude": 40.0, "longitude": -73.0 }
func (s *Server) ReportLocationHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	pt := geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := s.Propagator.Report(r.Context(), ownerID, pt); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("position recorded"))
}

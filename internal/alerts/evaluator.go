// internal/alerts/evaluator.go

// Package alerts holds the per-friend alert distances and the pure
// proximity evaluation over them. All distances are kilometers.
package alerts

import (
	"github.com/google/uuid"

	"github.com/dlevitt/radar/internal/geo"
	"github.com/dlevitt/radar/internal/models"
)

// Evaluate returns the current alert set: one ProximityAlert per
// friend that has both a known position and a configured threshold,
// with the great-circle distance at or under that threshold. The
// boundary is inclusive. Friends missing either input never alert.
//
// Pure function, no I/O: callers re-run it on any change to self
// position, the friend-position set, or the thresholds.
func Evaluate(self geo.Point, friendPositions []models.FriendPosition, thresholds map[uuid.UUID]float64) []models.ProximityAlert {
	out := make([]models.ProximityAlert, 0)
	for _, fp := range friendPositions {
		if fp.Position == nil {
			continue
		}
		thresholdKm, ok := thresholds[fp.ID]
		if !ok {
			continue
		}
		distanceKm := geo.Distance(self, *fp.Position)
		if distanceKm <= thresholdKm {
			out = append(out, models.ProximityAlert{
				FriendID:    fp.ID,
				FriendEmail: fp.Email,
				ThresholdKm: thresholdKm,
				DistanceKm:  distanceKm,
			})
		}
	}
	return out
}

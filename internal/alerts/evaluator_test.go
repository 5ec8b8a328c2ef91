// internal/alerts/evaluator_test.go
package alerts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlevitt/radar/internal/geo"
	"github.com/dlevitt/radar/internal/models"
)

func friendAt(email string, lat, lon float64) models.FriendPosition {
	return models.FriendPosition{
		ID:       uuid.New(),
		Email:    email,
		Position: &geo.Point{Latitude: lat, Longitude: lon},
	}
}

func TestEvaluateEmptyInputs(t *testing.T) {
	out := Evaluate(geo.Point{}, nil, nil)
	assert.Empty(t, out)
}

func TestEvaluateFriendWithinThreshold(t *testing.T) {
	self := geo.Point{Latitude: 40.0, Longitude: -73.0}
	f := friendAt("bob@example.com", 40.05, -73.0) // ~5.56 km away

	out := Evaluate(self, []models.FriendPosition{f}, map[uuid.UUID]float64{f.ID: 10})
	require.Len(t, out, 1)
	assert.Equal(t, f.ID, out[0].FriendID)
	assert.Equal(t, "bob@example.com", out[0].FriendEmail)
	assert.Equal(t, 10.0, out[0].ThresholdKm)
	assert.InDelta(t, 5.56, out[0].DistanceKm, 0.1)
}

func TestEvaluateFriendBeyondThreshold(t *testing.T) {
	self := geo.Point{Latitude: 40.0, Longitude: -73.0}
	f := friendAt("bob@example.com", 41.0, -73.0) // ~111 km away

	out := Evaluate(self, []models.FriendPosition{f}, map[uuid.UUID]float64{f.ID: 10})
	assert.Empty(t, out)
}

// A friend sitting exactly on the threshold still alerts: the
// comparison is <=, not <.
func TestEvaluateThresholdBoundaryInclusive(t *testing.T) {
	self := geo.Point{Latitude: 40.0, Longitude: -73.0}
	f := friendAt("bob@example.com", 40.05, -73.0)

	exact := geo.Distance(self, *f.Position)
	out := Evaluate(self, []models.FriendPosition{f}, map[uuid.UUID]float64{f.ID: exact})
	require.Len(t, out, 1)
	assert.Equal(t, exact, out[0].DistanceKm)
}

func TestEvaluateSkipsFriendWithoutPosition(t *testing.T) {
	self := geo.Point{Latitude: 40.0, Longitude: -73.0}
	noFix := models.FriendPosition{ID: uuid.New(), Email: "carol@example.com"}

	out := Evaluate(self, []models.FriendPosition{noFix}, map[uuid.UUID]float64{noFix.ID: 1000})
	assert.Empty(t, out)
}

func TestEvaluateSkipsFriendWithoutThreshold(t *testing.T) {
	self := geo.Point{Latitude: 40.0, Longitude: -73.0}
	f := friendAt("bob@example.com", 40.0001, -73.0001) // practically on top of self

	out := Evaluate(self, []models.FriendPosition{f}, nil)
	assert.Empty(t, out)
}

// Moving a friend out of range removes them from the alert set with
// no other state change.
func TestEvaluateFriendMovesOutOfRange(t *testing.T) {
	self := geo.Point{Latitude: 40.0, Longitude: -73.0}
	f := friendAt("bob@example.com", 40.05, -73.0)
	thresholds := map[uuid.UUID]float64{f.ID: 10}

	require.Len(t, Evaluate(self, []models.FriendPosition{f}, thresholds), 1)

	f.Position = &geo.Point{Latitude: 41.0, Longitude: -73.0}
	assert.Empty(t, Evaluate(self, []models.FriendPosition{f}, thresholds))
}

func TestEvaluateMixedFriends(t *testing.T) {
	self := geo.Point{Latitude: 40.0, Longitude: -73.0}
	near := friendAt("near@example.com", 40.01, -73.0)
	far := friendAt("far@example.com", 45.0, -73.0)
	noFix := models.FriendPosition{ID: uuid.New(), Email: "nofix@example.com"}

	thresholds := map[uuid.UUID]float64{
		near.ID:  5,
		far.ID:   5,
		noFix.ID: 5,
	}
	out := Evaluate(self, []models.FriendPosition{near, far, noFix}, thresholds)
	require.Len(t, out, 1)
	assert.Equal(t, "near@example.com", out[0].FriendEmail)
}

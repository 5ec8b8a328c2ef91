package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dlevitt/radar/internal/geo"
)

// Account is a registered identity. Email is stored lower-cased and is
// unique. Password is only populated on the way into account creation.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountRef is the minimal identity handed back from friend listings.
type AccountRef struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// FriendPosition pairs a friend with their latest known position.
// Position is nil when the friend has never reported a fix; the friend
// is still listed so consumers can tell "no data" from "not a friend".
type FriendPosition struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Position *geo.Point `json:"position,omitempty"`
}

// ProximityAlert is a transient alert tuple. It is derived, never
// persisted: it exists only while DistanceKm <= ThresholdKm.
type ProximityAlert struct {
	FriendID    uuid.UUID `json:"friend_id"`
	FriendEmail string    `json:"friend_email"`
	ThresholdKm float64   `json:"threshold_km"`
	DistanceKm  float64   `json:"distance_km"`
}

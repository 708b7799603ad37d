package domain

import (
	"errors"
	"time"
)

// ErrSubscriptionNotFound is returned by store reads and deletes when the
// subscription id does not exist.
var ErrSubscriptionNotFound = errors.New("subscription not found")

type Subscription struct {
	ID           int64
	Phone        string
	SpeciesCode  string
	SpeciesName  string
	Latitude     float64
	Longitude    float64
	LocationName string
	RadiusMiles  float64
	LookBackDays int
	CreatedAt    time.Time
	Cursor       Cursor
}

// Cursor records the last sighting this subscription was notified about.
// It only ever advances: LastNotifiedAt never moves backward, and
// LastObservationID, once set, is only replaced on a later commit.
type Cursor struct {
	LastObservationID string     // empty until the first alert is committed
	LastNotifiedAt    *time.Time // nil until the first alert is committed
}

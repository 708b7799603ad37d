package domain

import "time"

// Observation is a single sighting from the feed. Observations are produced
// fresh on every fetch and never persisted.
type Observation struct {
	SpeciesCode   string
	CommonName    string
	LocationID    string
	LocationName  string
	Latitude      float64
	Longitude     float64
	ObservedAt    time.Time
	SubmissionID  string
	Count         *int
	DistanceMiles *float64 // from the subscription's anchor, when computable
}

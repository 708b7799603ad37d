package domain

import "time"

// Outcome is the terminal state of one subscription within one cycle.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeThrottled Outcome = "throttled"
	OutcomeFailed    Outcome = "failed"
)

// CycleStats holds statistics about one full pass over all subscriptions.
type CycleStats struct {
	Subscriptions int
	Committed     int
	Throttled     int
	Failed        int
	Duration      time.Duration
}

// NotificationLogEntry is the durable record of one dispatched alert.
type NotificationLogEntry struct {
	ID             int64
	SubscriptionID int64
	ObservationID  string
	SpeciesCode    string
	LocationName   string
	ObservedAt     time.Time
	ExtraCount     int
	SentAt         time.Time
}

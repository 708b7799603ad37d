package service

import (
	"time"

	"bird_alerts/internal/domain"
)

// ShouldNotify decides whether a non-empty batch of new sightings clears the
// recency throttle. The first alert for a subscription is never throttled.
// Otherwise the earliest observed-at time in the batch must be at least
// minInterval after the last notified time. The comparison uses sighting
// time, not wall clock, so sightings concurrent with an already-sent alert
// do not trigger a second one no matter how often the poller runs.
func ShouldNotify(fresh []domain.Observation, cursor domain.Cursor, minInterval time.Duration) bool {
	if cursor.LastNotifiedAt == nil {
		return true
	}

	earliest := fresh[0].ObservedAt
	for _, o := range fresh[1:] {
		if o.ObservedAt.Before(earliest) {
			earliest = o.ObservedAt
		}
	}

	return earliest.Sub(*cursor.LastNotifiedAt) >= minInterval
}

package service

import "bird_alerts/internal/domain"

// NewSightings reduces a feed snapshot to the observations not yet notified,
// preserving order. An observation is dropped when its submission id equals
// the cursor's last notified id, or when the cursor carries a notified-at
// time and the observation is not strictly newer than it. The timestamp
// condition matters on its own: the last notified submission may have aged
// out of the feed's lookback window, so an id match alone cannot be relied
// on to suppress it.
func NewSightings(observations []domain.Observation, cursor domain.Cursor) []domain.Observation {
	if cursor.LastObservationID == "" && cursor.LastNotifiedAt == nil {
		return observations
	}

	var fresh []domain.Observation
	for _, o := range observations {
		if cursor.LastObservationID != "" && o.SubmissionID == cursor.LastObservationID {
			continue
		}
		if cursor.LastNotifiedAt != nil && !o.ObservedAt.After(*cursor.LastNotifiedAt) {
			continue
		}
		fresh = append(fresh, o)
	}
	return fresh
}

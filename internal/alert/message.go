package alert

import (
	"fmt"
	"strings"

	"bird_alerts/internal/domain"
)

const observedAtFormat = "Jan 2 3:04 PM"

// FormatMessage builds the single alert body for a batch of new sightings.
// The first sighting in the batch is the primary one; the rest contribute
// only a count.
func FormatMessage(sub *domain.Subscription, sightings []domain.Observation) string {
	primary := sightings[0]

	var b strings.Builder
	fmt.Fprintf(&b, "%s spotted at %s (%s UTC)",
		sub.SpeciesName,
		primary.LocationName,
		primary.ObservedAt.Format(observedAtFormat),
	)

	if primary.DistanceMiles != nil {
		fmt.Fprintf(&b, ", %.1f mi from %s", *primary.DistanceMiles, sub.LocationName)
	}
	if primary.Count != nil && *primary.Count > 1 {
		fmt.Fprintf(&b, ", %d birds", *primary.Count)
	}

	if extra := len(sightings) - 1; extra > 0 {
		fmt.Fprintf(&b, ". +%d more recent sighting", extra)
		if extra > 1 {
			b.WriteString("s")
		}
	}
	b.WriteString(".")

	return b.String()
}

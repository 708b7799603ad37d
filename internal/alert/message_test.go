package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bird_alerts/internal/domain"
	"bird_alerts/testdata/utils"
)

func TestFormatMessage(t *testing.T) {
	sub := &domain.Subscription{
		SpeciesName:  "Snowy Owl",
		LocationName: "New Haven",
	}
	observedAt := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)

	base := domain.Observation{
		LocationName: "Hammonasset Beach SP",
		ObservedAt:   observedAt,
	}

	tests := []struct {
		name      string
		sightings []domain.Observation
		want      string
	}{
		{
			name:      "minimal single sighting",
			sightings: []domain.Observation{base},
			want:      "Snowy Owl spotted at Hammonasset Beach SP (Jan 15 2:30 PM UTC).",
		},
		{
			name: "with distance",
			sightings: []domain.Observation{
				{
					LocationName:  base.LocationName,
					ObservedAt:    base.ObservedAt,
					DistanceMiles: utils.Ptr(12.34),
				},
			},
			want: "Snowy Owl spotted at Hammonasset Beach SP (Jan 15 2:30 PM UTC), 12.3 mi from New Haven.",
		},
		{
			name: "with bird count",
			sightings: []domain.Observation{
				{
					LocationName: base.LocationName,
					ObservedAt:   base.ObservedAt,
					Count:        utils.Ptr(3),
				},
			},
			want: "Snowy Owl spotted at Hammonasset Beach SP (Jan 15 2:30 PM UTC), 3 birds.",
		},
		{
			name: "count of one omitted",
			sightings: []domain.Observation{
				{
					LocationName: base.LocationName,
					ObservedAt:   base.ObservedAt,
					Count:        utils.Ptr(1),
				},
			},
			want: "Snowy Owl spotted at Hammonasset Beach SP (Jan 15 2:30 PM UTC).",
		},
		{
			name:      "one extra sighting",
			sightings: []domain.Observation{base, base},
			want:      "Snowy Owl spotted at Hammonasset Beach SP (Jan 15 2:30 PM UTC). +1 more recent sighting.",
		},
		{
			name:      "several extra sightings",
			sightings: []domain.Observation{base, base, base},
			want:      "Snowy Owl spotted at Hammonasset Beach SP (Jan 15 2:30 PM UTC). +2 more recent sightings.",
		},
		{
			name: "everything at once",
			sightings: []domain.Observation{
				{
					LocationName:  base.LocationName,
					ObservedAt:    base.ObservedAt,
					DistanceMiles: utils.Ptr(5.0),
					Count:         utils.Ptr(2),
				},
				base,
			},
			want: "Snowy Owl spotted at Hammonasset Beach SP (Jan 15 2:30 PM UTC), 5.0 mi from New Haven, 2 birds. +1 more recent sighting.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMessage(sub, tt.sightings))
		})
	}
}

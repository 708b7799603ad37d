package ebird

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"bird_alerts/internal/domain"
)

const (
	// obsDtLayout is the zone-less timestamp format used by the eBird API.
	// Values are interpreted as UTC.
	obsDtLayout = "2006-01-02 15:04"

	// maxDistKm is the largest search radius the recent-observations
	// endpoint accepts.
	maxDistKm = 50.0

	kmPerMile = 1.609344
)

// Config holds eBird source configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Source queries the eBird API v2 for recent observations of a species
// around a point. It performs no caching and no retries; a failed fetch is
// simply retried on the caller's next cycle.
type Source struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// New creates a new eBird source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger.With("source", "ebird"),
	}
}

// Recent fetches recent observations of speciesCode within radiusMiles of
// the given point, looking back backDays days. A 404 from the API (unknown
// species code) is an empty result, not an error. Results are ordered by
// ascending distance from the anchor; observations without usable
// coordinates keep the feed's recency order at the end.
func (s *Source) Recent(ctx context.Context, speciesCode string, lat, lon, radiusMiles float64, backDays int) ([]domain.Observation, error) {
	distKm := radiusMiles * kmPerMile
	if distKm > maxDistKm {
		distKm = maxDistKm
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lng", fmt.Sprintf("%.4f", lon))
	q.Set("dist", fmt.Sprintf("%.1f", distKm))
	q.Set("back", fmt.Sprintf("%d", backDays))

	endpoint := fmt.Sprintf("%s/data/obs/geo/recent/%s?%s", s.baseURL, url.PathEscape(speciesCode), q.Encode())

	var raw []observation
	status, err := s.getJSON(ctx, endpoint, &raw)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch recent observations: %w", err)
	}

	return s.transform(raw, lat, lon), nil
}

func (s *Source) getJSON(ctx context.Context, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-eBirdApiToken", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	return resp.StatusCode, nil
}

func (s *Source) transform(raw []observation, anchorLat, anchorLon float64) []domain.Observation {
	observations := make([]domain.Observation, 0, len(raw))

	for _, o := range raw {
		observedAt, err := time.ParseInLocation(obsDtLayout, o.ObsDt, time.UTC)
		if err != nil {
			s.logger.Warn("failed to parse observation date",
				"sub_id", o.SubID,
				"obs_dt", o.ObsDt,
			)
			continue
		}

		obs := domain.Observation{
			SpeciesCode:  o.SpeciesCode,
			CommonName:   o.ComName,
			LocationID:   o.LocID,
			LocationName: o.LocName,
			Latitude:     o.Lat,
			Longitude:    o.Lng,
			ObservedAt:   observedAt,
			SubmissionID: o.SubID,
			Count:        o.HowMany,
		}

		if o.Lat != 0 || o.Lng != 0 {
			d := haversineMiles(anchorLat, anchorLon, o.Lat, o.Lng)
			obs.DistanceMiles = &d
		}

		observations = append(observations, obs)
	}

	sort.SliceStable(observations, func(i, j int) bool {
		a, b := observations[i].DistanceMiles, observations[j].DistanceMiles
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})

	return observations
}

const earthRadiusMiles = 3958.8

func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}

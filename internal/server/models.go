package server

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"bird_alerts/internal/domain"
)

// phoneRe accepts digits, plus sign, and common punctuation, 5-20 chars.
var phoneRe = regexp.MustCompile(`^[0-9+\-.() ]{5,20}$`)

const defaultLookBackDays = 3

type createSubscriptionRequest struct {
	Phone        string  `json:"phone"`
	SpeciesCode  string  `json:"speciesCode"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"locationName"`
	RadiusMiles  float64 `json:"radiusMiles"`
	LookBackDays int     `json:"lookBackDays"`
}

func (r *createSubscriptionRequest) validate() error {
	if !phoneRe.MatchString(r.Phone) {
		return errors.New("phone must be 5-20 characters of digits, plus, or punctuation")
	}
	if r.SpeciesCode == "" {
		return errors.New("speciesCode is required")
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	if r.RadiusMiles <= 0 || r.RadiusMiles > 200 {
		return errors.New("radiusMiles must be greater than 0 and at most 200")
	}
	if r.LookBackDays == 0 {
		r.LookBackDays = defaultLookBackDays
	}
	if r.LookBackDays < 0 || r.LookBackDays > 30 {
		return errors.New("lookBackDays must be greater than 0 and at most 30")
	}
	return nil
}

func (r *createSubscriptionRequest) toDomain(sp domain.Species) *domain.Subscription {
	return &domain.Subscription{
		Phone:        r.Phone,
		SpeciesCode:  sp.Code,
		SpeciesName:  sp.CommonName,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		LocationName: r.LocationName,
		RadiusMiles:  r.RadiusMiles,
		LookBackDays: r.LookBackDays,
	}
}

type sightingsQuery struct {
	Species string
	Lat     float64
	Lng     float64
	Radius  float64
	Back    int
}

func (q *sightingsQuery) parse(values url.Values) error {
	q.Species = values.Get("species")
	if q.Species == "" {
		return errors.New("species is required")
	}

	var err error
	if q.Lat, err = strconv.ParseFloat(values.Get("lat"), 64); err != nil {
		return errors.New("lat is required and must be a number")
	}
	if q.Lng, err = strconv.ParseFloat(values.Get("lng"), 64); err != nil {
		return errors.New("lng is required and must be a number")
	}
	if q.Lat < -90 || q.Lat > 90 {
		return errors.New("lat must be between -90 and 90")
	}
	if q.Lng < -180 || q.Lng > 180 {
		return errors.New("lng must be between -180 and 180")
	}

	q.Radius = 25
	if v := values.Get("radius"); v != "" {
		if q.Radius, err = strconv.ParseFloat(v, 64); err != nil || q.Radius <= 0 || q.Radius > 200 {
			return errors.New("radius must be a number greater than 0 and at most 200")
		}
	}

	q.Back = defaultLookBackDays
	if v := values.Get("back"); v != "" {
		if q.Back, err = strconv.Atoi(v); err != nil || q.Back <= 0 || q.Back > 30 {
			return errors.New("back must be an integer greater than 0 and at most 30")
		}
	}

	return nil
}

type subscriptionResponse struct {
	ID                int64      `json:"id"`
	Phone             string     `json:"phone"`
	SpeciesCode       string     `json:"speciesCode"`
	SpeciesName       string     `json:"speciesName"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	LocationName      string     `json:"locationName"`
	RadiusMiles       float64    `json:"radiusMiles"`
	LookBackDays      int        `json:"lookBackDays"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastObservationID string     `json:"lastObservationId,omitempty"`
	LastNotifiedAt    *time.Time `json:"lastNotifiedAt,omitempty"`
}

func toSubscriptionResponse(sub *domain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                sub.ID,
		Phone:             sub.Phone,
		SpeciesCode:       sub.SpeciesCode,
		SpeciesName:       sub.SpeciesName,
		Latitude:          sub.Latitude,
		Longitude:         sub.Longitude,
		LocationName:      sub.LocationName,
		RadiusMiles:       sub.RadiusMiles,
		LookBackDays:      sub.LookBackDays,
		CreatedAt:         sub.CreatedAt,
		LastObservationID: sub.Cursor.LastObservationID,
		LastNotifiedAt:    sub.Cursor.LastNotifiedAt,
	}
}

type observationResponse struct {
	SpeciesCode   string    `json:"speciesCode"`
	CommonName    string    `json:"commonName"`
	LocationName  string    `json:"locationName"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	ObservedAt    time.Time `json:"observedAt"`
	SubmissionID  string    `json:"submissionId"`
	Count         *int      `json:"count,omitempty"`
	DistanceMiles *float64  `json:"distanceMiles,omitempty"`
}

func toObservationResponse(o *domain.Observation) observationResponse {
	return observationResponse{
		SpeciesCode:   o.SpeciesCode,
		CommonName:    o.CommonName,
		LocationName:  o.LocationName,
		Latitude:      o.Latitude,
		Longitude:     o.Longitude,
		ObservedAt:    o.ObservedAt,
		SubmissionID:  o.SubmissionID,
		Count:         o.Count,
		DistanceMiles: o.DistanceMiles,
	}
}

type notificationResponse struct {
	ID            int64     `json:"id"`
	ObservationID string    `json:"observationId"`
	SpeciesCode   string    `json:"speciesCode"`
	LocationName  string    `json:"locationName"`
	ObservedAt    time.Time `json:"observedAt"`
	ExtraCount    int       `json:"extraCount"`
	SentAt        time.Time `json:"sentAt"`
}

func toNotificationResponse(e domain.NotificationLogEntry) notificationResponse {
	return notificationResponse{
		ID:            e.ID,
		ObservationID: e.ObservationID,
		SpeciesCode:   e.SpeciesCode,
		LocationName:  e.LocationName,
		ObservedAt:    e.ObservedAt,
		ExtraCount:    e.ExtraCount,
		SentAt:        e.SentAt,
	}
}

type speciesResponse struct {
	Code           string `json:"code"`
	CommonName     string `json:"commonName"`
	ScientificName string `json:"scientificName"`
}

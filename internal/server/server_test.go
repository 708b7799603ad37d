package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bird_alerts/internal/domain"
)

type stubSubscriptionStore struct {
	list   func(ctx context.Context) ([]domain.Subscription, error)
	get    func(ctx context.Context, id int64) (*domain.Subscription, error)
	create func(ctx context.Context, sub *domain.Subscription) (int64, error)
	delete func(ctx context.Context, id int64) error
}

func (s *stubSubscriptionStore) List(ctx context.Context) ([]domain.Subscription, error) {
	return s.list(ctx)
}

func (s *stubSubscriptionStore) Get(ctx context.Context, id int64) (*domain.Subscription, error) {
	return s.get(ctx, id)
}

func (s *stubSubscriptionStore) Create(ctx context.Context, sub *domain.Subscription) (int64, error) {
	return s.create(ctx, sub)
}

func (s *stubSubscriptionStore) Delete(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}

type stubSpeciesResolver struct {
	lookup func(ctx context.Context, code string) (domain.Species, error)
	search func(ctx context.Context, query string, limit int) ([]domain.Species, error)
}

func (s *stubSpeciesResolver) Lookup(ctx context.Context, code string) (domain.Species, error) {
	return s.lookup(ctx, code)
}

func (s *stubSpeciesResolver) Search(ctx context.Context, query string, limit int) ([]domain.Species, error) {
	return s.search(ctx, query, limit)
}

type stubObservationSource struct {
	recent func(ctx context.Context, speciesCode string, lat, lon, radiusMiles float64, backDays int) ([]domain.Observation, error)
}

func (s *stubObservationSource) Recent(ctx context.Context, speciesCode string, lat, lon, radiusMiles float64, backDays int) ([]domain.Observation, error) {
	return s.recent(ctx, speciesCode, lat, lon, radiusMiles, backDays)
}

type stubNotificationLog struct {
	listBySubscription func(ctx context.Context, subscriptionID int64, limit int) ([]domain.NotificationLogEntry, error)
}

func (s *stubNotificationLog) ListBySubscription(ctx context.Context, subscriptionID int64, limit int) ([]domain.NotificationLogEntry, error) {
	return s.listBySubscription(ctx, subscriptionID, limit)
}

func newTestServer(subs SubscriptionStore, species SpeciesResolver, feed ObservationSource, notifications NotificationLog) *Server {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(":0", subs, species, feed, notifications, logger)
}

func doRequest(srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	w := doRequest(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestCreateSubscription(t *testing.T) {
	var created *domain.Subscription
	subs := &stubSubscriptionStore{
		create: func(_ context.Context, sub *domain.Subscription) (int64, error) {
			sub.ID = 7
			sub.CreatedAt = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
			created = sub
			return 7, nil
		},
	}
	species := &stubSpeciesResolver{
		lookup: func(_ context.Context, code string) (domain.Species, error) {
			assert.Equal(t, "snoowl1", code)
			return domain.Species{Code: "snoowl1", CommonName: "Snowy Owl"}, nil
		},
	}
	srv := newTestServer(subs, species, nil, nil)

	w := doRequest(srv, http.MethodPost, "/api/subscriptions", `{
		"phone": "+15551230000",
		"speciesCode": "snoowl1",
		"latitude": 41.26,
		"longitude": -72.94,
		"locationName": "New Haven",
		"radiusMiles": 25
	}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, created)
	assert.Equal(t, "Snowy Owl", created.SpeciesName)
	assert.Equal(t, 3, created.LookBackDays) // defaulted

	var resp subscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Empty(t, resp.LastObservationID)
}

func TestCreateSubscription_Validation(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing phone", `{"speciesCode":"snoowl1","latitude":41,"longitude":-72,"radiusMiles":25}`},
		{"phone too short", `{"phone":"123","speciesCode":"snoowl1","latitude":41,"longitude":-72,"radiusMiles":25}`},
		{"missing species", `{"phone":"+15551230000","latitude":41,"longitude":-72,"radiusMiles":25}`},
		{"latitude out of range", `{"phone":"+15551230000","speciesCode":"snoowl1","latitude":91,"longitude":-72,"radiusMiles":25}`},
		{"longitude out of range", `{"phone":"+15551230000","speciesCode":"snoowl1","latitude":41,"longitude":-181,"radiusMiles":25}`},
		{"zero radius", `{"phone":"+15551230000","speciesCode":"snoowl1","latitude":41,"longitude":-72,"radiusMiles":0}`},
		{"radius too large", `{"phone":"+15551230000","speciesCode":"snoowl1","latitude":41,"longitude":-72,"radiusMiles":500}`},
		{"look back too large", `{"phone":"+15551230000","speciesCode":"snoowl1","latitude":41,"longitude":-72,"radiusMiles":25,"lookBackDays":31}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(srv, http.MethodPost, "/api/subscriptions", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateSubscription_UnknownSpecies(t *testing.T) {
	species := &stubSpeciesResolver{
		lookup: func(_ context.Context, _ string) (domain.Species, error) {
			return domain.Species{}, domain.ErrUnknownSpecies
		},
	}
	srv := newTestServer(nil, species, nil, nil)

	w := doRequest(srv, http.MethodPost, "/api/subscriptions", `{
		"phone": "+15551230000",
		"speciesCode": "nonesuch",
		"latitude": 41.26,
		"longitude": -72.94,
		"radiusMiles": 25
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown species code")
}

func TestListSubscriptions(t *testing.T) {
	subs := &stubSubscriptionStore{
		list: func(_ context.Context) ([]domain.Subscription, error) {
			return []domain.Subscription{
				{ID: 1, Phone: "+15551230000", SpeciesCode: "snoowl1"},
				{ID: 2, Phone: "+15551230001", SpeciesCode: "pingro"},
			}, nil
		},
	}
	srv := newTestServer(subs, nil, nil, nil)

	w := doRequest(srv, http.MethodGet, "/api/subscriptions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []subscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "pingro", resp[1].SpeciesCode)
}

func TestDeleteSubscription(t *testing.T) {
	subs := &stubSubscriptionStore{
		delete: func(_ context.Context, id int64) error {
			if id == 404 {
				return domain.ErrSubscriptionNotFound
			}
			return nil
		},
	}
	srv := newTestServer(subs, nil, nil, nil)

	w := doRequest(srv, http.MethodDelete, "/api/subscriptions/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(srv, http.MethodDelete, "/api/subscriptions/404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(srv, http.MethodDelete, "/api/subscriptions/bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNotifications(t *testing.T) {
	subs := &stubSubscriptionStore{
		get: func(_ context.Context, id int64) (*domain.Subscription, error) {
			if id != 1 {
				return nil, domain.ErrSubscriptionNotFound
			}
			return &domain.Subscription{ID: 1}, nil
		},
	}
	logStore := &stubNotificationLog{
		listBySubscription: func(_ context.Context, id int64, limit int) ([]domain.NotificationLogEntry, error) {
			assert.Equal(t, int64(1), id)
			assert.Equal(t, 50, limit)
			return []domain.NotificationLogEntry{
				{ID: 10, SubscriptionID: 1, ObservationID: "S100", SpeciesCode: "snoowl1"},
			}, nil
		},
	}
	srv := newTestServer(subs, nil, nil, logStore)

	w := doRequest(srv, http.MethodGet, "/api/subscriptions/1/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []notificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "S100", resp[0].ObservationID)

	w = doRequest(srv, http.MethodGet, "/api/subscriptions/2/notifications", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSightings(t *testing.T) {
	feed := &stubObservationSource{
		recent: func(_ context.Context, speciesCode string, lat, lon, radiusMiles float64, backDays int) ([]domain.Observation, error) {
			assert.Equal(t, "snoowl1", speciesCode)
			assert.InDelta(t, 41.26, lat, 1e-9)
			assert.InDelta(t, -72.94, lon, 1e-9)
			assert.InDelta(t, 25.0, radiusMiles, 1e-9) // default radius
			assert.Equal(t, 3, backDays)               // default look-back
			return []domain.Observation{
				{SpeciesCode: "snoowl1", SubmissionID: "S100"},
			}, nil
		},
	}
	srv := newTestServer(nil, nil, feed, nil)

	w := doRequest(srv, http.MethodGet, "/api/sightings?species=snoowl1&lat=41.26&lng=-72.94", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []observationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "S100", resp[0].SubmissionID)
}

func TestSightings_QueryValidation(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"missing species", "/api/sightings?lat=41&lng=-72"},
		{"missing lat", "/api/sightings?species=snoowl1&lng=-72"},
		{"missing lng", "/api/sightings?species=snoowl1&lat=41"},
		{"lat out of range", "/api/sightings?species=snoowl1&lat=91&lng=-72"},
		{"bad radius", "/api/sightings?species=snoowl1&lat=41&lng=-72&radius=-5"},
		{"bad back", "/api/sightings?species=snoowl1&lat=41&lng=-72&back=45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(srv, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSpeciesSearch(t *testing.T) {
	species := &stubSpeciesResolver{
		search: func(_ context.Context, query string, limit int) ([]domain.Species, error) {
			assert.Equal(t, "owl", query)
			assert.Equal(t, 20, limit)
			return []domain.Species{
				{Code: "snoowl1", CommonName: "Snowy Owl", ScientificName: "Bubo scandiacus"},
			}, nil
		},
	}
	srv := newTestServer(nil, species, nil, nil)

	w := doRequest(srv, http.MethodGet, "/api/species?q=owl", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []speciesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "snoowl1", resp[0].Code)

	w = doRequest(srv, http.MethodGet, "/api/species", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

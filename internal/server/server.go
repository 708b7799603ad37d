package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bird_alerts/internal/domain"
)

// SubscriptionStore is the management view of the subscription registry. The
// notification engine never creates or deletes subscriptions; this server
// never touches cursors.
type SubscriptionStore interface {
	List(ctx context.Context) ([]domain.Subscription, error)
	Get(ctx context.Context, id int64) (*domain.Subscription, error)
	Create(ctx context.Context, sub *domain.Subscription) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type SpeciesResolver interface {
	Lookup(ctx context.Context, code string) (domain.Species, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Species, error)
}

type ObservationSource interface {
	Recent(ctx context.Context, speciesCode string, lat, lon, radiusMiles float64, backDays int) ([]domain.Observation, error)
}

type NotificationLog interface {
	ListBySubscription(ctx context.Context, subscriptionID int64, limit int) ([]domain.NotificationLogEntry, error)
}

// Server exposes the subscription management API, the sighting search used
// by the lookup UI, and health/metrics endpoints.
type Server struct {
	httpServer    *http.Server
	subscriptions SubscriptionStore
	species       SpeciesResolver
	feed          ObservationSource
	notifications NotificationLog
	logger        *slog.Logger
}

func New(addr string, subscriptions SubscriptionStore, species SpeciesResolver, feed ObservationSource, notifications NotificationLog, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		subscriptions: subscriptions,
		species:       species,
		feed:          feed,
		notifications: notifications,
		logger:        logger.With("component", "server"),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/subscriptions", s.handleListSubscriptions)
	mux.HandleFunc("POST /api/subscriptions", s.handleCreateSubscription)
	mux.HandleFunc("DELETE /api/subscriptions/{id}", s.handleDeleteSubscription)
	mux.HandleFunc("GET /api/subscriptions/{id}/notifications", s.handleListNotifications)
	mux.HandleFunc("GET /api/sightings", s.handleSightings)
	mux.HandleFunc("GET /api/species", s.handleSpeciesSearch)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subscriptions.List(r.Context())
	if err != nil {
		s.serverError(w, "list subscriptions", err)
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, toSubscriptionResponse(&subs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sp, err := s.species.Lookup(r.Context(), req.SpeciesCode)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSpecies) {
			writeError(w, http.StatusBadRequest, "unknown species code: "+req.SpeciesCode)
			return
		}
		s.serverError(w, "resolve species", err)
		return
	}

	sub := req.toDomain(sp)
	if _, err := s.subscriptions.Create(r.Context(), sub); err != nil {
		s.serverError(w, "create subscription", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	err = s.subscriptions.Delete(r.Context(), id)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		s.serverError(w, "delete subscription", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	if _, err := s.subscriptions.Get(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			writeError(w, http.StatusNotFound, "subscription not found")
			return
		}
		s.serverError(w, "get subscription", err)
		return
	}

	entries, err := s.notifications.ListBySubscription(r.Context(), id, 50)
	if err != nil {
		s.serverError(w, "list notifications", err)
		return
	}

	out := make([]notificationResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toNotificationResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSightings(w http.ResponseWriter, r *http.Request) {
	var req sightingsQuery
	if err := req.parse(r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	observations, err := s.feed.Recent(r.Context(), req.Species, req.Lat, req.Lng, req.Radius, req.Back)
	if err != nil {
		s.serverError(w, "fetch sightings", err)
		return
	}

	out := make([]observationResponse, 0, len(observations))
	for i := range observations {
		out = append(out, toObservationResponse(&observations[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSpeciesSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	matches, err := s.species.Search(r.Context(), query, 20)
	if err != nil {
		s.serverError(w, "search species", err)
		return
	}

	out := make([]speciesResponse, 0, len(matches))
	for _, sp := range matches {
		out = append(out, speciesResponse{
			Code:           sp.Code,
			CommonName:     sp.CommonName,
			ScientificName: sp.ScientificName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

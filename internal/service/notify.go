package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"bird_alerts/internal/config"
	"bird_alerts/internal/domain"
	"bird_alerts/internal/observability"
)

// NotifyService runs one notification cycle: for every subscription it
// fetches the feed, filters out already-notified sightings, applies the
// recency throttle, dispatches at most one alert, and commits the cursor
// advance. Subscriptions are processed independently; a failure in one never
// aborts the rest of the cycle.
type NotifyService struct {
	feed          ObservationSource
	subscriptions SubscriptionStore
	log           NotificationLogStore
	txManager     TransactionManager
	dispatcher    AlertDispatcher
	events        EventPublisher
	metrics       *observability.Metrics
	clock         clockwork.Clock
	logger        *slog.Logger
	config        config.NotifyConfig
}

func NewNotifyService(
	feed ObservationSource,
	subscriptions SubscriptionStore,
	log NotificationLogStore,
	txManager TransactionManager,
	dispatcher AlertDispatcher,
	events EventPublisher,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger *slog.Logger,
	cfg config.NotifyConfig,
) *NotifyService {
	return &NotifyService{
		feed:          feed,
		subscriptions: subscriptions,
		log:           log,
		txManager:     txManager,
		dispatcher:    dispatcher,
		events:        events,
		metrics:       metrics,
		clock:         clock,
		logger:        logger,
		config:        cfg,
	}
}

// RunCycle processes all subscriptions once. It returns an error only when
// the subscription list itself cannot be read; per-subscription failures are
// logged and counted, never propagated.
func (s *NotifyService) RunCycle(ctx context.Context) (*domain.CycleStats, error) {
	start := s.clock.Now()

	subs, err := s.subscriptions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	stats := &domain.CycleStats{Subscriptions: len(subs)}

	for i := range subs {
		// Shutdown lands between subscriptions so an in-flight commit is
		// never torn mid-write.
		if ctx.Err() != nil {
			s.logger.Info("cycle interrupted", "remaining", len(subs)-i)
			break
		}

		outcome := s.processSubscription(ctx, &subs[i])
		s.metrics.Subscriptions.WithLabelValues(string(outcome)).Inc()

		switch outcome {
		case domain.OutcomeCommitted:
			stats.Committed++
		case domain.OutcomeThrottled:
			stats.Throttled++
		case domain.OutcomeFailed:
			stats.Failed++
		}
	}

	stats.Duration = s.clock.Since(start)
	s.metrics.CyclesTotal.Inc()
	s.metrics.CycleDuration.Observe(stats.Duration.Seconds())

	s.logger.Info("cycle completed",
		"subscriptions", stats.Subscriptions,
		"committed", stats.Committed,
		"throttled", stats.Throttled,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *NotifyService) processSubscription(ctx context.Context, sub *domain.Subscription) domain.Outcome {
	logger := s.logger.With("subscription_id", sub.ID, "species", sub.SpeciesCode)

	observations, err := s.feed.Recent(ctx, sub.SpeciesCode, sub.Latitude, sub.Longitude, sub.RadiusMiles, sub.LookBackDays)
	if err != nil {
		s.metrics.FetchErrors.Inc()
		logger.Error("fetch failed", "error", err)
		return domain.OutcomeFailed
	}

	fresh := NewSightings(observations, sub.Cursor)
	if len(fresh) == 0 {
		logger.Debug("no new sightings", "fetched", len(observations))
		return domain.OutcomeThrottled
	}

	if !ShouldNotify(fresh, sub.Cursor, s.config.MinNotifyInterval) {
		logger.Debug("alert throttled", "new_sightings", len(fresh))
		return domain.OutcomeThrottled
	}

	if err := s.dispatcher.Dispatch(ctx, sub, fresh); err != nil {
		logger.Error("dispatch failed", "error", err)
		return domain.OutcomeFailed
	}
	s.metrics.AlertsSent.Inc()

	primary := fresh[0]
	entry := &domain.NotificationLogEntry{
		SubscriptionID: sub.ID,
		ObservationID:  primary.SubmissionID,
		SpeciesCode:    sub.SpeciesCode,
		LocationName:   primary.LocationName,
		ObservedAt:     primary.ObservedAt,
		ExtraCount:     len(fresh) - 1,
		SentAt:         s.clock.Now().UTC(),
	}

	if err := s.commit(ctx, sub.ID, entry); err != nil {
		// The alert went out but the cursor did not advance. The same batch
		// is re-dispatched next cycle: a possible duplicate, never a lost
		// subscription.
		logger.Error("commit failed after dispatch", "error", err)
		return domain.OutcomeFailed
	}

	if s.events != nil {
		if err := s.events.PublishAlert(ctx, entry); err != nil {
			logger.Warn("alert event publish failed", "error", err)
		}
	}

	logger.Info("alert sent",
		"observation_id", primary.SubmissionID,
		"observed_at", primary.ObservedAt,
		"extra", entry.ExtraCount,
	)

	return domain.OutcomeCommitted
}

// commit advances the cursor and records the alert in one transaction. When
// the subscription was deleted mid-cycle the cursor update reports no row
// and nothing is written.
func (s *NotifyService) commit(ctx context.Context, subscriptionID int64, entry *domain.NotificationLogEntry) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		advanced, err := s.subscriptions.UpdateCursor(txCtx, subscriptionID, entry.ObservationID, entry.ObservedAt)
		if err != nil {
			return fmt.Errorf("update cursor: %w", err)
		}
		if !advanced {
			return nil
		}
		if err := s.log.Insert(txCtx, entry); err != nil {
			return fmt.Errorf("insert notification log: %w", err)
		}
		return nil
	})
}

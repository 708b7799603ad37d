package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"bird_alerts/internal/domain"
)

type SubscriptionStore interface {
	List(ctx context.Context) ([]domain.Subscription, error)
	// UpdateCursor writes both cursor fields atomically. It returns false
	// without error when the subscription no longer exists.
	UpdateCursor(ctx context.Context, id int64, observationID string, notifiedAt time.Time) (bool, error)
}

type NotificationLogStore interface {
	Insert(ctx context.Context, entry *domain.NotificationLogEntry) error
}

type ObservationSource interface {
	Recent(ctx context.Context, speciesCode string, lat, lon, radiusMiles float64, backDays int) ([]domain.Observation, error)
}

type AlertDispatcher interface {
	Dispatch(ctx context.Context, sub *domain.Subscription, sightings []domain.Observation) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	PublishAlert(ctx context.Context, entry *domain.NotificationLogEntry) error
	Close() error
}

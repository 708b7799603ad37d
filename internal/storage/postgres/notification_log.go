package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"bird_alerts/internal/domain"
)

// NotificationLogStore records every dispatched alert. Inserts share the
// engine's commit transaction with the cursor update.
type NotificationLogStore struct {
	db *sqlx.DB
}

func NewNotificationLogStore(db *sqlx.DB) *NotificationLogStore {
	return &NotificationLogStore{db: db}
}

type notificationLogRow struct {
	ID             int64     `db:"id"`
	SubscriptionID int64     `db:"subscription_id"`
	ObservationID  string    `db:"observation_id"`
	SpeciesCode    string    `db:"species_code"`
	LocationName   string    `db:"location_name"`
	ObservedAt     time.Time `db:"observed_at"`
	ExtraCount     int       `db:"extra_count"`
	SentAt         time.Time `db:"sent_at"`
}

func (s *NotificationLogStore) Insert(ctx context.Context, entry *domain.NotificationLogEntry) error {
	query := `
		INSERT INTO notification_log (
			subscription_id, observation_id, species_code,
			location_name, observed_at, extra_count, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		entry.SubscriptionID,
		entry.ObservationID,
		entry.SpeciesCode,
		entry.LocationName,
		entry.ObservedAt,
		entry.ExtraCount,
		entry.SentAt,
	).Scan(&entry.ID)
}

func (s *NotificationLogStore) ListBySubscription(ctx context.Context, subscriptionID int64, limit int) ([]domain.NotificationLogEntry, error) {
	query := `
		SELECT id, subscription_id, observation_id, species_code,
		       location_name, observed_at, extra_count, sent_at
		FROM notification_log
		WHERE subscription_id = $1
		ORDER BY sent_at DESC
		LIMIT $2`

	var rows []notificationLogRow
	if err := s.db.SelectContext(ctx, &rows, query, subscriptionID, limit); err != nil {
		return nil, err
	}

	entries := make([]domain.NotificationLogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.NotificationLogEntry(r))
	}
	return entries, nil
}

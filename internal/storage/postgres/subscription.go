package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"bird_alerts/internal/domain"
)

type SubscriptionStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewSubscriptionStore(db *sqlx.DB, logger *slog.Logger) *SubscriptionStore {
	return &SubscriptionStore{db: db, logger: logger.With("store", "subscriptions")}
}

type subscriptionRow struct {
	ID                int64          `db:"id"`
	Phone             string         `db:"phone"`
	SpeciesCode       string         `db:"species_code"`
	SpeciesName       string         `db:"species_name"`
	Latitude          float64        `db:"latitude"`
	Longitude         float64        `db:"longitude"`
	LocationName      string         `db:"location_name"`
	RadiusMiles       float64        `db:"radius_miles"`
	LookBackDays      int            `db:"look_back_days"`
	CreatedAt         time.Time      `db:"created_at"`
	LastObservationID sql.NullString `db:"last_observation_id"`
	LastNotifiedAt    sql.NullTime   `db:"last_notified_at"`
}

func (r subscriptionRow) toDomain() domain.Subscription {
	sub := domain.Subscription{
		ID:           r.ID,
		Phone:        r.Phone,
		SpeciesCode:  r.SpeciesCode,
		SpeciesName:  r.SpeciesName,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		LocationName: r.LocationName,
		RadiusMiles:  r.RadiusMiles,
		LookBackDays: r.LookBackDays,
		CreatedAt:    r.CreatedAt,
	}
	if r.LastObservationID.Valid {
		sub.Cursor.LastObservationID = r.LastObservationID.String
	}
	if r.LastNotifiedAt.Valid {
		t := r.LastNotifiedAt.Time
		sub.Cursor.LastNotifiedAt = &t
	}
	return sub
}

const subscriptionColumns = `
	id, phone, species_code, species_name, latitude, longitude,
	location_name, radius_miles, look_back_days, created_at,
	last_observation_id, last_notified_at`

func (s *SubscriptionStore) List(ctx context.Context) ([]domain.Subscription, error) {
	query := `SELECT` + subscriptionColumns + ` FROM subscriptions ORDER BY id`

	var rows []subscriptionRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	subs := make([]domain.Subscription, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toDomain())
	}
	return subs, nil
}

func (s *SubscriptionStore) Get(ctx context.Context, id int64) (*domain.Subscription, error) {
	query := `SELECT` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	var row subscriptionRow
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}

	sub := row.toDomain()
	return &sub, nil
}

func (s *SubscriptionStore) Create(ctx context.Context, sub *domain.Subscription) (int64, error) {
	query := `
		INSERT INTO subscriptions (
			phone, species_code, species_name, latitude, longitude,
			location_name, radius_miles, look_back_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		sub.Phone,
		sub.SpeciesCode,
		sub.SpeciesName,
		sub.Latitude,
		sub.Longitude,
		sub.LocationName,
		sub.RadiusMiles,
		sub.LookBackDays,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return 0, err
	}

	return sub.ID, nil
}

func (s *SubscriptionStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = $1", id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

// UpdateCursor writes both cursor fields together. The guard keeps the
// cursor monotonic: a write whose notifiedAt precedes the stored value is
// ignored. Returns false without error when the row no longer exists or the
// write was suppressed, so a delete arriving mid-cycle is never resurrected.
func (s *SubscriptionStore) UpdateCursor(ctx context.Context, id int64, observationID string, notifiedAt time.Time) (bool, error) {
	query := `
		UPDATE subscriptions
		SET last_observation_id = $2, last_notified_at = $3
		WHERE id = $1
		  AND (last_notified_at IS NULL OR last_notified_at <= $3)`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, observationID, notifiedAt)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		s.logger.Info("cursor update skipped",
			"subscription_id", id,
			"observation_id", observationID,
		)
		return false, nil
	}
	return true, nil
}

package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/trip/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TripPgRepository — Postgres реализация TripRepository
type TripPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewTripPgRepository создает Postgres репозиторий поездок
func NewTripPgRepository(pool *pgxpool.Pool, log *logger.Logger) *TripPgRepository {
	return &TripPgRepository{pool: pool, log: log}
}

// Create сохраняет новую поездку
func (r *TripPgRepository) Create(ctx context.Context, t *domain.Trip) error {
	const q = `
		INSERT INTO trips (id, pickup, dropoff, status, rider_id, driver_id, created, updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, q,
		t.ID,
		t.Pickup,
		t.Dropoff,
		t.Status,
		t.RiderID,
		t.DriverID,
		t.Created,
		t.Updated,
	)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	return nil
}

// FindByID находит поездку по ID
func (r *TripPgRepository) FindByID(ctx context.Context, id string) (*domain.Trip, error) {
	const q = `
		SELECT id, pickup, dropoff, status, rider_id, driver_id, created, updated
		FROM trips
		WHERE id = $1`

	t, err := scanTrip(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTripNotFound
		}
		return nil, fmt.Errorf("find trip %s: %w", id, err)
	}

	return t, nil
}

// Update перезаписывает поля поездки
func (r *TripPgRepository) Update(ctx context.Context, t *domain.Trip) error {
	const q = `
		UPDATE trips
		SET pickup = $2, dropoff = $3, status = $4, rider_id = $5, driver_id = $6, updated = $7
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q,
		t.ID,
		t.Pickup,
		t.Dropoff,
		t.Status,
		t.RiderID,
		t.DriverID,
		t.Updated,
	)
	if err != nil {
		return fmt.Errorf("update trip %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTripNotFound
	}

	return nil
}

// FindActiveByParticipant возвращает незавершенные поездки пользователя
func (r *TripPgRepository) FindActiveByParticipant(ctx context.Context, userID string) ([]*domain.Trip, error) {
	const q = `
		SELECT id, pickup, dropoff, status, rider_id, driver_id, created, updated
		FROM trips
		WHERE (rider_id = $1 OR driver_id = $1) AND status <> $2
		ORDER BY created`

	rows, err := r.pool.Query(ctx, q, userID, domain.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("find active trips for %s: %w", userID, err)
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}

	return trips, nil
}

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var t domain.Trip
	err := row.Scan(
		&t.ID,
		&t.Pickup,
		&t.Dropoff,
		&t.Status,
		&t.RiderID,
		&t.DriverID,
		&t.Created,
		&t.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

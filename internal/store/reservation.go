package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tablehop/apiserver/types"
)

// ReservationRepository handles persistence for reservations.
type ReservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// List returns every reservation with its restaurant joined in, ordered by
// insertion.
func (r *ReservationRepository) List(ctx context.Context) ([]types.Reservation, error) {
	const query = `
		SELECT r.id, r.external_id, r.name, r.email, r.phone, r.date, r.time,
		       r.guests, r.restaurant_id, r.created_at,
		       s.id, s.name, s.location, s.cuisine, s.created_at
		FROM reservations r
		JOIN restaurants s ON s.id = r.restaurant_id
		ORDER BY r.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]types.Reservation, 0)
	for rows.Next() {
		var reservation types.Reservation
		var restaurant types.Restaurant
		if err := rows.Scan(
			&reservation.ID,
			&reservation.ExternalID,
			&reservation.Name,
			&reservation.Email,
			&reservation.Phone,
			&reservation.Date,
			&reservation.Time,
			&reservation.Guests,
			&reservation.RestaurantID,
			&reservation.CreatedAt,
			&restaurant.ID,
			&restaurant.Name,
			&restaurant.Location,
			&restaurant.Cuisine,
			&restaurant.CreatedAt,
		); err != nil {
			return nil, err
		}
		reservation.Restaurant = &restaurant
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

// Create inserts the reservation. The caller supplies ExternalID. A missing
// restaurant yields ErrInvalidReference and a reused ExternalID ErrConflict.
func (r *ReservationRepository) Create(ctx context.Context, reservation types.Reservation) (types.Reservation, error) {
	const query = `
		INSERT INTO reservations (
			external_id, name, email, phone, date, time, guests, restaurant_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		reservation.ExternalID,
		reservation.Name,
		reservation.Email,
		reservation.Phone,
		reservation.Date,
		reservation.Time,
		reservation.Guests,
		reservation.RestaurantID,
	).Scan(&reservation.ID, &reservation.CreatedAt); err != nil {
		return types.Reservation{}, translate(err)
	}

	return reservation, nil
}

// DeleteByExternalID removes the reservation and returns the deleted row.
func (r *ReservationRepository) DeleteByExternalID(ctx context.Context, externalID string) (types.Reservation, error) {
	const query = `
		DELETE FROM reservations
		WHERE external_id = $1
		RETURNING id, external_id, name, email, phone, date, time,
		          guests, restaurant_id, created_at`
	var reservation types.Reservation
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(
		&reservation.ID,
		&reservation.ExternalID,
		&reservation.Name,
		&reservation.Email,
		&reservation.Phone,
		&reservation.Date,
		&reservation.Time,
		&reservation.Guests,
		&reservation.RestaurantID,
		&reservation.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Reservation{}, ErrNotFound
		}
		return types.Reservation{}, err
	}
	return reservation, nil
}

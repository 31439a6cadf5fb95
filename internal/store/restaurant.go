package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tablehop/apiserver/types"
)

// RestaurantRepository handles persistence for the restaurant catalog.
type RestaurantRepository struct {
	db *sql.DB
}

func NewRestaurantRepository(db *sql.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

func (r *RestaurantRepository) List(ctx context.Context) ([]types.Restaurant, error) {
	const query = `
		SELECT id, name, location, cuisine, created_at
		FROM restaurants
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	restaurants := make([]types.Restaurant, 0)
	for rows.Next() {
		var restaurant types.Restaurant
		if err := rows.Scan(
			&restaurant.ID,
			&restaurant.Name,
			&restaurant.Location,
			&restaurant.Cuisine,
			&restaurant.CreatedAt,
		); err != nil {
			return nil, err
		}
		restaurants = append(restaurants, restaurant)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return restaurants, nil
}

func (r *RestaurantRepository) Get(ctx context.Context, id int) (types.Restaurant, error) {
	const query = `
		SELECT id, name, location, cuisine, created_at
		FROM restaurants
		WHERE id = $1`
	var restaurant types.Restaurant
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&restaurant.ID,
		&restaurant.Name,
		&restaurant.Location,
		&restaurant.Cuisine,
		&restaurant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Restaurant{}, ErrNotFound
		}
		return types.Restaurant{}, err
	}
	return restaurant, nil
}

func (r *RestaurantRepository) Create(ctx context.Context, restaurant types.Restaurant) (types.Restaurant, error) {
	const query = `
		INSERT INTO restaurants (name, location, cuisine)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		restaurant.Name,
		restaurant.Location,
		restaurant.Cuisine,
	).Scan(&restaurant.ID, &restaurant.CreatedAt); err != nil {
		return types.Restaurant{}, err
	}

	return restaurant, nil
}

package types

import "time"

// Restaurant is an entry in the catalog. Restaurants are immutable once
// created and may be referenced by any number of reservations.
type Restaurant struct {
	// ID is the storage-assigned identifier of the restaurant.
	ID int `json:"id" db:"id"`

	// Name is the display name of the restaurant.
	Name string `json:"name" db:"name"`

	// Location is a free-form address or city.
	Location string `json:"location" db:"location"`

	// Cuisine describes the kind of food served (e.g., "French").
	Cuisine string `json:"cuisine" db:"cuisine"`

	// CreatedAt is the timestamp at which the restaurant was added.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

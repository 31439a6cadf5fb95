package types

import "time"

// Reservation is a table booking at a single restaurant.
//
// Reservations are addressed by ExternalID everywhere outside the store; the
// storage identifier stays internal.
type Reservation struct {
	// ID is the storage identifier. It is never serialized.
	ID int64 `json:"-" db:"id"`

	// ExternalID is the client-facing UUID of the reservation.
	ExternalID string `json:"id" db:"external_id"`

	// Name is the name the table is booked under.
	Name string `json:"name" db:"name"`

	// Email is the contact address of the guest.
	Email string `json:"email" db:"email"`

	// Phone is the contact phone number of the guest.
	Phone string `json:"phone" db:"phone"`

	// Date and Time are free-form strings supplied by the client.
	Date string `json:"date" db:"date"`
	Time string `json:"time" db:"time"`

	// Guests is the party size.
	Guests int `json:"guests" db:"guests"`

	// RestaurantID references the booked restaurant.
	RestaurantID int `json:"restaurantId" db:"restaurant_id"`

	// Restaurant is populated on list views with the referenced record.
	Restaurant *Restaurant `json:"restaurant,omitempty" db:"-"`

	// CreatedAt is the timestamp when the reservation was made.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

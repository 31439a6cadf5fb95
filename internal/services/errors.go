package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is the parent of every login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownUser        = fmt.Errorf("%w: unknown username", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)

	ErrUsernameTaken       = errors.New("username already exists")
	ErrPasswordTooLong     = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

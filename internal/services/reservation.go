package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tablehop/apiserver/internal/logging"
	"github.com/tablehop/apiserver/internal/store"
	"github.com/tablehop/apiserver/types"
)

// ReservationRepository defines persistence operations for reservations.
type ReservationRepository interface {
	List(ctx context.Context) ([]types.Reservation, error)
	Create(ctx context.Context, reservation types.Reservation) (types.Reservation, error)
	DeleteByExternalID(ctx context.Context, externalID string) (types.Reservation, error)
}

// EventPublisher sends a payload to a broker channel. *mq.MQ satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ReservationService encapsulates reservation use-cases.
type ReservationService struct {
	repo        ReservationRepository
	restaurants RestaurantRepository
	publisher   EventPublisher
	channel     string
	logger      logging.Logger
	now         func() time.Time
}

type ReservationOption func(*ReservationService)

// WithEvents publishes lifecycle events to channel after each successful write.
func WithEvents(publisher EventPublisher, channel string) ReservationOption {
	return func(s *ReservationService) {
		s.publisher = publisher
		s.channel = channel
	}
}

func WithLogger(logger logging.Logger) ReservationOption {
	return func(s *ReservationService) {
		s.logger = logger
	}
}

func NewReservationService(repo ReservationRepository, restaurants RestaurantRepository, opts ...ReservationOption) *ReservationService {
	s := &ReservationService{
		repo:        repo,
		restaurants: restaurants,
		logger:      logging.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every reservation with its restaurant populated.
func (s *ReservationService) List(ctx context.Context) ([]types.Reservation, error) {
	return s.repo.List(ctx)
}

// Create assigns a fresh external id and stores the reservation. The
// referenced restaurant must exist.
func (s *ReservationService) Create(ctx context.Context, reservation types.Reservation) (types.Reservation, error) {
	if _, err := s.restaurants.Get(ctx, reservation.RestaurantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Reservation{}, ErrRestaurantNotFound
		}
		return types.Reservation{}, fmt.Errorf("load restaurant: %w", err)
	}

	reservation.ID = 0
	reservation.ExternalID = uuid.NewString()
	reservation.Restaurant = nil

	created, err := s.repo.Create(ctx, reservation)
	if err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return types.Reservation{}, ErrRestaurantNotFound
		}
		return types.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}

	s.publish(ctx, types.EventReservationCreated, created)
	return created, nil
}

// Delete removes the reservation with the given external id and returns it.
func (s *ReservationService) Delete(ctx context.Context, externalID string) (types.Reservation, error) {
	if _, err := uuid.Parse(externalID); err != nil {
		return types.Reservation{}, ErrReservationNotFound
	}

	deleted, err := s.repo.DeleteByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Reservation{}, ErrReservationNotFound
		}
		return types.Reservation{}, fmt.Errorf("delete reservation: %w", err)
	}

	s.publish(ctx, types.EventReservationDeleted, deleted)
	return deleted, nil
}

// publish is best-effort: the write already committed, so failures are only logged.
func (s *ReservationService) publish(ctx context.Context, eventType types.EventType, reservation types.Reservation) {
	if s.publisher == nil {
		return
	}

	data, err := json.Marshal(types.ReservationEvent{
		Type:        eventType,
		Reservation: reservation,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.Error(ctx, "encode reservation event", "type", eventType, "error", err)
		return
	}

	attrs := map[string]string{"type": string(eventType), "reservation_id": reservation.ExternalID}
	messageID, err := s.publisher.Publish(ctx, s.channel, data, attrs)
	if err != nil {
		s.logger.Warn(ctx, "publish reservation event failed",
			"type", eventType,
			"reservation_id", reservation.ExternalID,
			"error", err,
		)
		return
	}
	s.logger.Debug(ctx, "reservation event published",
		"type", eventType,
		"reservation_id", reservation.ExternalID,
		"message_id", messageID,
	)
}

// Package notify turns reservation events into guest notifications.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tablehop/apiserver/internal/logging"
	"github.com/tablehop/apiserver/internal/mq"
	"github.com/tablehop/apiserver/types"
)

// Notice is one message to a guest.
type Notice struct {
	Kind          types.EventType
	Recipient     string
	Name          string
	ReservationID string
	RestaurantID  int
	Date          string
	Time          string
	Guests        int
}

// Notifier delivers notices.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// LogNotifier writes every notice to the logger instead of sending it.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notice Notice) error {
	msg := "reservation confirmed"
	if notice.Kind == types.EventReservationDeleted {
		msg = "reservation cancelled"
	}
	n.logger.Info(ctx, msg,
		"to", notice.Recipient,
		"name", notice.Name,
		"reservation_id", notice.ReservationID,
		"restaurant_id", notice.RestaurantID,
		"date", notice.Date,
		"time", notice.Time,
		"guests", notice.Guests,
	)
	return nil
}

// Subscriber is the consuming half of a broker. *mq.MQ satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// Worker consumes reservation events from a channel.
type Worker struct {
	sub      Subscriber
	channel  string
	notifier Notifier
	logger   logging.Logger
}

func NewWorker(sub Subscriber, channel string, notifier Notifier, logger logging.Logger) *Worker {
	return &Worker{
		sub:      sub,
		channel:  channel,
		notifier: notifier,
		logger:   logger.With("channel", channel),
	}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info(ctx, "notification worker started")
	err := w.sub.Subscribe(ctx, w.channel, w.Handle)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("subscribe %s: %w", w.channel, err)
	}
	w.logger.Info(ctx, "notification worker stopped")
	return nil
}

// Handle processes one message. Malformed messages are logged and
// acknowledged; only notifier failures are returned for redelivery.
func (w *Worker) Handle(ctx context.Context, msg mq.Message) error {
	var event types.ReservationEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		w.logger.Warn(ctx, "drop malformed event", "message_id", msg.ID, "error", err)
		return nil
	}

	switch event.Type {
	case types.EventReservationCreated, types.EventReservationDeleted:
	default:
		w.logger.Warn(ctx, "drop unknown event", "message_id", msg.ID, "type", event.Type)
		return nil
	}

	r := event.Reservation
	if r.Email == "" {
		w.logger.Warn(ctx, "drop event without recipient", "message_id", msg.ID, "reservation_id", r.ExternalID)
		return nil
	}

	if err := w.notifier.Notify(ctx, Notice{
		Kind:          event.Type,
		Recipient:     r.Email,
		Name:          r.Name,
		ReservationID: r.ExternalID,
		RestaurantID:  r.RestaurantID,
		Date:          r.Date,
		Time:          r.Time,
		Guests:        r.Guests,
	}); err != nil {
		w.logger.Error(ctx, "notify", "reservation_id", r.ExternalID, "error", err)
		return err
	}
	w.logger.Debug(ctx, "event handled", "message_id", msg.ID, "type", event.Type, "reservation_id", r.ExternalID)
	return nil
}

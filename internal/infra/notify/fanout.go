package notify

import (
	"context"
	"errors"
	"log/slog"

	"lounge-booking/internal/usecase/shared"
)

// Fanout delivers to every notifier and joins their failures.
type Fanout []shared.Notifier

func (f Fanout) Notify(ctx context.Context, event shared.ReservationEvent) error {
	var errList []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// LogNotifier stands in for the broker when it is disabled.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event shared.ReservationEvent) error {
	slog.Info("Reservation event",
		slog.String("kind", string(event.Kind)),
		slog.String("reservation_id", event.ReservationID.String()),
		slog.String("status", event.Status),
		slog.Time("start", event.Start),
		slog.Time("end", event.End))
	return nil
}

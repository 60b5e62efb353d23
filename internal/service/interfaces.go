package service

import (
	"context"

	"github.com/EpicMandM/room-booking/internal/models"
)

// BookingAPI abstracts the external booking service's REST calls for testability.
type BookingAPI interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	CreateBooking(ctx context.Context, draft models.Draft) error
	CancelBooking(ctx context.Context, id models.BookingID) error
}

// PushChannel abstracts the server-to-client event stream. It is an owned
// object: Connect starts delivery on Events, Close stops it and closes the
// channel. Reconnected signals after a dropped connection is restored.
type PushChannel interface {
	Connect(ctx context.Context) error
	Events() <-chan models.PushEvent
	Reconnected() <-chan struct{}
	Close() error
}

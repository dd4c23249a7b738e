package bookingRepo

import (
	"context"
	"time"

	"bookline/models"
)

// BookingRepository owns booking persistence and the transactional
// check-then-insert at the heart of the reservation gate. The gate serializes
// callers per specialist-day before invoking ReserveTransactionally, so the
// transaction only has to defend against writers outside this process.
type BookingRepository interface {
	// ReserveTransactionally inserts the booking iff no live (pending or
	// confirmed) booking for the same specialist on the same date overlaps its
	// interval. Returns ErrConflict when the check fails.
	ReserveTransactionally(ctx context.Context, booking *models.Booking) error

	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	// FindLiveBySpecialistDate returns pending+confirmed bookings for one
	// specialist-day, the availability calculator's subtraction input.
	FindLiveBySpecialistDate(ctx context.Context, specialistID, date string) ([]models.Booking, error)
	// UpdateStatus transitions status from->to atomically; no-op error if the
	// booking is not currently in the from status.
	UpdateStatus(ctx context.Context, bookingID, from, to string) error
	// FindPendingCreatedBefore lists pending bookings older than the cutoff,
	// feeding the expiry sweep.
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
}

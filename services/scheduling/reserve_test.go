package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookline/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(repo *fakeShopRepo, bookings *fakeBookingRepo) *ReservationGate {
	avail := &AvailabilityEngine{Shops: repo, Bookings: bookings}
	return NewReservationGate(repo, bookings, avail, nil, nil, 5*time.Minute)
}

func TestReserve_ConcurrentClaimsSingleWinner(t *testing.T) {
	gate := newTestGate(testFixtures(), newFakeBookingRepo())
	interval := models.TimeInterval{Start: at(monday, 10, 0), End: at(monday, 10, 30)}

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	won, lost := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.Reserve(context.Background(), "svc1", "spec1", uuid.NewString(), interval)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				won++
			case ErrSlotUnavailable:
				lost++
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won, "exactly one claim must win")
	assert.Equal(t, attempts-1, lost, "every other claim must observe the slot as taken")
}

func TestReserve_PrunesDayLocks(t *testing.T) {
	gate := newTestGate(testFixtures(), newFakeBookingRepo())

	var wg sync.WaitGroup
	for day := 0; day < 5; day++ {
		start := at(monday.AddDate(0, 0, day), 10, 0)
		end := at(monday.AddDate(0, 0, day), 10, 30)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = gate.Reserve(context.Background(), "svc1", "spec1", uuid.NewString(),
					models.TimeInterval{Start: start, End: end})
			}()
		}
	}
	wg.Wait()

	// Contention entries are refcounted away; the map must not grow one key
	// per specialist-day forever.
	gate.mu.Lock()
	remaining := len(gate.locks)
	gate.mu.Unlock()
	assert.Equal(t, 0, remaining)
}

func TestReserve_AdjacentIntervalsBothSucceed(t *testing.T) {
	gate := newTestGate(testFixtures(), newFakeBookingRepo())

	_, err := gate.Reserve(context.Background(), "svc1", "spec1", "cust1",
		models.TimeInterval{Start: at(monday, 10, 0), End: at(monday, 10, 30)})
	require.NoError(t, err)

	// Half-open intervals: a booking ending at 10:30 does not collide with one
	// starting at 10:30.
	_, err = gate.Reserve(context.Background(), "svc1", "spec1", "cust2",
		models.TimeInterval{Start: at(monday, 10, 30), End: at(monday, 11, 0)})
	assert.NoError(t, err)
}

func TestReserve_InvalidInterval(t *testing.T) {
	gate := newTestGate(testFixtures(), newFakeBookingRepo())

	_, err := gate.Reserve(context.Background(), "svc1", "spec1", "cust1",
		models.TimeInterval{Start: at(monday, 11, 0), End: at(monday, 10, 0)})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestConfirmAndCancelLifecycle(t *testing.T) {
	bookings := newFakeBookingRepo()
	gate := newTestGate(testFixtures(), bookings)

	booking, err := gate.Reserve(context.Background(), "svc1", "spec1", "cust1",
		models.TimeInterval{Start: at(monday, 9, 0), End: at(monday, 9, 30)})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)

	confirmed, err := gate.Confirm(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)

	// Confirm is not idempotent; a second attempt finds a non-pending booking.
	_, err = gate.Confirm(context.Background(), booking.ID)
	assert.Error(t, err)

	require.NoError(t, gate.Cancel(context.Background(), booking.ID))
	stored, err := bookings.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, stored.Status)

	// Cancelled bookings no longer occupy the interval.
	_, err = gate.Reserve(context.Background(), "svc1", "spec1", "cust2",
		models.TimeInterval{Start: at(monday, 9, 0), End: at(monday, 9, 30)})
	assert.NoError(t, err)
}

func TestConfirm_UnknownBooking(t *testing.T) {
	gate := newTestGate(testFixtures(), newFakeBookingRepo())

	_, err := gate.Confirm(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestReleaseExpired_CancelsStalePending(t *testing.T) {
	bookings := newFakeBookingRepo()
	gate := newTestGate(testFixtures(), bookings)

	stale := &models.Booking{
		ID:           uuid.NewString(),
		ShopID:       "shop1",
		ServiceID:    "svc1",
		SpecialistID: "spec1",
		Date:         monday.Format("2006-01-02"),
		Interval:     models.TimeInterval{Start: at(monday, 14, 0), End: at(monday, 14, 30)},
		Status:       models.BookingPending,
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	require.NoError(t, bookings.ReserveTransactionally(context.Background(), stale))

	fresh, err := gate.Reserve(context.Background(), "svc1", "spec1", "cust1",
		models.TimeInterval{Start: at(monday, 15, 0), End: at(monday, 15, 30)})
	require.NoError(t, err)

	released, err := gate.ReleaseExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	got, err := bookings.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)

	// The fresh reservation is inside its hold window and survives the sweep.
	got, err = bookings.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, got.Status)
}

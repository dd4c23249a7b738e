package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingRepo "bookline/database/repository/booking"
	shopRepo "bookline/database/repository/shop"
	"bookline/models"
	"bookline/services/notification"
	"bookline/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationGate serializes slot claims per (specialist, day) so two
// concurrent overlapping requests observe a single winner. The narrow
// critical section is the check-then-insert itself; availability queries and
// slot generation run outside it.
type ReservationGate struct {
	Shops        shopRepo.ShopRepository
	Bookings     bookingRepo.BookingRepository
	Availability *AvailabilityEngine
	Publisher    notification.Publisher

	// Holds carries pending-reservation hold keys with the configured TTL;
	// a pending booking whose hold lapsed is released by the expiry sweep.
	Holds   *redis.Client
	HoldTTL time.Duration

	mu    sync.Mutex
	locks map[string]*dayLock // keyed specialistID|date
}

// dayLock is one specialist-day contention mutex. refs counts holders and
// waiters so the entry can be dropped once the last one releases.
type dayLock struct {
	mu   sync.Mutex
	refs int
}

// NewReservationGate wires a gate over its collaborators.
func NewReservationGate(shops shopRepo.ShopRepository, bookings bookingRepo.BookingRepository,
	avail *AvailabilityEngine, pub notification.Publisher, holds *redis.Client, holdTTL time.Duration) *ReservationGate {
	if holdTTL <= 0 {
		holdTTL = 5 * time.Minute
	}
	return &ReservationGate{
		Shops:        shops,
		Bookings:     bookings,
		Availability: avail,
		Publisher:    pub,
		Holds:        holds,
		HoldTTL:      holdTTL,
		locks:        make(map[string]*dayLock),
	}
}

// acquireLock locks the named mutex for one specialist-day contention key.
func (g *ReservationGate) acquireLock(specialistID, date string) *dayLock {
	key := specialistID + "|" + date
	g.mu.Lock()
	lock, ok := g.locks[key]
	if !ok {
		lock = &dayLock{}
		g.locks[key] = lock
	}
	lock.refs++
	g.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// releaseLock unlocks the contention mutex and prunes the map entry when no
// other claim is holding or waiting on it.
func (g *ReservationGate) releaseLock(specialistID, date string, lock *dayLock) {
	lock.mu.Unlock()
	g.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(g.locks, specialistID+"|"+date)
	}
	g.mu.Unlock()
}

// Reserve claims the interval for the specialist, creating a pending booking.
// Losing the race, or targeting an interval no longer open, yields
// ErrSlotUnavailable; the caller must re-run availability rather than retry
// the same interval.
func (g *ReservationGate) Reserve(ctx context.Context, serviceID, specialistID, customerID string, interval models.TimeInterval) (*models.Booking, error) {
	logger := utils.GetLogger()

	if !interval.Start.Before(interval.End) {
		return nil, ErrInvalidInterval
	}
	svc, err := g.Shops.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", err)
	}

	date := interval.Start.Format("2006-01-02")
	booking := &models.Booking{
		ID:           uuid.New().String(),
		ShopID:       svc.ShopID,
		ServiceID:    serviceID,
		SpecialistID: specialistID,
		CustomerID:   customerID,
		Date:         date,
		Interval:     interval,
		Status:       models.BookingPending,
		CreatedAt:    time.Now(),
	}

	lock := g.acquireLock(specialistID, date)
	err = g.Bookings.ReserveTransactionally(ctx, booking)
	g.releaseLock(specialistID, date, lock)

	if err != nil {
		if errors.Is(err, bookingRepo.ErrConflict) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("reserve: %w", err)
	}

	if err := g.placeHold(ctx, booking.ID); err != nil {
		logger.Warn("reserve: failed to place hold, booking will rely on sweep cutoff",
			zap.String("bookingID", booking.ID), zap.Error(err))
	}

	g.Availability.InvalidateAvailability(ctx, serviceID, interval.Start)
	g.publish(ctx, models.EventSlotReserved, booking, models.BookingPending)

	logger.Info("slot reserved",
		zap.String("bookingID", booking.ID),
		zap.String("specialistID", specialistID),
		zap.String("date", date))
	return booking, nil
}

// Confirm promotes a pending booking while its hold is still live. Once
// confirmed, the interval is immutable except for cancellation.
func (g *ReservationGate) Confirm(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := g.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	if booking.Status != models.BookingPending {
		return nil, fmt.Errorf("confirm: booking %s is %s, not pending", bookingID, booking.Status)
	}
	if !g.holdLive(ctx, bookingID) {
		return nil, ErrHoldExpired
	}
	if err := g.Bookings.UpdateStatus(ctx, bookingID, models.BookingPending, models.BookingConfirmed); err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	g.releaseHold(ctx, bookingID)
	booking.Status = models.BookingConfirmed
	return booking, nil
}

// Cancel releases a pending or confirmed booking and reopens its interval.
func (g *ReservationGate) Cancel(ctx context.Context, bookingID string) error {
	booking, err := g.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return ErrBookingNotFound
	}
	if !booking.Live() {
		return fmt.Errorf("cancel: booking %s is already %s", bookingID, booking.Status)
	}
	if err := g.Bookings.UpdateStatus(ctx, bookingID, booking.Status, models.BookingCancelled); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	g.releaseHold(ctx, bookingID)
	g.Availability.InvalidateAvailability(ctx, booking.ServiceID, booking.Interval.Start)
	g.publish(ctx, models.EventSlotReleased, booking, models.BookingCancelled)
	return nil
}

// ReleaseExpired cancels pending bookings whose hold has lapsed, returning
// their slots to availability. Invoked by the background sweep.
func (g *ReservationGate) ReleaseExpired(ctx context.Context) (int, error) {
	logger := utils.GetLogger()
	cutoff := time.Now().Add(-g.HoldTTL)
	stale, err := g.Bookings.FindPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release expired: %w", err)
	}

	released := 0
	for _, booking := range stale {
		// Without redis the cutoff alone decides expiry.
		if g.Holds != nil && g.holdLive(ctx, booking.ID) {
			continue // hold refreshed out of band
		}
		if err := g.Bookings.UpdateStatus(ctx, booking.ID, models.BookingPending, models.BookingCancelled); err != nil {
			logger.Warn("release expired: status update failed",
				zap.String("bookingID", booking.ID), zap.Error(err))
			continue
		}
		g.Availability.InvalidateAvailability(ctx, booking.ServiceID, booking.Interval.Start)
		g.publish(ctx, models.EventSlotReleased, &booking, models.BookingCancelled)
		released++
	}
	if released > 0 {
		logger.Info("released expired pending reservations", zap.Int("count", released))
	}
	return released, nil
}

func holdKey(bookingID string) string {
	return "hold:" + bookingID
}

func (g *ReservationGate) placeHold(ctx context.Context, bookingID string) error {
	if g.Holds == nil {
		return nil
	}
	return g.Holds.Set(ctx, holdKey(bookingID), 1, g.HoldTTL).Err()
}

func (g *ReservationGate) holdLive(ctx context.Context, bookingID string) bool {
	if g.Holds == nil {
		// Without redis the sweep cutoff alone decides expiry.
		return true
	}
	n, err := g.Holds.Exists(ctx, holdKey(bookingID)).Result()
	return err == nil && n > 0
}

func (g *ReservationGate) releaseHold(ctx context.Context, bookingID string) {
	if g.Holds == nil {
		return
	}
	_ = g.Holds.Del(ctx, holdKey(bookingID)).Err()
}

func (g *ReservationGate) publish(ctx context.Context, eventType string, booking *models.Booking, value string) {
	if g.Publisher == nil {
		return
	}
	if err := g.Publisher.Publish(ctx, models.EngineEvent{
		Type:      eventType,
		ShopID:    booking.ShopID,
		EntityID:  booking.ID,
		Value:     value,
		Timestamp: time.Now(),
	}); err != nil {
		utils.GetLogger().Warn("reserve: event publish failed",
			zap.String("type", eventType), zap.Error(err))
	}
}

package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingRepo "bookline/database/repository/booking"
	"bookline/models"
)

// fakeShopRepo serves fixtures for calculator and gate tests.
type fakeShopRepo struct {
	shops       map[string]models.Shop
	services    map[string]models.Service
	specialists []models.Specialist
	rules       []models.ServiceAvailabilityRule
}

func (f *fakeShopRepo) GetShop(_ context.Context, shopID string) (*models.Shop, error) {
	shop, ok := f.shops[shopID]
	if !ok {
		return nil, fmt.Errorf("shop %s not found", shopID)
	}
	return &shop, nil
}

func (f *fakeShopRepo) GetService(_ context.Context, serviceID string) (*models.Service, error) {
	svc, ok := f.services[serviceID]
	if !ok {
		return nil, fmt.Errorf("service %s not found", serviceID)
	}
	return &svc, nil
}

func (f *fakeShopRepo) GetSpecialistsForService(_ context.Context, serviceID string) ([]models.Specialist, error) {
	var out []models.Specialist
	for _, sp := range f.specialists {
		if sp.Qualified(serviceID) {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (f *fakeShopRepo) GetServiceRule(_ context.Context, serviceID string, weekday time.Weekday) (*models.ServiceAvailabilityRule, error) {
	for _, r := range f.rules {
		if r.ServiceID == serviceID && r.Weekday == weekday {
			rule := r
			return &rule, nil
		}
	}
	return nil, nil
}

// fakeBookingRepo is an in-memory BookingRepository whose transactional
// reserve performs the same overlap check as the mongo implementation.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[string]*models.Booking)}
}

func (f *fakeBookingRepo) ReserveTransactionally(_ context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.SpecialistID == booking.SpecialistID && b.Date == booking.Date &&
			b.Live() && b.Interval.Overlaps(booking.Interval) {
			return bookingRepo.ErrConflict
		}
	}
	stored := *booking
	f.bookings[booking.ID] = &stored
	return nil
}

func (f *fakeBookingRepo) GetByID(_ context.Context, bookingID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %s not found", bookingID)
	}
	out := *b
	return &out, nil
}

func (f *fakeBookingRepo) FindLiveBySpecialistDate(_ context.Context, specialistID, date string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.SpecialistID == specialistID && b.Date == date && b.Live() {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, bookingID, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.Status != from {
		return fmt.Errorf("booking %s is not in status %q", bookingID, from)
	}
	b.Status = to
	return nil
}

func (f *fakeBookingRepo) FindPendingCreatedBefore(_ context.Context, cutoff time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.Status == models.BookingPending && b.CreatedAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

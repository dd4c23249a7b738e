package models

import "time"

// Booking status values. An interval, once confirmed, is immutable except for
// cancellation.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// Booking is a claimed slot for one specialist. Created by the reservation
// gate on a successful claim; mutated only through gate-mediated transitions.
type Booking struct {
	ID           string       `bson:"id" json:"id"`
	ShopID       string       `bson:"shopId" json:"shopId"`
	ServiceID    string       `bson:"serviceId" json:"serviceId"`
	SpecialistID string       `bson:"specialistId" json:"specialistId"`
	CustomerID   string       `bson:"customerId" json:"customerId"`
	Date         string       `bson:"date" json:"date"` // "2006-01-02", the specialist-day contention key
	Interval     TimeInterval `bson:"interval" json:"interval"`
	Status       string       `bson:"status" json:"status"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt"`
}

// Live reports whether the booking still occupies its interval for conflict
// detection purposes.
func (b Booking) Live() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// Slot is a discrete bookable candidate produced by the slot generator.
type Slot struct {
	Start        time.Time `json:"start"`
	SpecialistID string    `json:"specialistId"`
}

// SpecialistAvailability is one specialist's remaining open intervals for a
// service/date, as produced by the availability calculator. Ephemeral, never
// persisted.
type SpecialistAvailability struct {
	SpecialistID string         `json:"specialistId"`
	Open         []TimeInterval `json:"open"`
}

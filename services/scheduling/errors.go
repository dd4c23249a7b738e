package scheduling

import "errors"

// Typed failures surfaced to callers. Availability shortfalls are not errors:
// a closed shop or a fully booked day comes back as an empty result.
var (
	// ErrNoQualifiedSpecialist means no specialist can perform the service at
	// all. Distinct from "no open time today" so the UI can say "not offered
	// here" instead of "try another day".
	ErrNoQualifiedSpecialist = errors.New("no specialist is qualified for this service")

	// ErrSlotUnavailable means a reservation lost the race or the interval is
	// no longer open. Callers must re-query availability, never blindly retry
	// the same interval.
	ErrSlotUnavailable = errors.New("slot no longer available")

	// ErrInvalidInterval rejects malformed input before it reaches the
	// interval algebra.
	ErrInvalidInterval = errors.New("invalid time interval")

	// ErrBookingNotFound is returned by confirm/cancel on unknown IDs.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrHoldExpired means a pending reservation outlived its hold and was
	// already released; the caller must reserve again.
	ErrHoldExpired = errors.New("reservation hold expired")
)

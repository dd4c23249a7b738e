package scheduling

import (
	"time"

	"bookline/models"
)

// SlotIterator lazily discretizes availability output into bookable
// (start, specialist) candidates. It walks one specialist at a time in
// ascending specialist-ID order, each specialist's intervals left to right,
// stepping by granularity. Nothing is materialized up front; callers pull
// until they have enough candidates.
type SlotIterator struct {
	avail       []models.SpecialistAvailability
	occupied    time.Duration // service duration + buffer
	granularity time.Duration

	specIdx     int
	intervalIdx int
	cursor      time.Time
}

// NewSlotIterator builds an iterator over the calculator's output.
// granularity <= 0 defaults to the service duration. The availability input
// is expected sorted by specialist ID, as AvailabilityFor returns it.
func NewSlotIterator(avail []models.SpecialistAvailability, duration, buffer, granularity time.Duration) *SlotIterator {
	if granularity <= 0 {
		granularity = duration
	}
	it := &SlotIterator{
		avail:       avail,
		occupied:    duration + buffer,
		granularity: granularity,
	}
	it.seed()
	return it
}

// seed positions the cursor at the start of the current interval, advancing
// over exhausted specialists.
func (it *SlotIterator) seed() {
	for it.specIdx < len(it.avail) {
		if it.intervalIdx < len(it.avail[it.specIdx].Open) {
			it.cursor = it.avail[it.specIdx].Open[it.intervalIdx].Start
			return
		}
		it.specIdx++
		it.intervalIdx = 0
	}
}

// Next produces the next slot. ok is false once the iterator is exhausted.
// A slot is emitted only when start + duration + buffer fits inside the
// containing interval, so no candidate ever overruns shop close.
func (it *SlotIterator) Next() (models.Slot, bool) {
	for it.specIdx < len(it.avail) {
		sa := it.avail[it.specIdx]
		iv := sa.Open[it.intervalIdx]

		if !it.cursor.Add(it.occupied).After(iv.End) {
			slot := models.Slot{Start: it.cursor, SpecialistID: sa.SpecialistID}
			it.cursor = it.cursor.Add(it.granularity)
			return slot, true
		}

		// Interval exhausted; move to the next one (or next specialist).
		it.intervalIdx++
		if it.intervalIdx >= len(sa.Open) {
			it.specIdx++
			it.intervalIdx = 0
		}
		it.seed()
	}
	return models.Slot{}, false
}

// Take pulls up to n slots.
func (it *SlotIterator) Take(n int) []models.Slot {
	var slots []models.Slot
	for len(slots) < n {
		slot, ok := it.Next()
		if !ok {
			break
		}
		slots = append(slots, slot)
	}
	return slots
}

// All drains the iterator. Finite by construction.
func (it *SlotIterator) All() []models.Slot {
	var slots []models.Slot
	for {
		slot, ok := it.Next()
		if !ok {
			return slots
		}
		slots = append(slots, slot)
	}
}

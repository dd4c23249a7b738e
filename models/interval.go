package models

import (
	"fmt"
	"time"
)

// TimeInterval is a half-open interval [Start, End). Immutable value type;
// construct through NewTimeInterval so that Start < End always holds.
type TimeInterval struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// NewTimeInterval builds a validated interval. Degenerate or inverted bounds
// are rejected here so the algebra layer never sees them.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, fmt.Errorf("invalid interval [%s, %s): start must precede end",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Duration returns End - Start.
func (iv TimeInterval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies fully inside iv.
func (iv TimeInterval) Contains(other TimeInterval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv TimeInterval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format("15:04"), iv.End.Format("15:04"))
}

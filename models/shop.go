package models

import "time"

// OperatingWindow is a shop's or specialist's open window for one weekday,
// expressed as minutes from midnight. Closed days carry Closed=true and the
// minute fields are ignored.
type OperatingWindow struct {
	Weekday     time.Weekday `bson:"weekday" json:"weekday"`
	OpenMinute  int          `bson:"openMinute" json:"openMinute"`   // e.g. 540 for 09:00
	CloseMinute int          `bson:"closeMinute" json:"closeMinute"` // e.g. 1020 for 17:00
	Closed      bool         `bson:"closed" json:"closed"`
}

// Interval materializes the window onto a concrete date. ok is false for
// closed or malformed windows.
func (w OperatingWindow) Interval(date time.Time) (TimeInterval, bool) {
	if w.Closed || w.OpenMinute >= w.CloseMinute {
		return TimeInterval{}, false
	}
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return TimeInterval{
		Start: midnight.Add(time.Duration(w.OpenMinute) * time.Minute),
		End:   midnight.Add(time.Duration(w.CloseMinute) * time.Minute),
	}, true
}

// Shop is the booking/queueing tenant. The engine reads hours and defaults;
// the rest of the aggregate is owned by the surrounding platform.
type Shop struct {
	ID    string            `bson:"id" json:"id"`
	Name  string            `bson:"name" json:"name"`
	Hours []OperatingWindow `bson:"hours" json:"hours"` // one entry per weekday, missing = closed

	// DefaultServiceMinutes seeds the wait estimator until enough completed
	// samples exist for this shop.
	DefaultServiceMinutes int `bson:"defaultServiceMinutes" json:"defaultServiceMinutes"`
}

// WindowFor resolves the shop's operating window for a weekday.
func (s Shop) WindowFor(day time.Weekday) (OperatingWindow, bool) {
	for _, w := range s.Hours {
		if w.Weekday == day {
			return w, !w.Closed
		}
	}
	return OperatingWindow{Weekday: day, Closed: true}, false
}

// Specialist performs services at a shop during their own working hours.
type Specialist struct {
	ID         string            `bson:"id" json:"id"`
	ShopID     string            `bson:"shopId" json:"shopId"`
	Name       string            `bson:"name" json:"name"`
	Hours      []OperatingWindow `bson:"hours" json:"hours"`
	ServiceIDs []string          `bson:"serviceIds" json:"serviceIds"` // qualification mapping
}

// Qualified reports whether the specialist can perform the service.
func (sp Specialist) Qualified(serviceID string) bool {
	for _, id := range sp.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// WindowFor resolves the specialist's working window for a weekday.
func (sp Specialist) WindowFor(day time.Weekday) (OperatingWindow, bool) {
	for _, w := range sp.Hours {
		if w.Weekday == day {
			return w, !w.Closed
		}
	}
	return OperatingWindow{Weekday: day, Closed: true}, false
}

// Service is a bookable offering. DurationMinutes is the service time itself,
// BufferMinutes the cleanup gap appended after every booking.
type Service struct {
	ID              string `bson:"id" json:"id"`
	ShopID          string `bson:"shopId" json:"shopId"`
	Name            string `bson:"name" json:"name"`
	DurationMinutes int    `bson:"durationMinutes" json:"durationMinutes"`
	BufferMinutes   int    `bson:"bufferMinutes" json:"bufferMinutes"`
}

// ServiceAvailabilityRule narrows a service's bookable window inside shop
// hours for one weekday (e.g. mornings only). Absence of a rule means the
// service inherits the full shop window.
type ServiceAvailabilityRule struct {
	ServiceID   string       `bson:"serviceId" json:"serviceId"`
	Weekday     time.Weekday `bson:"weekday" json:"weekday"`
	StartMinute int          `bson:"startMinute" json:"startMinute"`
	EndMinute   int          `bson:"endMinute" json:"endMinute"`
}

// Interval materializes the rule onto a concrete date.
func (r ServiceAvailabilityRule) Interval(date time.Time) (TimeInterval, bool) {
	if r.StartMinute >= r.EndMinute {
		return TimeInterval{}, false
	}
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return TimeInterval{
		Start: midnight.Add(time.Duration(r.StartMinute) * time.Minute),
		End:   midnight.Add(time.Duration(r.EndMinute) * time.Minute),
	}, true
}

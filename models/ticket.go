package models

import "time"

// Queue ticket states. waiting → called → serving → served is the success
// path; no_show and cancelled are the terminal exits described on the
// transition table in services/queue.
const (
	TicketWaiting   = "waiting"
	TicketCalled    = "called"
	TicketServing   = "serving"
	TicketServed    = "served"
	TicketNoShow    = "no_show"
	TicketCancelled = "cancelled"
)

// Ticket sources.
const (
	SourceWalkIn             = "walk_in"
	SourceAppointmentCheckin = "appointment_checkin"
)

// Priority tiers, ordered descending; a higher tier sorts ahead of enqueue
// time but never splits the queue.
const (
	PriorityUrgent = 2
	PriorityVIP    = 1
	PriorityNormal = 0
)

// QueueTicket is one customer waiting in a shop's live queue. Position is a
// dense rank (1..k) over tickets in {waiting, called}, recomputed on every
// removal from the positional sequence.
type QueueTicket struct {
	ID           string    `bson:"id" json:"id"`
	ShopID       string    `bson:"shopId" json:"shopId"`
	CustomerID   string    `bson:"customerId" json:"customerId"`
	ServiceID    string    `bson:"serviceId" json:"serviceId"`
	SpecialistID string    `bson:"specialistId,omitempty" json:"specialistId,omitempty"` // set on assignment
	Position     int       `bson:"position" json:"position"`                             // 0 once out of {waiting, called}
	Status       string    `bson:"status" json:"status"`
	Priority     int       `bson:"priority" json:"priority"`
	Source       string    `bson:"source" json:"source"`
	EnqueueTime  time.Time `bson:"enqueueTime" json:"enqueueTime"`
	// AppointmentTime is set for appointment_checkin tickets and drives their
	// insertion ahead of later walk-ins.
	AppointmentTime time.Time `bson:"appointmentTime,omitempty" json:"appointmentTime,omitempty"`
	ServeTime       time.Time `bson:"serveTime,omitempty" json:"serveTime,omitempty"`
	CompleteTime    time.Time `bson:"completeTime,omitempty" json:"completeTime,omitempty"`
}

// Positional reports whether the ticket occupies a queue position.
func (t QueueTicket) Positional() bool {
	return t.Status == TicketWaiting || t.Status == TicketCalled
}

// Terminal reports whether the ticket has left the queue for good.
func (t QueueTicket) Terminal() bool {
	return t.Status == TicketServed || t.Status == TicketNoShow || t.Status == TicketCancelled
}

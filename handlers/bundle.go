package handlers

import (
	"bookline/services/queue"
	"bookline/services/scheduling"
)

// HandlerBundle aggregates the engine services the HTTP layer exposes. The
// handlers hold no business logic; they parse, delegate, and shape responses.
type HandlerBundle struct {
	Availability *scheduling.AvailabilityEngine
	Gate         *scheduling.ReservationGate
	Queue        *queue.Engine
}

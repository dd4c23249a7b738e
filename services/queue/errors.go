package queue

import "errors"

var (
	// ErrQueueInconsistent signals duplicate or gapped positions, which means
	// a concurrency-control bug, not a recoverable state. The affected queue is
	// halted and surfaced for operator remediation; it is never papered over
	// by best-effort renumbering.
	ErrQueueInconsistent = errors.New("queue positions inconsistent")

	// ErrQueueHalted rejects mutation of a queue already marked inconsistent,
	// until an operator reset.
	ErrQueueHalted = errors.New("queue halted pending operator remediation")

	// ErrInvalidTransition rejects a state change the ticket machine does not
	// allow.
	ErrInvalidTransition = errors.New("invalid ticket state transition")

	// ErrTicketNotFound is returned for unknown or already-terminal tickets.
	ErrTicketNotFound = errors.New("ticket not found in active queue")
)

package queueRepo

import (
	"context"

	"bookline/models"
)

// TicketRepository persists queue tickets and their positions. The queue
// engine holds the authoritative in-memory ordering per shop; writes here are
// write-through so a restart can rebuild the live queues.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *models.QueueTicket) error
	Update(ctx context.Context, ticket *models.QueueTicket) error
	// UpdatePositions writes a full renumbering for one shop in a single
	// batch, keyed by ticket ID.
	UpdatePositions(ctx context.Context, shopID string, positions map[string]int) error
	// ActiveByShop returns all non-terminal tickets for a shop ordered by
	// position, used to rebuild queue state at startup.
	ActiveByShop(ctx context.Context, shopID string) ([]models.QueueTicket, error)
}

package historyRepo

import (
	"context"

	"bookline/models"
)

// HistoryRepository is the append-only service-time sample log consumed by
// the wait-time estimator. Samples are never mutated after creation.
type HistoryRepository interface {
	Append(ctx context.Context, sample models.ServiceTimeSample) error
	// RecentByShop returns up to n of the most recently completed samples for
	// a shop, newest first.
	RecentByShop(ctx context.Context, shopID string, n int) ([]models.ServiceTimeSample, error)
}

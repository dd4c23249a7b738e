package shopRepo

import (
	"context"
	"time"

	"bookline/models"
)

// ShopRepository exposes the read-only domain records the engine consumes:
// operating hours, qualification mappings, and service availability rules.
// The canonical aggregates are owned by the surrounding platform.
type ShopRepository interface {
	GetShop(ctx context.Context, shopID string) (*models.Shop, error)
	GetService(ctx context.Context, serviceID string) (*models.Service, error)
	// GetSpecialistsForService returns every specialist qualified to perform
	// the service, across the owning shop.
	GetSpecialistsForService(ctx context.Context, serviceID string) ([]models.Specialist, error)
	// GetServiceRule returns the weekday narrowing rule for a service, or nil
	// when the service inherits the full shop window.
	GetServiceRule(ctx context.Context, serviceID string, weekday time.Weekday) (*models.ServiceAvailabilityRule, error)
}

package queue

import (
	"context"
	"sync"
	"time"

	shopRepo "bookline/database/repository/shop"
	"bookline/utils"

	"go.uber.org/zap"
)

// Balancer tracks which specialists are currently active per shop and how
// loaded each one is. Presence is an injected external signal; the balancer
// never computes it. Selection: fewest serving tickets among qualified
// actives, ties broken by longest idle since last completion.
type Balancer struct {
	mu    sync.Mutex
	shops map[string]*presence
}

type presence struct {
	active   map[string]bool
	serving  map[string]int
	lastDone map[string]time.Time
}

// NewBalancer creates an empty balancer.
func NewBalancer() *Balancer {
	return &Balancer{shops: make(map[string]*presence)}
}

func (b *Balancer) shopState(shopID string) *presence {
	p, ok := b.shops[shopID]
	if !ok {
		p = &presence{
			active:   make(map[string]bool),
			serving:  make(map[string]int),
			lastDone: make(map[string]time.Time),
		}
		b.shops[shopID] = p
	}
	return p
}

// SetActive records an external presence signal for one specialist.
func (b *Balancer) SetActive(shopID, specialistID string, active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shopState(shopID).active[specialistID] = active
}

// NoteServing increments a specialist's live load.
func (b *Balancer) NoteServing(shopID, specialistID string) {
	if specialistID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shopState(shopID).serving[specialistID]++
}

// NoteCompleted decrements load and stamps the idle-since instant.
func (b *Balancer) NoteCompleted(shopID, specialistID string) {
	if specialistID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.shopState(shopID)
	if p.serving[specialistID] > 0 {
		p.serving[specialistID]--
	}
	p.lastDone[specialistID] = time.Now()
}

// NextAssignment picks the specialist for a ticket of the given service. ok
// is false when no qualified specialist is active.
func (b *Balancer) NextAssignment(ctx context.Context, shopID, serviceID string, shops shopRepo.ShopRepository) (string, bool) {
	qualified := b.qualifiedIDs(ctx, serviceID, shops)
	if len(qualified) == 0 {
		return "", false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.shopState(shopID)

	best := ""
	bestLoad := 0
	var bestIdle time.Time
	for _, id := range qualified {
		if !p.active[id] {
			continue
		}
		load := p.serving[id]
		idle := p.lastDone[id] // zero time sorts as longest idle
		if best == "" || load < bestLoad || (load == bestLoad && idle.Before(bestIdle)) {
			best = id
			bestLoad = load
			bestIdle = idle
		}
	}
	return best, best != ""
}

// ActiveQualifiedCount counts active specialists qualified for the service,
// the parallelism divisor in wait estimation.
func (b *Balancer) ActiveQualifiedCount(ctx context.Context, shopID, serviceID string, shops shopRepo.ShopRepository) int {
	qualified := b.qualifiedIDs(ctx, serviceID, shops)
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.shopState(shopID)
	count := 0
	for _, id := range qualified {
		if p.active[id] {
			count++
		}
	}
	return count
}

func (b *Balancer) qualifiedIDs(ctx context.Context, serviceID string, shops shopRepo.ShopRepository) []string {
	if shops == nil {
		return nil
	}
	specialists, err := shops.GetSpecialistsForService(ctx, serviceID)
	if err != nil {
		utils.GetLogger().Warn("balancer: qualification lookup failed",
			zap.String("serviceID", serviceID), zap.Error(err))
		return nil
	}
	ids := make([]string, 0, len(specialists))
	for _, sp := range specialists {
		ids = append(ids, sp.ID)
	}
	return ids
}

// ActiveSnapshot returns the IDs of currently active specialists for a shop.
// Ephemeral and derived; recomputed per call, never persisted.
func (b *Balancer) ActiveSnapshot(shopID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.shopState(shopID)
	var ids []string
	for id, on := range p.active {
		if on {
			ids = append(ids, id)
		}
	}
	return ids
}

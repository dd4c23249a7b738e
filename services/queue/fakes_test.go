package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bookline/models"
)

type fakeShopRepo struct {
	shops       map[string]models.Shop
	specialists []models.Specialist
}

func (f *fakeShopRepo) GetShop(_ context.Context, shopID string) (*models.Shop, error) {
	shop, ok := f.shops[shopID]
	if !ok {
		return nil, fmt.Errorf("shop %s not found", shopID)
	}
	return &shop, nil
}

func (f *fakeShopRepo) GetService(_ context.Context, serviceID string) (*models.Service, error) {
	return nil, fmt.Errorf("service %s not found", serviceID)
}

func (f *fakeShopRepo) GetSpecialistsForService(_ context.Context, serviceID string) ([]models.Specialist, error) {
	var out []models.Specialist
	for _, sp := range f.specialists {
		if sp.Qualified(serviceID) {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (f *fakeShopRepo) GetServiceRule(_ context.Context, _ string, _ time.Weekday) (*models.ServiceAvailabilityRule, error) {
	return nil, nil
}

// fakeTicketRepo is a write-through store good enough to exercise Restore and
// ResetHalted.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]models.QueueTicket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]models.QueueTicket)}
}

func (f *fakeTicketRepo) Insert(_ context.Context, ticket *models.QueueTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *models.QueueTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) UpdatePositions(_ context.Context, _ string, positions map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, pos := range positions {
		t, ok := f.tickets[id]
		if !ok {
			continue
		}
		t.Position = pos
		f.tickets[id] = t
	}
	return nil
}

func (f *fakeTicketRepo) ActiveByShop(_ context.Context, shopID string) ([]models.QueueTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QueueTicket
	for _, t := range f.tickets {
		if t.ShopID == shopID && !t.Terminal() {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// failingTicketRepo rejects every insert, for exercising persist-failure
// handling.
type failingTicketRepo struct{}

func (failingTicketRepo) Insert(_ context.Context, _ *models.QueueTicket) error {
	return fmt.Errorf("store unavailable")
}

func (failingTicketRepo) Update(_ context.Context, _ *models.QueueTicket) error { return nil }

func (failingTicketRepo) UpdatePositions(_ context.Context, _ string, _ map[string]int) error {
	return nil
}

func (failingTicketRepo) ActiveByShop(_ context.Context, _ string) ([]models.QueueTicket, error) {
	return nil, nil
}

// capturingPublisher records every published event for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []models.EngineEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event models.EngineEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(eventType string) []models.EngineEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.EngineEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *capturingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	samples []models.ServiceTimeSample
}

func (f *fakeHistoryRepo) Append(_ context.Context, sample models.ServiceTimeSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, sample)
	return nil
}

func (f *fakeHistoryRepo) RecentByShop(_ context.Context, shopID string, n int) ([]models.ServiceTimeSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ServiceTimeSample
	for i := len(f.samples) - 1; i >= 0 && len(out) < n; i-- {
		if f.samples[i].ShopID == shopID {
			out = append(out, f.samples[i])
		}
	}
	return out, nil
}

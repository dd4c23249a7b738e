package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(nil, nil, nil, nil, nil, nil)
}

func positions(snapshot []models.QueueTicket) []int {
	out := make([]int, len(snapshot))
	for i, t := range snapshot {
		out[i] = t.Position
	}
	return out
}

func TestEnqueue_AssignsDensePositions(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal)
		require.NoError(t, err)
	}

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 3)
	assert.Equal(t, []int{1, 2, 3}, positions(snapshot))
}

func TestNoShow_RenumbersRemainder(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	a, err := e.Enqueue(ctx, "shop1", "custA", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	b, err := e.Enqueue(ctx, "shop1", "custB", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	c, err := e.Enqueue(ctx, "shop1", "custC", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, e.Call(ctx, "shop1", c.ID, "spec1"))

	require.NoError(t, e.NoShow(ctx, "shop1", b.ID))

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 2)
	assert.Equal(t, a.ID, snapshot[0].ID)
	assert.Equal(t, 1, snapshot[0].Position)
	assert.Equal(t, c.ID, snapshot[1].ID)
	assert.Equal(t, 2, snapshot[1].Position)
	assert.Equal(t, models.TicketCalled, snapshot[1].Status)
}

func TestEnqueue_PriorityShiftsLowerTiers(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	a, err := e.Enqueue(ctx, "shop1", "custA", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	b, err := e.Enqueue(ctx, "shop1", "custB", "svc1", models.PriorityNormal)
	require.NoError(t, err)

	urgent, err := e.Enqueue(ctx, "shop1", "custU", "svc1", models.PriorityUrgent)
	require.NoError(t, err)

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 3)
	assert.Equal(t, []string{urgent.ID, a.ID, b.ID},
		[]string{snapshot[0].ID, snapshot[1].ID, snapshot[2].ID})
	assert.Equal(t, []int{1, 2, 3}, positions(snapshot))
}

func TestEnqueue_NeverInsertsAheadOfCalled(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	a, err := e.Enqueue(ctx, "shop1", "custA", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, e.Call(ctx, "shop1", a.ID, "spec1"))

	urgent, err := e.Enqueue(ctx, "shop1", "custU", "svc1", models.PriorityUrgent)
	require.NoError(t, err)

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 2)
	assert.Equal(t, a.ID, snapshot[0].ID, "called ticket keeps the head position")
	assert.Equal(t, urgent.ID, snapshot[1].ID)
}

func TestEnqueue_NeverOvertakesMidQueueCalled(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	a, err := e.Enqueue(ctx, "shop1", "custA", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	b, err := e.Enqueue(ctx, "shop1", "custB", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	// B is called while sitting behind a waiting ticket.
	require.NoError(t, e.Call(ctx, "shop1", b.ID, "spec1"))

	urgent, err := e.Enqueue(ctx, "shop1", "custU", "svc1", models.PriorityUrgent)
	require.NoError(t, err)

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 3)
	assert.Equal(t, []string{a.ID, b.ID, urgent.ID},
		[]string{snapshot[0].ID, snapshot[1].ID, snapshot[2].ID},
		"a called ticket mid-queue is never overtaken")
	assert.Equal(t, []int{1, 2, 3}, positions(snapshot))
}

func TestEnqueue_RollsBackOnPersistFailure(t *testing.T) {
	e := NewEngine(failingTicketRepo{}, nil, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal)
	require.Error(t, err)

	// A rejected enqueue must not leave a phantom ticket holding a position.
	assert.Empty(t, e.Snapshot("shop1"))
	assert.False(t, e.Halted("shop1"))
}

func TestConcurrentEnqueue_PersistsConsistentPositions(t *testing.T) {
	tickets := newFakeTicketRepo()
	e := NewEngine(tickets, nil, nil, nil, nil, nil)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal); err != nil {
				t.Errorf("enqueue: %v", err)
			}
		}()
	}
	wg.Wait()

	// The store never sees a position mid-renumbering: after the dust settles
	// the persisted ranks agree with the live queue and are dense.
	persisted, err := tickets.ActiveByShop(ctx, "shop1")
	require.NoError(t, err)
	require.Len(t, persisted, n)
	snapshot := e.Snapshot("shop1")
	for i := range persisted {
		assert.Equal(t, i+1, persisted[i].Position)
		assert.Equal(t, snapshot[i].ID, persisted[i].ID)
	}
}

func TestPresenceChange_RepublishesEstimates(t *testing.T) {
	pub := &capturingPublisher{}
	balancer := NewBalancer()
	estimator := &Estimator{MinSamples: 1, DefaultService: 10 * time.Minute}
	e := NewEngine(nil, nil, nil, pub, balancer, estimator)
	ctx := context.Background()

	_, err := e.Enqueue(ctx, "shop1", "custA", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	_, err = e.Enqueue(ctx, "shop1", "custB", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	pub.reset()

	// A specialist going inactive changes the parallelism divisor, so every
	// positional ticket gets a fresh estimate even though nothing was
	// assigned.
	require.NoError(t, e.HandlePresenceChange(ctx, "shop1", "spec1", false))
	assert.Len(t, pub.byType(models.EventWaitTimeUpdated), 2)

	pub.reset()
	require.NoError(t, e.HandlePresenceChange(ctx, "shop1", "spec1", true))
	assert.NotEmpty(t, pub.byType(models.EventWaitTimeUpdated))
}

func TestCheckIn_OrdersByAppointmentTime(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	walkIn, err := e.Enqueue(ctx, "shop1", "custW", "svc1", models.PriorityNormal)
	require.NoError(t, err)

	// The appointment predates the walk-in's enqueue, so the check-in ranks
	// ahead of it within the same priority tier.
	checkIn, err := e.CheckIn(ctx, "shop1", "custC", "svc1", time.Now().Add(-time.Hour), models.PriorityNormal)
	require.NoError(t, err)

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 2)
	assert.Equal(t, checkIn.ID, snapshot[0].ID)
	assert.Equal(t, walkIn.ID, snapshot[1].ID)

	// A later appointment goes behind the earlier walk-in.
	late, err := e.CheckIn(ctx, "shop1", "custL", "svc1", time.Now().Add(time.Hour), models.PriorityNormal)
	require.NoError(t, err)
	snapshot = e.Snapshot("shop1")
	require.Len(t, snapshot, 3)
	assert.Equal(t, late.ID, snapshot[2].ID)
}

func TestTransitions_RejectSkips(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	ticket, err := e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal)
	require.NoError(t, err)

	assert.ErrorIs(t, e.StartService(ctx, "shop1", ticket.ID), ErrInvalidTransition)
	assert.ErrorIs(t, e.Complete(ctx, "shop1", ticket.ID), ErrInvalidTransition)

	require.NoError(t, e.Call(ctx, "shop1", ticket.ID, "spec1"))
	require.NoError(t, e.StartService(ctx, "shop1", ticket.ID))

	// Serving tickets cannot no-show; they either finish or cancel.
	assert.ErrorIs(t, e.NoShow(ctx, "shop1", ticket.ID), ErrInvalidTransition)

	require.NoError(t, e.Complete(ctx, "shop1", ticket.ID))
	assert.ErrorIs(t, e.Cancel(ctx, "shop1", ticket.ID), ErrTicketNotFound)
}

func TestStartService_LeavesPositionalSequence(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	a, err := e.Enqueue(ctx, "shop1", "custA", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	b, err := e.Enqueue(ctx, "shop1", "custB", "svc1", models.PriorityNormal)
	require.NoError(t, err)

	require.NoError(t, e.Call(ctx, "shop1", a.ID, "spec1"))
	require.NoError(t, e.StartService(ctx, "shop1", a.ID))

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 1)
	assert.Equal(t, b.ID, snapshot[0].ID)
	assert.Equal(t, 1, snapshot[0].Position)
}

func TestComplete_RecordsServiceTimeSample(t *testing.T) {
	history := &fakeHistoryRepo{}
	e := NewEngine(nil, history, nil, nil, nil, nil)
	ctx := context.Background()

	ticket, err := e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, e.Call(ctx, "shop1", ticket.ID, "spec1"))
	require.NoError(t, e.StartService(ctx, "shop1", ticket.ID))
	require.NoError(t, e.Complete(ctx, "shop1", ticket.ID))

	samples, err := history.RecentByShop(ctx, "shop1", 10)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "spec1", samples[0].SpecialistID)
	assert.Equal(t, "svc1", samples[0].ServiceID)
	assert.GreaterOrEqual(t, samples[0].Duration, time.Duration(0))
}

func TestRestore_HaltsOnCorruptPersistedPositions(t *testing.T) {
	tickets := newFakeTicketRepo()
	ctx := context.Background()

	// A gapped sequence on disk means a past bug; the queue must refuse to
	// serve rather than silently renumber.
	require.NoError(t, tickets.Insert(ctx, &models.QueueTicket{
		ID: "t1", ShopID: "shop1", Status: models.TicketWaiting, Position: 1,
	}))
	require.NoError(t, tickets.Insert(ctx, &models.QueueTicket{
		ID: "t2", ShopID: "shop1", Status: models.TicketWaiting, Position: 3,
	}))

	e := NewEngine(tickets, nil, nil, nil, nil, nil)
	err := e.Restore(ctx, "shop1")
	assert.ErrorIs(t, err, ErrQueueInconsistent)
	assert.True(t, e.Halted("shop1"))

	_, err = e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal)
	assert.ErrorIs(t, err, ErrQueueHalted)

	// Operator remediation renumbers from persistence and reopens the queue.
	require.NoError(t, e.ResetHalted(ctx, "shop1"))
	assert.False(t, e.Halted("shop1"))
	_, err = e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, positions(e.Snapshot("shop1")))
}

func TestRestore_RebuildsCleanQueue(t *testing.T) {
	tickets := newFakeTicketRepo()
	ctx := context.Background()
	require.NoError(t, tickets.Insert(ctx, &models.QueueTicket{
		ID: "t1", ShopID: "shop1", Status: models.TicketCalled, Position: 1,
	}))
	require.NoError(t, tickets.Insert(ctx, &models.QueueTicket{
		ID: "t2", ShopID: "shop1", Status: models.TicketWaiting, Position: 2,
	}))
	require.NoError(t, tickets.Insert(ctx, &models.QueueTicket{
		ID: "t3", ShopID: "shop1", Status: models.TicketServing,
	}))

	e := NewEngine(tickets, nil, nil, nil, nil, nil)
	require.NoError(t, e.Restore(ctx, "shop1"))

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 2, "serving tickets are not positional")
	assert.Equal(t, "t1", snapshot[0].ID)
	assert.Equal(t, "t2", snapshot[1].ID)
}

func TestConcurrentMutationsKeepContiguousPositions(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	const n = 24
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal)
			if err != nil {
				t.Errorf("enqueue: %v", err)
				return
			}
			ids <- ticket.ID
		}()
	}
	wg.Wait()
	close(ids)

	// Knock out every third ticket concurrently.
	i := 0
	for id := range ids {
		if i%3 == 0 {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if err := e.NoShow(ctx, "shop1", id); err != nil {
					t.Errorf("no-show: %v", err)
				}
			}(id)
		}
		i++
	}
	wg.Wait()

	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, n-n/3)
	for i, ticket := range snapshot {
		assert.Equal(t, i+1, ticket.Position, "positions must stay dense")
	}
	assert.False(t, e.Halted("shop1"))
}

func TestAssignNext_CallsHeadOnActiveSpecialist(t *testing.T) {
	shops := &fakeShopRepo{
		specialists: []models.Specialist{
			{ID: "spec1", ShopID: "shop1", ServiceIDs: []string{"svc1"}},
		},
	}
	balancer := NewBalancer()
	e := NewEngine(nil, nil, shops, nil, balancer, nil)
	ctx := context.Background()

	ticket, err := e.Enqueue(ctx, "shop1", "cust", "svc1", models.PriorityNormal)
	require.NoError(t, err)

	// Nobody active yet; the ticket stays waiting.
	require.NoError(t, e.AssignNext(ctx, "shop1"))
	assert.Equal(t, models.TicketWaiting, e.Snapshot("shop1")[0].Status)

	// Presence arrival triggers immediate assignment.
	require.NoError(t, e.HandlePresenceChange(ctx, "shop1", "spec1", true))
	snapshot := e.Snapshot("shop1")
	require.Len(t, snapshot, 1)
	assert.Equal(t, models.TicketCalled, snapshot[0].Status)
	assert.Equal(t, "spec1", snapshot[0].SpecialistID)
	assert.Equal(t, ticket.ID, snapshot[0].ID)
}

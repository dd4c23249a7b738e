package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	historyRepo "bookline/database/repository/history"
	queueRepo "bookline/database/repository/queue"
	shopRepo "bookline/database/repository/shop"
	"bookline/models"
	"bookline/services/notification"
	"bookline/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine owns the live queue of every shop: ticket state transitions, dense
// position renumbering, and the events published on each mutation. Each shop
// queue has its own mutex, so one shop's mutations never block another's.
type Engine struct {
	Tickets   queueRepo.TicketRepository
	History   historyRepo.HistoryRepository
	Shops     shopRepo.ShopRepository
	Publisher notification.Publisher
	Balancer  *Balancer
	Estimator *Estimator

	mu     sync.Mutex
	queues map[string]*shopQueue
}

// shopQueue is one shop's live state. order holds the positional tickets
// ({waiting, called}) in rank order; serving tickets live only in byID.
type shopQueue struct {
	mu     sync.Mutex
	order  []*models.QueueTicket
	byID   map[string]*models.QueueTicket
	halted bool
}

// NewEngine builds a queue engine over its collaborators. Balancer and
// Estimator are optional in tests; repositories may be nil for in-memory use.
func NewEngine(tickets queueRepo.TicketRepository, history historyRepo.HistoryRepository,
	shops shopRepo.ShopRepository, pub notification.Publisher,
	balancer *Balancer, estimator *Estimator) *Engine {
	return &Engine{
		Tickets:   tickets,
		History:   history,
		Shops:     shops,
		Publisher: pub,
		Balancer:  balancer,
		Estimator: estimator,
		queues:    make(map[string]*shopQueue),
	}
}

func (e *Engine) queueFor(shopID string) *shopQueue {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.queues[shopID]
	if !ok {
		q = &shopQueue{byID: make(map[string]*models.QueueTicket)}
		e.queues[shopID] = q
	}
	return q
}

// effectiveTime is the ordering instant within a priority tier: appointment
// time for check-ins, enqueue time for walk-ins.
func effectiveTime(t *models.QueueTicket) time.Time {
	if t.Source == models.SourceAppointmentCheckin && !t.AppointmentTime.IsZero() {
		return t.AppointmentTime
	}
	return t.EnqueueTime
}

// Enqueue adds a walk-in ticket at its priority-ordered position and returns
// it with the assigned rank.
func (e *Engine) Enqueue(ctx context.Context, shopID, customerID, serviceID string, priority int) (*models.QueueTicket, error) {
	ticket := &models.QueueTicket{
		ID:          uuid.New().String(),
		ShopID:      shopID,
		CustomerID:  customerID,
		ServiceID:   serviceID,
		Status:      models.TicketWaiting,
		Priority:    priority,
		Source:      models.SourceWalkIn,
		EnqueueTime: time.Now(),
	}
	return e.insert(ctx, ticket)
}

// CheckIn adds a ticket for an arrived appointment. It is inserted ahead of
// walk-ins whose effective time postdates the appointment, but never ahead of
// tickets already called.
func (e *Engine) CheckIn(ctx context.Context, shopID, customerID, serviceID string, appointmentTime time.Time, priority int) (*models.QueueTicket, error) {
	ticket := &models.QueueTicket{
		ID:              uuid.New().String(),
		ShopID:          shopID,
		CustomerID:      customerID,
		ServiceID:       serviceID,
		Status:          models.TicketWaiting,
		Priority:        priority,
		Source:          models.SourceAppointmentCheckin,
		EnqueueTime:     time.Now(),
		AppointmentTime: appointmentTime,
	}
	return e.insert(ctx, ticket)
}

func (e *Engine) insert(ctx context.Context, ticket *models.QueueTicket) (*models.QueueTicket, error) {
	q := e.queueFor(ticket.ShopID)
	q.mu.Lock()
	if q.halted {
		q.mu.Unlock()
		return nil, ErrQueueHalted
	}

	// Insertion floor: strictly after the last called ticket, wherever it
	// sits in the order. A called ticket is never overtaken, regardless of
	// the new ticket's priority or appointment time.
	idx := 0
	for i, cur := range q.order {
		if cur.Status == models.TicketCalled {
			idx = i + 1
		}
	}
	// Then past waiting tickets of higher or equal rank (priority first, then
	// effective time; stable among equals).
	for idx < len(q.order) {
		cur := q.order[idx]
		if cur.Priority > ticket.Priority {
			idx++
			continue
		}
		if cur.Priority == ticket.Priority && !effectiveTime(cur).After(effectiveTime(ticket)) {
			idx++
			continue
		}
		break
	}
	q.order = append(q.order, nil)
	copy(q.order[idx+1:], q.order[idx:])
	q.order[idx] = ticket
	q.byID[ticket.ID] = ticket

	changed := q.renumber()
	if err := q.verify(); err != nil {
		q.mu.Unlock()
		return nil, err
	}
	// Repository and caller get a copy taken under the lock; the live ticket
	// keeps being renumbered by concurrent mutations.
	stored := *ticket
	snapshot := q.positionalSnapshot()
	q.mu.Unlock()

	if e.Tickets != nil {
		if err := e.Tickets.Insert(ctx, &stored); err != nil {
			rolledBack := e.rollbackInsert(q, ticket.ID)
			e.persistPositions(ctx, stored.ShopID, rolledBack)
			return nil, fmt.Errorf("enqueue: %w", err)
		}
		e.persistPositions(ctx, stored.ShopID, changed)
	}
	e.publishPositions(ctx, stored.ShopID, changed)
	e.publishEstimates(ctx, stored.ShopID, snapshot)
	return &stored, nil
}

// rollbackInsert removes a ticket whose persist failed, so the live queue
// never holds an entry its caller was told got rejected. Returns the ranks
// changed by the removal so they can be written back.
func (e *Engine) rollbackInsert(q *shopQueue, ticketID string) map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.order {
		if t.ID == ticketID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	delete(q.byID, ticketID)
	return q.renumber()
}

// Call transitions a waiting ticket to called, optionally pinning the
// assigned specialist. The ticket keeps its position.
func (e *Engine) Call(ctx context.Context, shopID, ticketID, specialistID string) error {
	return e.transition(ctx, shopID, ticketID, models.TicketCalled, specialistID)
}

// StartService transitions a called ticket to serving, removing it from the
// positional sequence.
func (e *Engine) StartService(ctx context.Context, shopID, ticketID string) error {
	return e.transition(ctx, shopID, ticketID, models.TicketServing, "")
}

// Complete finishes a serving ticket, appends its service-time sample, and
// frees the specialist for the next assignment.
func (e *Engine) Complete(ctx context.Context, shopID, ticketID string) error {
	return e.transition(ctx, shopID, ticketID, models.TicketServed, "")
}

// NoShow marks a waiting or called ticket as a no-show. The grace-period
// timer lives with the operator or an external policy; only the transition is
// exposed here.
func (e *Engine) NoShow(ctx context.Context, shopID, ticketID string) error {
	return e.transition(ctx, shopID, ticketID, models.TicketNoShow, "")
}

// Cancel removes a ticket from any non-terminal state.
func (e *Engine) Cancel(ctx context.Context, shopID, ticketID string) error {
	return e.transition(ctx, shopID, ticketID, models.TicketCancelled, "")
}

// allowed is the transition table. Direct cancellation is the only skip.
func allowed(from, to string) bool {
	switch to {
	case models.TicketCalled:
		return from == models.TicketWaiting
	case models.TicketServing:
		return from == models.TicketCalled
	case models.TicketServed:
		return from == models.TicketServing
	case models.TicketNoShow:
		return from == models.TicketWaiting || from == models.TicketCalled
	case models.TicketCancelled:
		return from == models.TicketWaiting || from == models.TicketCalled || from == models.TicketServing
	}
	return false
}

func (e *Engine) transition(ctx context.Context, shopID, ticketID, to, specialistID string) error {
	logger := utils.GetLogger()
	q := e.queueFor(shopID)

	q.mu.Lock()
	if q.halted {
		q.mu.Unlock()
		return ErrQueueHalted
	}
	ticket, ok := q.byID[ticketID]
	if !ok {
		q.mu.Unlock()
		return ErrTicketNotFound
	}
	if !allowed(ticket.Status, to) {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ticket.Status, to)
	}

	ticket.Status = to
	if specialistID != "" {
		ticket.SpecialistID = specialistID
	}
	now := time.Now()
	var sample *models.ServiceTimeSample
	switch to {
	case models.TicketServing:
		ticket.ServeTime = now
	case models.TicketServed:
		ticket.CompleteTime = now
		if !ticket.ServeTime.IsZero() {
			sample = &models.ServiceTimeSample{
				ShopID:       shopID,
				SpecialistID: ticket.SpecialistID,
				ServiceID:    ticket.ServiceID,
				Duration:     now.Sub(ticket.ServeTime),
				CompletedAt:  now,
			}
		}
	}

	// Leaving {waiting, called} removes the ticket from the positional
	// sequence and renumbers the remainder, atomically under the queue lock.
	var changed map[string]int
	if !ticket.Positional() {
		for i, t := range q.order {
			if t.ID == ticketID {
				q.order = append(q.order[:i], q.order[i+1:]...)
				break
			}
		}
		ticket.Position = 0
		changed = q.renumber()
	}
	if ticket.Terminal() {
		delete(q.byID, ticketID)
	}
	if err := q.verify(); err != nil {
		q.mu.Unlock()
		logger.Error("queue halted on inconsistency",
			zap.String("shopID", shopID), zap.Error(err))
		return err
	}
	// Same rule as insert: everything read after the unlock works on a copy,
	// never the live ticket.
	persisted := *ticket
	snapshot := q.positionalSnapshot()
	q.mu.Unlock()

	if e.Tickets != nil {
		if err := e.Tickets.Update(ctx, &persisted); err != nil {
			logger.Error("queue: ticket persist failed",
				zap.String("ticketID", ticketID), zap.Error(err))
		}
		e.persistPositions(ctx, shopID, changed)
	}

	if e.Balancer != nil {
		switch to {
		case models.TicketServing:
			e.Balancer.NoteServing(shopID, persisted.SpecialistID)
		case models.TicketServed:
			e.Balancer.NoteCompleted(shopID, persisted.SpecialistID)
		case models.TicketCancelled:
			if !persisted.ServeTime.IsZero() && persisted.CompleteTime.IsZero() {
				e.Balancer.NoteCompleted(shopID, persisted.SpecialistID)
			}
		}
	}
	if sample != nil && e.History != nil {
		if err := e.History.Append(ctx, *sample); err != nil {
			logger.Warn("queue: sample append failed", zap.Error(err))
		}
	}

	e.publishPositions(ctx, shopID, changed)
	e.publishEstimates(ctx, shopID, snapshot)

	// A completed or departed serving ticket frees capacity; try to assign
	// the next head immediately rather than waiting for the sweep.
	if to == models.TicketServed || (to == models.TicketCancelled && !persisted.ServeTime.IsZero()) {
		if err := e.AssignNext(ctx, shopID); err != nil {
			logger.Debug("queue: no assignment after completion",
				zap.String("shopID", shopID), zap.Error(err))
		}
	}
	return nil
}

// renumber reassigns dense ranks 1..k over the positional order, returning
// only the tickets whose position actually changed.
func (q *shopQueue) renumber() map[string]int {
	changed := make(map[string]int)
	for i, t := range q.order {
		want := i + 1
		if t.Position != want {
			t.Position = want
			changed[t.ID] = want
		}
	}
	return changed
}

// verify checks the contiguous-positions invariant. Any violation halts the
// queue; remediation is an operator action, not an automatic repair.
func (q *shopQueue) verify() error {
	seen := make(map[int]bool, len(q.order))
	for i, t := range q.order {
		if t.Position != i+1 || seen[t.Position] {
			q.halted = true
			return fmt.Errorf("%w: ticket %s at rank %d has position %d", ErrQueueInconsistent, t.ID, i+1, t.Position)
		}
		seen[t.Position] = true
	}
	return nil
}

func (q *shopQueue) positionalSnapshot() []models.QueueTicket {
	out := make([]models.QueueTicket, 0, len(q.order))
	for _, t := range q.order {
		out = append(out, *t)
	}
	return out
}

// Snapshot returns the positional tickets of a shop in rank order.
func (e *Engine) Snapshot(shopID string) []models.QueueTicket {
	q := e.queueFor(shopID)
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.positionalSnapshot()
}

// ShopIDs lists the shops with live queue state, for the fallback sweep.
func (e *Engine) ShopIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.queues))
	for id := range e.queues {
		ids = append(ids, id)
	}
	return ids
}

// Halted reports whether a shop's queue is refusing mutations.
func (e *Engine) Halted(shopID string) bool {
	q := e.queueFor(shopID)
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.halted
}

// ResetHalted clears the halted flag after operator remediation and reloads
// the queue from persistence.
func (e *Engine) ResetHalted(ctx context.Context, shopID string) error {
	q := e.queueFor(shopID)
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.halted {
		return nil
	}
	if e.Tickets != nil {
		tickets, err := e.Tickets.ActiveByShop(ctx, shopID)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		q.order = q.order[:0]
		q.byID = make(map[string]*models.QueueTicket, len(tickets))
		for i := range tickets {
			t := &tickets[i]
			q.byID[t.ID] = t
			if t.Positional() {
				q.order = append(q.order, t)
			}
		}
	}
	q.renumber()
	q.halted = false
	if err := q.verify(); err != nil {
		return err
	}
	utils.GetLogger().Info("queue reset after remediation", zap.String("shopID", shopID))
	return nil
}

// Restore rebuilds one shop's live queue from persistence, used at startup.
func (e *Engine) Restore(ctx context.Context, shopID string) error {
	if e.Tickets == nil {
		return nil
	}
	tickets, err := e.Tickets.ActiveByShop(ctx, shopID)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	q := e.queueFor(shopID)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = q.order[:0]
	q.byID = make(map[string]*models.QueueTicket, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		q.byID[t.ID] = t
		if t.Positional() {
			q.order = append(q.order, t)
		}
	}
	// Persisted positions are verified as-is: a gapped or duplicated sequence
	// on disk means a past concurrency bug, and the queue halts rather than
	// silently renumbering it away.
	return q.verify()
}

func (e *Engine) persistPositions(ctx context.Context, shopID string, changed map[string]int) {
	if e.Tickets == nil || len(changed) == 0 {
		return
	}
	if err := e.Tickets.UpdatePositions(ctx, shopID, changed); err != nil {
		utils.GetLogger().Error("queue: position persist failed",
			zap.String("shopID", shopID), zap.Error(err))
	}
}

func (e *Engine) publishPositions(ctx context.Context, shopID string, changed map[string]int) {
	if e.Publisher == nil {
		return
	}
	for ticketID, pos := range changed {
		e.publish(ctx, models.EngineEvent{
			Type:     models.EventQueuePositionChanged,
			ShopID:   shopID,
			EntityID: ticketID,
			Value:    pos,
		})
	}
}

// publishEstimates recomputes wait estimates for every positional ticket.
// Estimates are best-effort snapshots; they are computed from the consistent
// snapshot taken under the queue lock, never during a renumbering.
func (e *Engine) publishEstimates(ctx context.Context, shopID string, snapshot []models.QueueTicket) {
	if e.Estimator == nil || e.Publisher == nil {
		return
	}
	for _, t := range snapshot {
		wait, err := e.estimateFromSnapshot(ctx, shopID, t, snapshot)
		if err != nil {
			continue
		}
		e.publish(ctx, models.EngineEvent{
			Type:     models.EventWaitTimeUpdated,
			ShopID:   shopID,
			EntityID: t.ID,
			Value:    int(wait.Minutes()),
		})
	}
}

// EstimateWait predicts the wait for the ticket at the given position.
func (e *Engine) EstimateWait(ctx context.Context, shopID string, position int) (time.Duration, error) {
	snapshot := e.Snapshot(shopID)
	for _, t := range snapshot {
		if t.Position == position {
			return e.estimateFromSnapshot(ctx, shopID, t, snapshot)
		}
	}
	return 0, ErrTicketNotFound
}

func (e *Engine) estimateFromSnapshot(ctx context.Context, shopID string, target models.QueueTicket, snapshot []models.QueueTicket) (time.Duration, error) {
	if e.Estimator == nil {
		return 0, fmt.Errorf("no estimator configured")
	}
	ahead := 0
	for _, t := range snapshot {
		if t.Position < target.Position && t.Positional() {
			ahead++
		}
	}
	active := 1
	if e.Balancer != nil {
		active = e.Balancer.ActiveQualifiedCount(ctx, shopID, target.ServiceID, e.Shops)
	}
	return e.Estimator.WaitFor(ctx, shopID, ahead, active, time.Now())
}

// AssignNext promotes the head waiting ticket to called on the least-loaded
// qualified active specialist. With no qualified specialist active, the
// ticket stays waiting and assignment is retried on the next presence change
// or by the fallback sweep.
func (e *Engine) AssignNext(ctx context.Context, shopID string) error {
	if e.Balancer == nil {
		return nil
	}
	q := e.queueFor(shopID)
	q.mu.Lock()
	if q.halted {
		q.mu.Unlock()
		return ErrQueueHalted
	}
	var head *models.QueueTicket
	for _, t := range q.order {
		if t.Status == models.TicketWaiting {
			head = t
			break
		}
	}
	q.mu.Unlock()
	if head == nil {
		return nil
	}

	specialistID, ok := e.Balancer.NextAssignment(ctx, shopID, head.ServiceID, e.Shops)
	if !ok {
		return nil
	}
	return e.Call(ctx, shopID, head.ID, specialistID)
}

// HandlePresenceChange feeds an external specialist active/inactive signal to
// the balancer and immediately retries assignment when capacity appears.
// Either direction changes the parallelism divisor, so fresh wait estimates
// are published even when no assignment results.
func (e *Engine) HandlePresenceChange(ctx context.Context, shopID, specialistID string, active bool) error {
	if e.Balancer != nil {
		e.Balancer.SetActive(shopID, specialistID, active)
	}
	var err error
	if active {
		err = e.AssignNext(ctx, shopID)
	}
	q := e.queueFor(shopID)
	q.mu.Lock()
	snapshot := q.positionalSnapshot()
	q.mu.Unlock()
	e.publishEstimates(ctx, shopID, snapshot)
	return err
}

func (e *Engine) publish(ctx context.Context, event models.EngineEvent) {
	event.Timestamp = time.Now()
	if err := e.Publisher.Publish(ctx, event); err != nil {
		utils.GetLogger().Warn("queue: event publish failed",
			zap.String("type", event.Type), zap.Error(err))
	}
}

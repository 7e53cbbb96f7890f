// Package lifecycle owns the canonical in-memory projection of the
// complaint collection. A single Run loop is the only writer of the
// projection: it replaces the snapshot wholesale on every store event,
// recomputes the aggregate stats, and fans both out to every registered
// subscriber. Everything else reads copies.
package lifecycle

import (
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/stats"
	"civicgo/backend/internal/storage"
	"context"
	"log"
	"sync"
)

// EngineService mirrors the persistent complaint collection into memory
// (newest created first) and notifies all interested parties whenever it
// changes.
type EngineService struct {
	Storage storage.Storage

	RegisterCh   chan *Subscriber
	UnregisterCh chan *Subscriber

	subscribers map[*Subscriber]bool
	done        chan struct{}

	mu         sync.RWMutex
	projection []models.Complaint
	stats      models.ComplaintStats
}

// NewEngineService creates a new lifecycle engine.
func NewEngineService(s storage.Storage) *EngineService {
	return &EngineService{
		Storage:      s,
		RegisterCh:   make(chan *Subscriber),
		UnregisterCh: make(chan *Subscriber),
		subscribers:  make(map[*Subscriber]bool),
		done:         make(chan struct{}),
		stats:        stats.Compute(nil),
	}
}

// Run is the engine's main loop. It opens the global store subscription
// and serves until the context is cancelled. Subscription errors never
// surface here: the store layer absorbs them and simply withholds the next
// snapshot, so the engine keeps serving the last-known state.
func (e *EngineService) Run(ctx context.Context) {
	log.Println("Lifecycle engine started.")
	defer close(e.done)

	snapshots, unsubscribe := e.Storage.SubscribeComplaints(ctx, storage.Filter{})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			for sub := range e.subscribers {
				delete(e.subscribers, sub)
				close(sub.Send)
			}
			log.Println("Lifecycle engine stopped.")
			return

		case sub := <-e.RegisterCh:
			e.subscribers[sub] = true
			// New subscribers get the current state immediately.
			sub.Send <- models.StreamEvent{Type: "snapshot", Complaints: e.CurrentSnapshot()}
			currentStats := e.CurrentStats()
			sub.Send <- models.StreamEvent{Type: "stats", Stats: &currentStats}

		case sub := <-e.UnregisterCh:
			if _, ok := e.subscribers[sub]; ok {
				delete(e.subscribers, sub)
				close(sub.Send)
			}

		case snapshot, ok := <-snapshots:
			if !ok {
				// Store subscription ended; keep serving the last
				// snapshot until the context stops the engine.
				snapshots = nil
				continue
			}
			e.applySnapshot(snapshot)
		}
	}
}

// applySnapshot replaces the projection wholesale, recomputes the stats
// from the same snapshot (so the two are always self-consistent), and
// fans both out.
func (e *EngineService) applySnapshot(snapshot []models.Complaint) {
	newStats := stats.Compute(snapshot)

	e.mu.Lock()
	e.projection = snapshot
	e.stats = newStats
	e.mu.Unlock()

	e.broadcast(models.StreamEvent{Type: "snapshot", Complaints: snapshot})
	e.broadcast(models.StreamEvent{Type: "stats", Stats: &newStats})
}

// broadcast pushes an event to every subscriber. A subscriber whose buffer
// is full is dropped, the same way the chat hub sheds slow clients.
func (e *EngineService) broadcast(event models.StreamEvent) {
	for sub := range e.subscribers {
		select {
		case sub.Send <- event:
		default:
			delete(e.subscribers, sub)
			close(sub.Send)
			log.Println("WARNING: Dropped slow lifecycle subscriber")
		}
	}
}

// SubscribeToAll registers a subscriber on the global projection. The
// current snapshot and stats are delivered immediately, then a fresh pair
// on every collection change. The returned func unregisters; callers must
// invoke it when done or the subscriber leaks for the process lifetime.
func (e *EngineService) SubscribeToAll() (*Subscriber, func()) {
	sub := newSubscriber()

	select {
	case e.RegisterCh <- sub:
	case <-e.done:
		close(sub.Send)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			select {
			case e.UnregisterCh <- sub:
			case <-e.done:
			}
		})
	}
	return sub, unsubscribe
}

// SubscribeByDepartment opens an independent store-level subscription
// filtered to one department. This is deliberately not a client-side
// filter of the global projection: department dashboards need server-side
// filtering.
func (e *EngineService) SubscribeByDepartment(ctx context.Context, dept models.Department) (<-chan []models.Complaint, func()) {
	return e.Storage.SubscribeComplaints(ctx, storage.Filter{Department: dept})
}

// SubscribeByUser opens an independent store-level subscription filtered
// to one submitter.
func (e *EngineService) SubscribeByUser(ctx context.Context, userID string) (<-chan []models.Complaint, func()) {
	return e.Storage.SubscribeComplaints(ctx, storage.Filter{SubmitterID: userID})
}

// CurrentSnapshot returns a copy of the last-received snapshot without any
// network round-trip. Used by consumers (report generation, the admin CLI)
// that need a point-in-time value without subscribing.
func (e *EngineService) CurrentSnapshot() []models.Complaint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snapshot := make([]models.Complaint, len(e.projection))
	copy(snapshot, e.projection)
	return snapshot
}

// CurrentStats returns a copy of the stats derived from the current
// snapshot.
func (e *EngineService) CurrentStats() models.ComplaintStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := e.stats
	st.ByPriority = make(map[models.Priority]int, len(e.stats.ByPriority))
	for k, v := range e.stats.ByPriority {
		st.ByPriority[k] = v
	}
	st.ByCategory = make(map[string]int, len(e.stats.ByCategory))
	for k, v := range e.stats.ByCategory {
		st.ByCategory[k] = v
	}
	st.ByDepartment = make(map[models.Department]int, len(e.stats.ByDepartment))
	for k, v := range e.stats.ByDepartment {
		st.ByDepartment[k] = v
	}
	return st
}

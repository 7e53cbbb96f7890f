package storage

import (
	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"context"
	"log"
	"sync"
)

// SubscribeComplaints opens a live query subscription. The current result
// set is delivered immediately; after that, every change announced on the
// Redis channel triggers a full re-query and a fresh snapshot.
//
// If a re-query fails the subscriber keeps its last snapshot
// (stale-but-available beats empty-but-fresh) and the condition is reported
// on the activity stream. Errors never reach the snapshot channel.
func (s *Service) SubscribeComplaints(ctx context.Context, f Filter) (<-chan []models.Complaint, func()) {
	out := make(chan []models.Complaint, config.SnapshotBufferSize)

	subCtx, cancel := context.WithCancel(ctx)
	pubsub := s.Redis.Subscribe(subCtx, config.ComplaintsChangedChannel)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				log.Printf("WARNING: Failed to close pubsub subscription: %v", err)
			}
		})
	}

	go func() {
		defer close(out)

		s.deliverSnapshot(out, f)

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.deliverSnapshot(out, f)
			}
		}
	}()

	return out, unsubscribe
}

// deliverSnapshot re-queries and pushes the result set. When the consumer
// lags, the stale pending snapshot is dropped in favour of the fresh one.
func (s *Service) deliverSnapshot(out chan []models.Complaint, f Filter) {
	snapshot, err := s.QueryComplaints(f)
	if err != nil {
		log.Printf("WARNING: Subscription re-query failed, keeping last snapshot: %v", err)
		if logErr := s.LogActivity(&models.ActivityEntry{
			Action:   "store.subscription",
			Details:  "re-query failed: " + err.Error(),
			Severity: models.SeverityWarning,
		}); logErr != nil {
			log.Printf("WARNING: Failed to record subscription error: %v", logErr)
		}
		return
	}

	select {
	case out <- snapshot:
	default:
		select {
		case <-out:
		default:
		}
		select {
		case out <- snapshot:
		default:
		}
	}
}

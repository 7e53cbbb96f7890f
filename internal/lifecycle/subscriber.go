package lifecycle

import (
	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
)

// Subscriber is one live consumer of the global projection. The engine
// pushes StreamEvents (full snapshots and recomputed stats) into Send;
// a subscriber that stops draining its channel is dropped by the hub.
type Subscriber struct {
	Send chan models.StreamEvent
}

func newSubscriber() *Subscriber {
	return &Subscriber{
		Send: make(chan models.StreamEvent, config.SubscriberBufferSize),
	}
}

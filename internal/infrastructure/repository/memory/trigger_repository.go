package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/matchday/internal/domain/trigger"
)

type TriggerRepository struct {
	mu     sync.RWMutex
	events map[string]trigger.Event
	orders []string
}

func NewTriggerRepository() *TriggerRepository {
	return &TriggerRepository{
		events: make(map[string]trigger.Event),
	}
}

func (r *TriggerRepository) UpsertEvent(_ context.Context, event trigger.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[event.DispatchID]; !exists {
		r.orders = append(r.orders, event.DispatchID)
	}
	r.events[event.DispatchID] = event
	return nil
}

// ListEvents returns dispatches in first-seen order; used by tests and the
// dashboard payload.
func (r *TriggerRepository) ListEvents(_ context.Context) ([]trigger.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]trigger.Event, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.events[id])
	}

	return out, nil
}

package notifymock

import (
	"context"
	"sync"

	"chama-engine/internal/notify"
)

var _ notify.Notifier = (*Recorder)(nil)

// Recorder captures published events for assertions. Safe for
// concurrent publishers.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func New() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []notify.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *Recorder) Has(t notify.EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == t {
			return true
		}
	}
	return false
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

package engine

import (
	"sync"
	"time"
)

type EventType int

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type subscriber struct {
	fn     func(Event)
	filter map[EventType]struct{}
}

// EventBus fans engine events out to in-process handlers. Handlers are
// registered during wiring and live as long as the engine; they run
// synchronously on the emitting goroutine.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []subscriber
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers fn for the given event types, or for every type when
// none are given.
func (eb *EventBus) Subscribe(fn func(Event), types ...EventType) {
	var filter map[EventType]struct{}
	if len(types) > 0 {
		filter = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			filter[t] = struct{}{}
		}
	}
	eb.mu.Lock()
	eb.subscribers = append(eb.subscribers, subscriber{fn: fn, filter: filter})
	eb.mu.Unlock()
}

func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	eb.mu.RLock()
	subs := eb.subscribers
	eb.mu.RUnlock()

	for _, s := range subs {
		if _, ok := s.filter[evt.Type]; s.filter != nil && !ok {
			continue
		}
		s.fn(evt)
	}
}

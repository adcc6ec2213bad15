package event

import (
	"slices"
	"sync"

	"github.com/erp/finance/internal/domain/shared"
)

// subscription is one handler and the event types it accepts. A nil type set
// accepts every event.
type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{}
}

func (s subscription) accepts(eventType string) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// subscriptions keeps handlers in the order they subscribed, which is also
// the delivery order.
type subscriptions struct {
	mu   sync.RWMutex
	subs []subscription
}

// add subscribes handler to eventTypes. Subscribing an existing handler again
// widens its type set; no types means all events.
func (s *subscriptions) add(handler shared.EventHandler, eventTypes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.subs, func(sub subscription) bool { return sub.handler == handler })
	if i < 0 {
		s.subs = append(s.subs, subscription{handler: handler, types: typeSet(eventTypes)})
		return
	}
	if s.subs[i].types == nil {
		return
	}
	if len(eventTypes) == 0 {
		s.subs[i].types = nil
		return
	}
	for _, t := range eventTypes {
		s.subs[i].types[t] = struct{}{}
	}
}

func (s *subscriptions) remove(handler shared.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.handler == handler })
}

// matching returns a snapshot of the handlers that accept eventType.
func (s *subscriptions) matching(eventType string) []shared.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.EventHandler
	for _, sub := range s.subs {
		if sub.accepts(eventType) {
			out = append(out, sub.handler)
		}
	}
	return out
}

func (s *subscriptions) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func typeSet(eventTypes []string) map[string]struct{} {
	if len(eventTypes) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		set[t] = struct{}{}
	}
	return set
}

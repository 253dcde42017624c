package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// AllEvents subscribes a function handler to every event type.
const AllEvents = "*"

type funcEntry struct {
	id        string
	eventType string
	battleID  string
	handler   EventHandler
}

func (f funcEntry) matches(e Event) bool {
	if f.eventType != AllEvents && f.eventType != e.Type() {
		return false
	}
	return f.battleID == "" || f.battleID == e.BattleID()
}

// EventBus delivers battle events synchronously, in subscription order.
// Handlers run outside the bus lock and may subscribe or unsubscribe.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	funcs       []funcEntry
	nextID      int
	published   int
	logger      zerolog.Logger
}

// NewEventBus creates a new event bus instance
func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		logger: logger.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe adds a subscriber. A subscriber with the same ID replaces the
// earlier one.
func (eb *EventBus) Subscribe(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, s := range eb.subscribers {
		if s.ID() == subscriber.ID() {
			eb.subscribers[i] = subscriber
			return
		}
	}
	eb.subscribers = append(eb.subscribers, subscriber)
	eb.logger.Debug().
		Str("subscriber_id", subscriber.ID()).
		Msg("Subscriber added to event bus")
}

// Unsubscribe removes a subscriber or a function handler by ID.
func (eb *EventBus) Unsubscribe(id string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, s := range eb.subscribers {
		if s.ID() == id {
			eb.subscribers = append(eb.subscribers[:i:i], eb.subscribers[i+1:]...)
			eb.logger.Debug().Str("subscriber_id", id).Msg("Subscriber removed from event bus")
			return
		}
	}
	for i, f := range eb.funcs {
		if f.id == id {
			eb.funcs = append(eb.funcs[:i:i], eb.funcs[i+1:]...)
			eb.logger.Debug().Str("handler_id", id).Msg("Function handler removed from event bus")
			return
		}
	}
}

// SubscribeFunc adds a handler for one event type, or AllEvents, and
// returns its ID for Unsubscribe.
func (eb *EventBus) SubscribeFunc(eventType string, handler EventHandler) string {
	return eb.subscribeFunc(eventType, "", handler)
}

// SubscribeBattle adds a handler for every event of one battle.
func (eb *EventBus) SubscribeBattle(battleID string, handler EventHandler) string {
	return eb.subscribeFunc(AllEvents, battleID, handler)
}

func (eb *EventBus) subscribeFunc(eventType, battleID string, handler EventHandler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	id := fmt.Sprintf("%s_func_%d", eventType, eb.nextID)
	eb.funcs = append(eb.funcs, funcEntry{id: id, eventType: eventType, battleID: battleID, handler: handler})
	eb.logger.Debug().
		Str("event_type", eventType).
		Str("battle_id", battleID).
		Str("handler_id", id).
		Msg("Function handler added to event bus")
	return id
}

// Publish delivers an event to the interested subscribers and then to the
// matching function handlers. A panicking handler is logged and skipped.
func (eb *EventBus) Publish(event Event) {
	eb.mu.Lock()
	eb.published++
	subs := make([]Subscriber, 0, len(eb.subscribers))
	for _, s := range eb.subscribers {
		if s.InterestedIn(event.Type()) {
			subs = append(subs, s)
		}
	}
	var funcs []funcEntry
	for _, f := range eb.funcs {
		if f.matches(event) {
			funcs = append(funcs, f)
		}
	}
	eb.mu.Unlock()

	eb.logger.Trace().
		Str("event_type", event.Type()).
		Str("battle_id", event.BattleID()).
		Int("receivers", len(subs)+len(funcs)).
		Msg("Publishing event")

	for _, s := range subs {
		eb.deliver(s.ID(), event, s.HandleEvent)
	}
	for _, f := range funcs {
		eb.deliver(f.id, event, f.handler)
	}
}

func (eb *EventBus) deliver(id string, event Event, handle EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error().
				Str("receiver", id).
				Str("event_type", event.Type()).
				Str("battle_id", event.BattleID()).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()
	handle(event)
}

// GetSubscriberCount returns the number of subscribers
func (eb *EventBus) GetSubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// GetFuncHandlerCount returns the number of function handlers registered
// for eventType, counting only exact registrations.
func (eb *EventBus) GetFuncHandlerCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	n := 0
	for _, f := range eb.funcs {
		if f.eventType == eventType {
			n++
		}
	}
	return n
}

// Published returns how many events went through the bus.
func (eb *EventBus) Published() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.published
}

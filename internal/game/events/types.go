package events

import (
	"time"
)

// Event is something that happened in a battle.
type Event interface {
	Type() string
	Timestamp() time.Time
	BattleID() string
}

// Narrated events describe themselves in one line for a battle log.
type Narrated interface {
	Event
	Narrate() string
}

// BaseEvent carries the fields every battle event has.
type BaseEvent struct {
	EventType string    `json:"type"`
	Time      time.Time `json:"timestamp"`
	Battle    string    `json:"battle_id"`
}

func (e BaseEvent) Type() string         { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) BattleID() string     { return e.Battle }

func newBase(eventType, battleID string) BaseEvent {
	return BaseEvent{EventType: eventType, Time: time.Now(), Battle: battleID}
}

// Narrate returns the event's log line, or its type for events that do not
// narrate themselves.
func Narrate(e Event) string {
	if n, ok := e.(Narrated); ok {
		return n.Narrate()
	}
	return e.Type()
}

// EventHandler is a function that processes events
type EventHandler func(Event)

// Subscriber is a named receiver that filters events by type.
type Subscriber interface {
	ID() string
	HandleEvent(Event)
	InterestedIn(eventType string) bool
}

// Publisher is what a battle needs to report events. It is optional; a nil
// Publisher drops everything.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

// Publish implements Publisher.
func (f PublisherFunc) Publish(e Event) { f(e) }

// Bus fans events out to subscribers.
type Bus interface {
	Publisher
	Subscribe(Subscriber)
	Unsubscribe(id string)
	SubscribeFunc(eventType string, handler EventHandler) string
}

package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"levant/leveling"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserCreated EventType = "user_created"
	EventTypeLevelUp     EventType = "level_up"
	EventTypeUserWiped   EventType = "user_wiped"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// UserCreatedEvent represents a progression record created for a new member
type UserCreatedEvent struct {
	DiscordID int64
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// LevelUpEvent represents a member crossing a tier threshold. The role change
// it carries is applied by the bot after the XP write has committed.
type LevelUpEvent struct {
	DiscordID  int64
	OldLevel   int
	NewLevel   int
	RoleChange leveling.RoleChange
}

func (e LevelUpEvent) Type() EventType {
	return EventTypeLevelUp
}

// UserWipedEvent represents a member's record being destroyed. Subscribers
// revoke the level-derived roles as a compensating action.
type UserWipedEvent struct {
	DiscordID int64
}

func (e UserWipedEvent) Type() EventType {
	return EventTypeUserWiped
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously; a handler failure never reaches the emitter.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events published during a unit of work and flushes
// them to the real bus only after the database commit. This keeps role-change
// side effects strictly after the XP write: a failed grant can never roll
// back persisted progress, and a rolled-back write never emits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Emission uses a background context so handlers outlive the request
	// that produced them.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		log.WithField("eventType", ev.Type()).Debug("Emitting committed event")
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

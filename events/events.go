package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"bizflow/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange   EventType = "balance_change"
	EventTypeGameCreated     EventType = "game_created"
	EventTypeSettingsUpdated EventType = "settings_updated"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a committed balance mutation, one per
// affected player per economic event.
type BalanceChangeEvent struct {
	GameID          string
	PlayerID        string
	OldBalance      int64
	NewBalance      int64
	TransactionType models.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// GameCreatedEvent represents a new game session with its player batch.
type GameCreatedEvent struct {
	GameID         string
	PlayerCount    int
	InitialCapital int64
}

func (e GameCreatedEvent) Type() EventType {
	return EventTypeGameCreated
}

// SettingsUpdatedEvent represents a banker changing the game configuration.
type SettingsUpdatedEvent struct {
	GameID           string
	StartBonusAmount int64
	LoanInterestRate float64
}

func (e SettingsUpdatedEvent) Type() EventType {
	return EventTypeSettingsUpdated
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
// asynchronously and never block the emitter.
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

// TransactionalBus stashes events published during a unit of work and
// releases them to the underlying bus only after the store commit succeeds.
// Events for a rolled-back transaction are discarded.
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

// Flush emits all pending events. Called after a successful commit; emission
// uses a background context so late handlers outlive the request.
func (b *TransactionalBus) Flush(ctx context.Context) {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

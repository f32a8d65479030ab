// Package events provides in-process pub/sub for pipeline events, with
// optional persistence to the event log.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// Handler is invoked for each event matching a subscription.
type Handler func(event *models.Event)

// Appender persists published events. Satisfied by db.EventRepository.
type Appender interface {
	Append(ctx context.Context, event *models.Event) error
}

// Filter selects which events a subscription receives.
type Filter struct {
	// EventTypes filters by event type (nil = all types).
	EventTypes []models.EventType

	// EntityTypes filters by entity type (nil = all entities).
	EntityTypes []models.EntityType

	// EntityID filters to a specific entity (empty = all).
	EntityID string
}

// Matches reports whether the event passes the filter.
func (f *Filter) Matches(event *models.Event) bool {
	if event == nil {
		return false
	}
	if len(f.EventTypes) > 0 && !containsType(f.EventTypes, event.Type) {
		return false
	}
	if len(f.EntityTypes) > 0 && !containsEntity(f.EntityTypes, event.EntityType) {
		return false
	}
	if f.EntityID != "" && event.EntityID != f.EntityID {
		return false
	}
	return true
}

func containsType(types []models.EventType, t models.EventType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsEntity(types []models.EntityType, t models.EntityType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// Publisher fans events out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event *models.Event)
	Subscribe(id string, filter Filter, handler Handler) error
	Unsubscribe(id string) error
}

type subscription struct {
	filter  Filter
	handler Handler
}

// InMemoryPublisher implements Publisher with in-process fan-out.
type InMemoryPublisher struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	repo          Appender
}

// Option configures an InMemoryPublisher.
type Option func(*InMemoryPublisher)

// WithRepository makes the publisher persist every event before fan-out.
func WithRepository(repo Appender) Option {
	return func(p *InMemoryPublisher) { p.repo = repo }
}

// NewInMemoryPublisher creates an empty publisher.
func NewInMemoryPublisher(opts ...Option) *InMemoryPublisher {
	p := &InMemoryPublisher{subscriptions: make(map[string]*subscription)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish persists the event (best effort) and invokes matching handlers.
// Handlers run outside the lock so they may subscribe or publish themselves.
func (p *InMemoryPublisher) Publish(ctx context.Context, event *models.Event) {
	if event == nil {
		return
	}

	if p.repo != nil {
		_ = p.repo.Append(ctx, event)
	}

	p.mu.RLock()
	var handlers []Handler
	for _, sub := range p.subscriptions {
		if sub.filter.Matches(event) {
			handlers = append(handlers, sub.handler)
		}
	}
	p.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Subscribe registers a handler under an ID.
func (p *InMemoryPublisher) Subscribe(id string, filter Filter, handler Handler) error {
	if id == "" {
		return ErrInvalidSubscriptionID
	}
	if handler == nil {
		return ErrNilHandler
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.subscriptions[id]; exists {
		return ErrSubscriptionExists
	}
	p.subscriptions[id] = &subscription{filter: filter, handler: handler}
	return nil
}

// Unsubscribe removes a subscription by ID.
func (p *InMemoryPublisher) Unsubscribe(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.subscriptions[id]; !exists {
		return ErrSubscriptionNotFound
	}
	delete(p.subscriptions, id)
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (p *InMemoryPublisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscriptions)
}

// Close drops all subscriptions.
func (p *InMemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions = make(map[string]*subscription)
}

// NewRunEvent builds a run-scoped event with a JSON payload. A payload that
// fails to marshal is dropped rather than blocking the event.
func NewRunEvent(runID string, eventType models.EventType, payload any) *models.Event {
	event := &models.Event{
		Type:       eventType,
		EntityType: models.EntityTypeRun,
		EntityID:   runID,
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			event.Payload = data
		}
	}
	return event
}

// Publisher errors.
var (
	ErrInvalidSubscriptionID = &PublisherError{Message: "subscription ID is required"}
	ErrNilHandler            = &PublisherError{Message: "handler cannot be nil"}
	ErrSubscriptionExists    = &PublisherError{Message: "subscription with this ID already exists"}
	ErrSubscriptionNotFound  = &PublisherError{Message: "subscription not found"}
)

// PublisherError represents an error from publisher operations.
type PublisherError struct {
	Message string
}

func (e *PublisherError) Error() string {
	return e.Message
}

package event

import (
	"context"
	"sync"
	"time"
)

// Type represents the type of a store change event.
type Type string

const (
	TypeItemsSet     Type = "items_set"
	TypeItemsRemoved Type = "items_removed"
)

// Event describes a change applied to a persistent store.
type Event struct {
	Type      Type      `json:"type"`
	Keys      []string  `json:"keys"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter defines criteria for receiving events.
type Filter struct {
	Types []Type
}

// Bus defines the event bus interface.
type Bus interface {
	Publish(e Event)
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, error)
}

type bus struct {
	subscribers map[chan Event]Filter
	mu          sync.RWMutex
	buffer      int
}

// New creates a new event bus.
func New() Bus {
	return NewWithBuffer(100)
}

// NewWithBuffer creates an event bus whose subscriber channels
// hold up to size pending events.
func NewWithBuffer(size int) Bus {
	if size < 0 {
		size = 0
	}
	return &bus{
		subscribers: make(map[chan Event]Filter),
		buffer:      size,
	}
}

func (b *bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, filter := range b.subscribers {
		if b.matches(filter, e) {
			select {
			case ch <- e:
			default:
				// Drop event if channel is full to prevent blocking
			}
		}
	}
}

func (b *bus) Subscribe(ctx context.Context, filter Filter) (<-chan Event, error) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.subscribers[ch] = filter
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}

func (b *bus) matches(filter Filter, e Event) bool {
	if len(filter.Types) == 0 {
		return true
	}
	for _, t := range filter.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}

package memory

import (
	"context"
	"sync"

	"github.com/caesium-cloud/jobassist/internal/event"
	"github.com/caesium-cloud/jobassist/internal/store"
)

// Store is an in-process store.Store that enforces a byte quota the
// same way the persistent backends do.
type Store struct {
	mu    sync.RWMutex
	items map[string][]byte
	used  int64
	quota int64
	bus   event.Bus
}

// New creates an empty store. A quota <= 0 disables enforcement and
// reports an unknown quota.
func New(quota int64) *Store {
	if quota < 0 {
		quota = 0
	}
	return &Store{
		items: make(map[string][]byte),
		quota: quota,
		bus:   event.New(),
	}
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok := s.items[key]; ok {
			out[key] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, items map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()

	projected := s.used
	for key, value := range items {
		if old, ok := s.items[key]; ok {
			projected -= store.ItemSize(key, old)
		}
		projected += store.ItemSize(key, value)
	}

	if s.quota > 0 && projected > s.quota {
		s.mu.Unlock()
		return store.ErrQuotaExceeded
	}

	keys := make([]string, 0, len(items))
	for key, value := range items {
		s.items[key] = append([]byte(nil), value...)
		keys = append(keys, key)
	}
	s.used = projected
	s.mu.Unlock()

	s.bus.Publish(event.Event{Type: event.TypeItemsSet, Keys: keys})
	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	removed := make([]string, 0, len(keys))
	for _, key := range keys {
		if old, ok := s.items[key]; ok {
			s.used -= store.ItemSize(key, old)
			delete(s.items, key)
			removed = append(removed, key)
		}
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		s.bus.Publish(event.Event{Type: event.TypeItemsRemoved, Keys: removed})
	}
	return nil
}

func (s *Store) BytesInUse(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used, nil
}

func (s *Store) QuotaBytes() int64 {
	return s.quota
}

// Subscribe streams change events until ctx is done.
func (s *Store) Subscribe(ctx context.Context) (<-chan event.Event, error) {
	return s.bus.Subscribe(ctx, event.Filter{})
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

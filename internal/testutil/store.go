package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// FilterFunc is a generic filter function type
type FilterFunc[T any] func(ctx context.Context, item T, filter interface{}) bool

// SortFunc is a generic sort function type
type SortFunc[T any] func(i, j T) bool

// InMemoryStore implements a generic in-memory store. Writes made with a
// context carrying a MockPostgresClient transaction are undone when that
// transaction rolls back.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewInMemoryStore creates a new InMemoryStore
func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
	}
}

// Create adds a new item to the store
func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(ctx, id, item)
}

// create expects s.mu to be held
func (s *InMemoryStore[T]) create(ctx context.Context, id string, item T) error {
	if _, exists := s.items[id]; exists {
		return ierr.NewError("item already exists").
			WithHintf("Item %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[id] = item
	s.journal(ctx, func(items map[string]T) {
		delete(items, id)
	})
	return nil
}

// Get retrieves an item by ID
func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[id]; exists {
		return item, nil
	}

	var zero T
	return zero, ierr.NewError("item not found").
		WithHintf("Item %s not found", id).
		Mark(ierr.ErrNotFound)
}

// List retrieves items based on filter
func (s *InMemoryStore[T]) List(ctx context.Context, filter interface{}, filterFn FilterFunc[T], sortFn SortFunc[T]) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(ctx, filter, filterFn, sortFn), nil
}

// list expects s.mu to be held
func (s *InMemoryStore[T]) list(ctx context.Context, filter interface{}, filterFn FilterFunc[T], sortFn SortFunc[T]) []T {
	result := make([]T, 0)
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item, filter) {
			result = append(result, item)
		}
	}

	if sortFn != nil {
		sort.Slice(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}
	return result
}

// Count returns the total number of items matching the filter
func (s *InMemoryStore[T]) Count(ctx context.Context, filter interface{}, filterFn FilterFunc[T]) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item, filter) {
			count++
		}
	}

	return count, nil
}

// Update updates an existing item
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, item)
}

// update expects s.mu to be held
func (s *InMemoryStore[T]) update(ctx context.Context, id string, item T) error {
	prev, exists := s.items[id]
	if !exists {
		return ierr.NewError("item not found").
			WithHintf("Item %s not found", id).
			Mark(ierr.ErrNotFound)
	}

	s.items[id] = item
	s.journal(ctx, func(items map[string]T) {
		items[id] = prev
	})
	return nil
}

// Delete removes an item from the store
func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(ctx, id)
}

// delete expects s.mu to be held
func (s *InMemoryStore[T]) delete(ctx context.Context, id string) error {
	prev, exists := s.items[id]
	if !exists {
		return ierr.NewError("item not found").
			WithHintf("Item %s not found", id).
			Mark(ierr.ErrNotFound)
	}

	delete(s.items, id)
	s.journal(ctx, func(items map[string]T) {
		items[id] = prev
	})
	return nil
}

// Clear removes all items from the store
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}

// journal registers undo with the transaction in ctx, if any
func (s *InMemoryStore[T]) journal(ctx context.Context, undo func(items map[string]T)) {
	tx := txFromContext(ctx)
	if tx == nil {
		return
	}
	tx.record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		undo(s.items)
	})
}

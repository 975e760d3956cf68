package store

import (
	"context"
	"sort"
	"sync"

	"quorum/internal/catalog/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// InMemory implements Store with a map guarded by a RWMutex. Used by unit
// tests and by deployments that run without Postgres.
type InMemory struct {
	mu    sync.RWMutex
	items map[id.ItemID]*models.Item
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[id.ItemID]*models.Item)}
}

func (s *InMemory) Create(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *item
	s.items[item.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, itemID id.ItemID) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (s *InMemory) ListBatch(_ context.Context, batch string, onlyActive bool) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Item
	for _, item := range s.items {
		if item.Batch != batch {
			continue
		}
		if onlyActive && !item.IsActive() {
			continue
		}
		clone := *item
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, itemID id.ItemID, validate func(*models.Item) error, mutate func(*models.Item)) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(item); err != nil {
		return nil, err
	}
	mutate(item)
	clone := *item
	return &clone, nil
}

package store

import (
	"context"

	"quorum/internal/catalog/models"
	id "quorum/pkg/domain"
)

// Store persists catalog items. Implementations return pkg/platform/sentinel
// errors for factual failures; services translate them into domain errors.
type Store interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error)

	// ListBatch returns the items of one batch ordered by ID. Passing
	// onlyActive filters out withdrawn items; the planner always does.
	ListBatch(ctx context.Context, batch string, onlyActive bool) ([]*models.Item, error)

	// Execute atomically validates and mutates one item. The implementation
	// holds its lock (mutex or row lock) across both callbacks.
	Execute(ctx context.Context, itemID id.ItemID, validate func(*models.Item) error, mutate func(*models.Item)) (*models.Item, error)
}

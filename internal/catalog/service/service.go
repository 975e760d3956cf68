package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"quorum/internal/catalog/models"
	"quorum/internal/catalog/store"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/requestcontext"
)

// Service manages the item catalog. The scheduler only ever reads item
// identifiers from here; judgements and assignments live in other modules.
type Service struct {
	items  store.Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(items store.Store, opts ...Option) (*Service, error) {
	if items == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "catalog store is required")
	}
	svc := &Service{items: items, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterItem adds one item to a batch.
func (s *Service) RegisterItem(ctx context.Context, label, batch string) (*models.Item, error) {
	label = strings.TrimSpace(label)
	batch = strings.TrimSpace(batch)

	item, err := models.NewItem(id.ItemID(uuid.New()), label, batch, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidParameter, "invalid item")
	}
	if err := s.items.Create(ctx, item); err != nil {
		if dErrors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "item already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to create item")
	}

	s.logger.InfoContext(ctx, "item registered",
		"request_id", requestcontext.RequestID(ctx),
		"item_id", item.ID,
		"batch", item.Batch,
	)
	return item, nil
}

// GetItem retrieves one item.
func (s *Service) GetItem(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	if itemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "item id is required")
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load item")
	}
	return item, nil
}

// WithdrawItem moves an item to withdrawn. The store holds its lock across
// the status check and the write, so two concurrent withdrawals cannot both
// succeed.
func (s *Service) WithdrawItem(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	if itemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "item id is required")
	}
	item, err := s.items.Execute(ctx, itemID,
		func(item *models.Item) error { return item.CanWithdraw() },
		func(item *models.Item) { item.ApplyWithdrawal(requestcontext.Now(ctx)) },
	)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "item not found")
		}
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to withdraw item")
	}

	s.logger.InfoContext(ctx, "item withdrawn",
		"request_id", requestcontext.RequestID(ctx),
		"item_id", item.ID,
	)
	return item, nil
}

// ListBatch returns the active items of one batch ordered by ID. This is the
// frozen ordering campaigns snapshot at plan time.
func (s *Service) ListBatch(ctx context.Context, batch string) ([]*models.Item, error) {
	batch = strings.TrimSpace(batch)
	if batch == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "batch is required")
	}
	items, err := s.items.ListBatch(ctx, batch, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to list batch")
	}
	return items, nil
}

package models

import (
	"time"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

// ItemStatus tracks catalog lifecycle. Items are never deleted; withdrawal is
// a soft removal so plans computed before the withdrawal stay intact.
type ItemStatus string

const (
	ItemStatusActive    ItemStatus = "active"
	ItemStatusWithdrawn ItemStatus = "withdrawn"
)

// Item is one rateable unit of the catalog.
//
// Invariants:
//   - Label is non-empty and at most 256 characters
//   - Batch is non-empty (items always belong to exactly one batch)
//   - Status transitions: active → withdrawn only
//   - ID and CreatedAt are immutable after construction
type Item struct {
	ID        id.ItemID  `json:"id"`
	Label     string     `json:"label"`
	Batch     string     `json:"batch"`
	Status    ItemStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (i *Item) IsActive() bool {
	return i.Status == ItemStatusActive
}

// CanWithdraw checks whether the item can transition to withdrawn.
func (i *Item) CanWithdraw() error {
	if i.Status == ItemStatusWithdrawn {
		return dErrors.New(dErrors.CodeInvariantViolation, "item is already withdrawn")
	}
	return nil
}

// ApplyWithdrawal transitions the item to withdrawn.
// Call CanWithdraw first to validate the transition.
func (i *Item) ApplyWithdrawal(now time.Time) {
	i.Status = ItemStatusWithdrawn
	i.UpdatedAt = now
}

func NewItem(itemID id.ItemID, label, batch string, now time.Time) (*Item, error) {
	if label == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "item label cannot be empty")
	}
	if len(label) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "item label must be 256 characters or less")
	}
	if batch == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "item batch cannot be empty")
	}
	return &Item{
		ID:        itemID,
		Label:     label,
		Batch:     batch,
		Status:    ItemStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

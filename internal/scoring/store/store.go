package store

import (
	"context"
	"time"

	"quorum/internal/scoring/models"
	id "quorum/pkg/domain"
)

// Store persists assignments and judgements. Implementations return
// pkg/platform/sentinel errors for factual failures; the service translates
// them into domain errors.
type Store interface {
	// CreateAssignments persists a claimed bucket's assignments. Runs
	// inside the claim transaction when the context carries one.
	CreateAssignments(ctx context.Context, assignments []*models.Assignment) error

	// NextPending returns the participant's first pending assignment in
	// bucket order, or sentinel.ErrNotFound when none remain.
	NextPending(ctx context.Context, participantID id.ParticipantID) (*models.Assignment, error)

	FindByParticipantItem(ctx context.Context, participantID id.ParticipantID, itemID id.ItemID) (*models.Assignment, error)

	// Complete atomically records the judgement and moves its assignment
	// from pending to completed. Exactly one of two racing calls for the
	// same assignment succeeds; the loser gets sentinel.ErrAlreadyUsed.
	// A cancelled assignment yields sentinel.ErrInvalidState.
	Complete(ctx context.Context, judgement *models.Judgement, completedAt time.Time) error

	// CancelByItem cancels every still-pending assignment of the item and
	// returns the affected participants. Completed and already-cancelled
	// assignments are untouched.
	CancelByItem(ctx context.Context, itemID id.ItemID) ([]id.ParticipantID, error)

	Progress(ctx context.Context, participantID id.ParticipantID) (*models.Progress, error)

	// ListJudgements returns the participant's judgements in submission
	// order.
	ListJudgements(ctx context.Context, participantID id.ParticipantID) ([]*models.Judgement, error)

	// CountByCampaign returns the campaign's non-cancelled and completed
	// assignment counts, for operator usage listings.
	CountByCampaign(ctx context.Context, campaignID id.CampaignID) (total, completed int, err error)
}

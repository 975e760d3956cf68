package models

import (
	"time"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

// AssignmentStatus tracks an assignment through its lifecycle. Completed and
// cancelled are terminal; a terminal assignment never changes again.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// Assignment is one (participant, item) judgement obligation. Position
// preserves the bucket order so participants always see their items in the
// same sequence.
type Assignment struct {
	ID            id.AssignmentID  `json:"id"`
	ParticipantID id.ParticipantID `json:"participant_id"`
	CampaignID    id.CampaignID    `json:"campaign_id"`
	ItemID        id.ItemID        `json:"item_id"`
	Position      int              `json:"position"`
	Status        AssignmentStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

func (a *Assignment) IsPending() bool {
	return a.Status == AssignmentPending
}

// CanComplete reports whether the pending-to-completed transition is legal.
func (a *Assignment) CanComplete() error {
	switch a.Status {
	case AssignmentPending:
		return nil
	case AssignmentCompleted:
		return dErrors.New(dErrors.CodeDuplicateJudgement, "assignment already judged")
	default:
		return dErrors.New(dErrors.CodeNoSuchAssignment, "assignment was cancelled")
	}
}

// ApplyCompletion moves a pending assignment to completed.
func (a *Assignment) ApplyCompletion(now time.Time) error {
	if err := a.CanComplete(); err != nil {
		return err
	}
	a.Status = AssignmentCompleted
	a.CompletedAt = &now
	return nil
}

// ApplyCancellation moves a pending assignment to cancelled. Cancelling a
// terminal assignment is rejected; completed history is never rewritten.
func (a *Assignment) ApplyCancellation() error {
	if a.Status != AssignmentPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending assignments can be cancelled")
	}
	a.Status = AssignmentCancelled
	return nil
}

package models

import (
	"strings"
	"time"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

const (
	RatingMin = 1
	RatingMax = 9

	// JustificationMinLen keeps free-text justifications substantive
	// enough to audit.
	JustificationMinLen = 10
)

// Judgement is one recorded verdict: a bounded rating plus a free-text
// justification, bound forever to the assignment it completed.
type Judgement struct {
	ID            id.JudgementID   `json:"id"`
	AssignmentID  id.AssignmentID  `json:"assignment_id"`
	ParticipantID id.ParticipantID `json:"participant_id"`
	CampaignID    id.CampaignID    `json:"campaign_id"`
	ItemID        id.ItemID        `json:"item_id"`
	Rating        int              `json:"rating"`
	Justification string           `json:"justification"`
	Notes         string           `json:"notes,omitempty"`
	SecondsSpent  int              `json:"seconds_spent,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Verdict is the participant-supplied part of a judgement. Notes and
// SecondsSpent are optional.
type Verdict struct {
	Rating        int
	Justification string
	Notes         string
	SecondsSpent  int
}

// NewJudgement validates and constructs a judgement for a pending assignment.
func NewJudgement(judgementID id.JudgementID, assignment *Assignment, verdict Verdict, now time.Time) (*Judgement, error) {
	if verdict.Rating < RatingMin || verdict.Rating > RatingMax {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "rating must be between 1 and 9")
	}
	justification := strings.TrimSpace(verdict.Justification)
	if len(justification) < JustificationMinLen {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "justification must be at least 10 characters")
	}
	if verdict.SecondsSpent < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "seconds spent cannot be negative")
	}
	return &Judgement{
		ID:            judgementID,
		AssignmentID:  assignment.ID,
		ParticipantID: assignment.ParticipantID,
		CampaignID:    assignment.CampaignID,
		ItemID:        assignment.ItemID,
		Rating:        verdict.Rating,
		Justification: justification,
		Notes:         strings.TrimSpace(verdict.Notes),
		SecondsSpent:  verdict.SecondsSpent,
		CreatedAt:     now,
	}, nil
}

// Progress summarizes one participant's obligation. Cancelled assignments
// are excluded from Total and Remaining alike, so Completed + Remaining
// always equals Total.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}

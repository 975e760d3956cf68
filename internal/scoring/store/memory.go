package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"quorum/internal/scoring/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// InMemory implements Store with maps guarded by a RWMutex. Used by unit
// tests and by deployments that run without Postgres.
type InMemory struct {
	mu            sync.RWMutex
	assignments   map[id.AssignmentID]*models.Assignment
	byParticipant map[id.ParticipantID][]id.AssignmentID
	judgements    map[id.JudgementID]*models.Judgement
	byAssignment  map[id.AssignmentID]id.JudgementID
}

func NewInMemory() *InMemory {
	return &InMemory{
		assignments:   make(map[id.AssignmentID]*models.Assignment),
		byParticipant: make(map[id.ParticipantID][]id.AssignmentID),
		judgements:    make(map[id.JudgementID]*models.Judgement),
		byAssignment:  make(map[id.AssignmentID]id.JudgementID),
	}
}

func (s *InMemory) CreateAssignments(_ context.Context, assignments []*models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range assignments {
		if _, exists := s.assignments[a.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, a := range assignments {
		clone := *a
		s.assignments[a.ID] = &clone
		s.byParticipant[a.ParticipantID] = append(s.byParticipant[a.ParticipantID], a.ID)
	}
	return nil
}

func (s *InMemory) NextPending(_ context.Context, participantID id.ParticipantID) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *models.Assignment
	for _, assignmentID := range s.byParticipant[participantID] {
		a := s.assignments[assignmentID]
		if !a.IsPending() {
			continue
		}
		if next == nil || a.Position < next.Position {
			next = a
		}
	}
	if next == nil {
		return nil, sentinel.ErrNotFound
	}
	clone := *next
	return &clone, nil
}

func (s *InMemory) FindByParticipantItem(_ context.Context, participantID id.ParticipantID, itemID id.ItemID) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, assignmentID := range s.byParticipant[participantID] {
		a := s.assignments[assignmentID]
		if a.ItemID == itemID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Complete(_ context.Context, judgement *models.Judgement, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[judgement.AssignmentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	switch a.Status {
	case models.AssignmentCompleted:
		return sentinel.ErrAlreadyUsed
	case models.AssignmentCancelled:
		return sentinel.ErrInvalidState
	}

	a.Status = models.AssignmentCompleted
	a.CompletedAt = &completedAt
	clone := *judgement
	s.judgements[judgement.ID] = &clone
	s.byAssignment[judgement.AssignmentID] = judgement.ID
	return nil
}

func (s *InMemory) CancelByItem(_ context.Context, itemID id.ItemID) ([]id.ParticipantID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected []id.ParticipantID
	for _, a := range s.assignments {
		if a.ItemID != itemID || !a.IsPending() {
			continue
		}
		a.Status = models.AssignmentCancelled
		affected = append(affected, a.ParticipantID)
	}
	sort.Slice(affected, func(i, j int) bool {
		return affected[i].String() < affected[j].String()
	})
	return affected, nil
}

func (s *InMemory) Progress(_ context.Context, participantID id.ParticipantID) (*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var progress models.Progress
	for _, assignmentID := range s.byParticipant[participantID] {
		switch s.assignments[assignmentID].Status {
		case models.AssignmentPending:
			progress.Total++
			progress.Remaining++
		case models.AssignmentCompleted:
			progress.Total++
			progress.Completed++
		}
	}
	return &progress, nil
}

func (s *InMemory) ListJudgements(_ context.Context, participantID id.ParticipantID) ([]*models.Judgement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Judgement
	for _, j := range s.judgements {
		if j.ParticipantID != participantID {
			continue
		}
		clone := *j
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) CountByCampaign(_ context.Context, campaignID id.CampaignID) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total, completed int
	for _, a := range s.assignments {
		if a.CampaignID != campaignID || a.Status == models.AssignmentCancelled {
			continue
		}
		total++
		if a.Status == models.AssignmentCompleted {
			completed++
		}
	}
	return total, completed, nil
}

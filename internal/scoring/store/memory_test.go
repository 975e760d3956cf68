package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"quorum/internal/scoring/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

type ScoringStoreSuite struct {
	suite.Suite

	ctx         context.Context
	store       *InMemory
	now         time.Time
	participant id.ParticipantID
	campaign    id.CampaignID
	assignments []*models.Assignment
}

func TestScoringStoreSuite(t *testing.T) {
	suite.Run(t, new(ScoringStoreSuite))
}

func (s *ScoringStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.participant = id.ParticipantID(uuid.New())
	s.campaign = id.CampaignID(uuid.New())

	s.assignments = nil
	for i := 0; i < 3; i++ {
		s.assignments = append(s.assignments, &models.Assignment{
			ID:            id.AssignmentID(uuid.New()),
			ParticipantID: s.participant,
			CampaignID:    s.campaign,
			ItemID:        id.ItemID(uuid.New()),
			Position:      i,
			Status:        models.AssignmentPending,
			CreatedAt:     s.now,
		})
	}
	s.Require().NoError(s.store.CreateAssignments(s.ctx, s.assignments))
}

func (s *ScoringStoreSuite) judgement(assignment *models.Assignment) *models.Judgement {
	judgement, err := models.NewJudgement(
		id.JudgementID(uuid.New()), assignment,
		models.Verdict{Rating: 7, Justification: "crisp composition"}, s.now)
	s.Require().NoError(err)
	return judgement
}

func (s *ScoringStoreSuite) TestNextPending() {
	s.Run("returns the lowest pending position", func() {
		next, err := s.store.NextPending(s.ctx, s.participant)
		s.Require().NoError(err)
		s.Equal(s.assignments[0].ID, next.ID)
	})

	s.Run("skips completed assignments", func() {
		s.Require().NoError(s.store.Complete(s.ctx, s.judgement(s.assignments[0]), s.now))

		next, err := s.store.NextPending(s.ctx, s.participant)
		s.Require().NoError(err)
		s.Equal(s.assignments[1].ID, next.ID)
	})

	s.Run("reports not found when nothing is pending", func() {
		s.Require().NoError(s.store.Complete(s.ctx, s.judgement(s.assignments[1]), s.now))
		s.Require().NoError(s.store.Complete(s.ctx, s.judgement(s.assignments[2]), s.now))

		_, err := s.store.NextPending(s.ctx, s.participant)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("reports not found for an unknown participant", func() {
		_, err := s.store.NextPending(s.ctx, id.ParticipantID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ScoringStoreSuite) TestComplete() {
	s.Run("completes a pending assignment exactly once", func() {
		s.Require().NoError(s.store.Complete(s.ctx, s.judgement(s.assignments[0]), s.now))

		err := s.store.Complete(s.ctx, s.judgement(s.assignments[0]), s.now)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rejects a cancelled assignment", func() {
		_, err := s.store.CancelByItem(s.ctx, s.assignments[1].ItemID)
		s.Require().NoError(err)

		err = s.store.Complete(s.ctx, s.judgement(s.assignments[1]), s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("reports not found for an unknown assignment", func() {
		ghost := &models.Assignment{
			ID:            id.AssignmentID(uuid.New()),
			ParticipantID: s.participant,
			CampaignID:    s.campaign,
			ItemID:        id.ItemID(uuid.New()),
			Status:        models.AssignmentPending,
			CreatedAt:     s.now,
		}
		err := s.store.Complete(s.ctx, s.judgement(ghost), s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ScoringStoreSuite) TestCancelByItem() {
	// A second participant shares the first item.
	other := id.ParticipantID(uuid.New())
	shared := &models.Assignment{
		ID:            id.AssignmentID(uuid.New()),
		ParticipantID: other,
		CampaignID:    s.campaign,
		ItemID:        s.assignments[0].ItemID,
		Position:      0,
		Status:        models.AssignmentPending,
		CreatedAt:     s.now,
	}
	s.Require().NoError(s.store.CreateAssignments(s.ctx, []*models.Assignment{shared}))

	s.Run("cancels every pending assignment of the item", func() {
		affected, err := s.store.CancelByItem(s.ctx, s.assignments[0].ItemID)
		s.Require().NoError(err)
		s.ElementsMatch([]id.ParticipantID{s.participant, other}, affected)
	})

	s.Run("leaves completed assignments untouched", func() {
		s.Require().NoError(s.store.Complete(s.ctx, s.judgement(s.assignments[1]), s.now))

		affected, err := s.store.CancelByItem(s.ctx, s.assignments[1].ItemID)
		s.Require().NoError(err)
		s.Empty(affected)

		found, err := s.store.FindByParticipantItem(s.ctx, s.participant, s.assignments[1].ItemID)
		s.Require().NoError(err)
		s.Equal(models.AssignmentCompleted, found.Status)
	})
}

func (s *ScoringStoreSuite) TestProgress() {
	s.Require().NoError(s.store.Complete(s.ctx, s.judgement(s.assignments[0]), s.now))
	_, err := s.store.CancelByItem(s.ctx, s.assignments[2].ItemID)
	s.Require().NoError(err)

	progress, err := s.store.Progress(s.ctx, s.participant)
	s.Require().NoError(err)
	s.Equal(2, progress.Total)
	s.Equal(1, progress.Completed)
	s.Equal(1, progress.Remaining)
}

func (s *ScoringStoreSuite) TestCountByCampaign() {
	s.Require().NoError(s.store.Complete(s.ctx, s.judgement(s.assignments[0]), s.now))
	_, err := s.store.CancelByItem(s.ctx, s.assignments[2].ItemID)
	s.Require().NoError(err)

	total, completed, err := s.store.CountByCampaign(s.ctx, s.campaign)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal(1, completed)
}

func (s *ScoringStoreSuite) TestListJudgements() {
	first := s.judgement(s.assignments[0])
	s.Require().NoError(s.store.Complete(s.ctx, first, s.now))

	second, err := models.NewJudgement(
		id.JudgementID(uuid.New()), s.assignments[1],
		models.Verdict{Rating: 3, Justification: "muddy foreground"}, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Complete(s.ctx, second, s.now.Add(time.Minute)))

	listed, err := s.store.ListJudgements(s.ctx, s.participant)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(first.ID, listed[0].ID)
	s.Equal(second.ID, listed[1].ID)

	other, err := s.store.ListJudgements(s.ctx, id.ParticipantID(uuid.New()))
	s.Require().NoError(err)
	s.Empty(other)
}

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/testutil"
)

func pendingAssignment() *Assignment {
	return &Assignment{
		ID:            id.AssignmentID(uuid.New()),
		ParticipantID: id.ParticipantID(uuid.New()),
		CampaignID:    id.CampaignID(uuid.New()),
		ItemID:        id.ItemID(uuid.New()),
		Status:        AssignmentPending,
		CreatedAt:     time.Now(),
	}
}

func TestAssignmentTransitions(t *testing.T) {
	now := time.Now()

	testutil.Given(t, "a pending assignment", func(t *testing.T) {
		testutil.When(t, "a judgement completes it", func(t *testing.T) {
			a := pendingAssignment()
			require.NoError(t, a.CanComplete())
			require.NoError(t, a.ApplyCompletion(now))

			testutil.Then(t, "it is terminal", func(t *testing.T) {
				assert.Equal(t, AssignmentCompleted, a.Status)
				require.NotNil(t, a.CompletedAt)
				assert.True(t, a.CompletedAt.Equal(now))

				err := a.CanComplete()
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateJudgement))
				assert.Error(t, a.ApplyCancellation())
			})
		})

		testutil.When(t, "its item is withdrawn", func(t *testing.T) {
			a := pendingAssignment()
			require.NoError(t, a.ApplyCancellation())

			testutil.Then(t, "a later judgement is rejected", func(t *testing.T) {
				assert.Equal(t, AssignmentCancelled, a.Status)

				err := a.CanComplete()
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeNoSuchAssignment))
			})
		})
	})
}

func TestNewJudgementValidation(t *testing.T) {
	now := time.Now()
	assignment := pendingAssignment()

	t.Run("accepts a judgement inside the bounds", func(t *testing.T) {
		judgement, err := NewJudgement(id.JudgementID(uuid.New()), assignment, Verdict{
			Rating:        9,
			Justification: "  sharp focus throughout  ",
			Notes:         "  compared against the rest of the batch  ",
			SecondsSpent:  42,
		}, now)
		require.NoError(t, err)
		assert.Equal(t, assignment.ID, judgement.AssignmentID)
		assert.Equal(t, assignment.ItemID, judgement.ItemID)
		assert.Equal(t, "sharp focus throughout", judgement.Justification)
		assert.Equal(t, "compared against the rest of the batch", judgement.Notes)
		assert.Equal(t, 42, judgement.SecondsSpent)
	})

	t.Run("rejects ratings off the scale", func(t *testing.T) {
		for _, rating := range []int{0, 10, -3} {
			_, err := NewJudgement(id.JudgementID(uuid.New()), assignment, Verdict{Rating: rating, Justification: "long enough justification"}, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidParameter))
		}
	})

	t.Run("rejects a justification that trims too short", func(t *testing.T) {
		_, err := NewJudgement(id.JudgementID(uuid.New()), assignment, Verdict{Rating: 5, Justification: "   short    "}, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidParameter))
	})

	t.Run("rejects negative time spent", func(t *testing.T) {
		_, err := NewJudgement(id.JudgementID(uuid.New()), assignment, Verdict{Rating: 5, Justification: "long enough justification", SecondsSpent: -1}, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidParameter))
	})

	t.Run("accepts exactly the minimum length", func(t *testing.T) {
		_, err := NewJudgement(id.JudgementID(uuid.New()), assignment, Verdict{Rating: 5, Justification: strings.Repeat("x", JustificationMinLen)}, now)
		require.NoError(t, err)
	})
}

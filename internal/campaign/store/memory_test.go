package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"quorum/internal/campaign/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite

	ctx   context.Context
	store *InMemory
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newCampaign(accessCode string, buckets int) *models.Campaign {
	campaign, err := models.NewCampaign(
		id.CampaignID(uuid.New()), "august review", accessCode,
		[]id.ItemID{id.ItemID(uuid.New())}, 1, buckets, 0,
		s.now.Add(24*time.Hour), s.now,
	)
	s.Require().NoError(err)
	campaign.Plan.Buckets = make([]models.Bucket, buckets)
	for i := range campaign.Plan.Buckets {
		campaign.Plan.Buckets[i] = models.Bucket{campaign.Items[0]}
	}
	return campaign
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	campaign := s.newCampaign("code-1", 3)
	s.Require().NoError(s.store.Create(s.ctx, campaign))

	s.Run("finds by id and by code", func() {
		byID, err := s.store.FindByID(s.ctx, campaign.ID)
		s.Require().NoError(err)
		s.Equal(campaign.ID, byID.ID)

		byCode, err := s.store.FindByCode(s.ctx, "code-1")
		s.Require().NoError(err)
		s.Equal(campaign.ID, byCode.ID)
	})

	s.Run("rejects a duplicate access code", func() {
		err := s.store.Create(s.ctx, s.newCampaign("code-1", 3))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown lookups yield not found", func() {
		_, err := s.store.FindByID(s.ctx, id.CampaignID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByCode(s.ctx, "no-such-code")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned campaigns are isolated from the stored copy", func() {
		got, err := s.store.FindByID(s.ctx, campaign.ID)
		s.Require().NoError(err)
		got.Plan.Buckets[0][0] = id.ItemID(uuid.New())

		again, err := s.store.FindByID(s.ctx, campaign.ID)
		s.Require().NoError(err)
		s.Equal(campaign.Items[0], again.Plan.Buckets[0][0])
	})
}

func (s *InMemoryStoreSuite) TestList() {
	first := s.newCampaign("code-a", 1)
	first.CreatedAt = s.now.Add(-time.Hour)
	second := s.newCampaign("code-b", 1)
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))

	listed, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second.ID, listed[0].ID)
	s.Equal(first.ID, listed[1].ID)
}

func (s *InMemoryStoreSuite) TestNextClaimIndex() {
	campaign := s.newCampaign("code-1", 3)
	s.Require().NoError(s.store.Create(s.ctx, campaign))

	s.Run("hands out sequential indices up to the limit", func() {
		for want := 0; want < 3; want++ {
			index, err := s.store.NextClaimIndex(s.ctx, campaign.ID, 3)
			s.Require().NoError(err)
			s.Equal(want, index)
		}
	})

	s.Run("reports exhaustion at the limit", func() {
		_, err := s.store.NextClaimIndex(s.ctx, campaign.ID, 3)
		s.ErrorIs(err, sentinel.ErrExhausted)
	})

	s.Run("reports not found for an unknown campaign", func() {
		_, err := s.store.NextClaimIndex(s.ctx, id.CampaignID(uuid.New()), 3)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestNextClaimIndexConcurrent() {
	const limit = 8
	campaign := s.newCampaign("code-1", limit)
	s.Require().NoError(s.store.Create(s.ctx, campaign))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		indices []int
		errs    []error
	)
	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			index, err := s.store.NextClaimIndex(s.ctx, campaign.ID, limit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			indices = append(indices, index)
		}()
	}
	wg.Wait()

	s.Len(indices, limit)
	s.Len(errs, limit)
	seen := make(map[int]bool, limit)
	for _, index := range indices {
		s.False(seen[index], "index %d handed out twice", index)
		seen[index] = true
	}
	for _, err := range errs {
		s.ErrorIs(err, sentinel.ErrExhausted)
	}
}

func (s *InMemoryStoreSuite) TestParticipants() {
	campaign := s.newCampaign("code-1", 3)
	s.Require().NoError(s.store.Create(s.ctx, campaign))

	participant := &models.Participant{
		ID:          id.ParticipantID(uuid.New()),
		CampaignID:  campaign.ID,
		IdentityKey: "alice@example.com",
		DisplayName: "Alice",
		BucketIndex: 0,
		CreatedAt:   s.now,
	}
	s.Require().NoError(s.store.CreateParticipant(s.ctx, participant))

	s.Run("finds by id and by identity", func() {
		byID, err := s.store.FindParticipant(s.ctx, participant.ID)
		s.Require().NoError(err)
		s.Equal("Alice", byID.DisplayName)

		byIdentity, err := s.store.FindParticipantByIdentity(s.ctx, campaign.ID, "alice@example.com")
		s.Require().NoError(err)
		s.Equal(participant.ID, byIdentity.ID)
	})

	s.Run("rejects a duplicate identity within the campaign", func() {
		dup := &models.Participant{
			ID:          id.ParticipantID(uuid.New()),
			CampaignID:  campaign.ID,
			IdentityKey: "alice@example.com",
			BucketIndex: 1,
			CreatedAt:   s.now,
		}
		s.ErrorIs(s.store.CreateParticipant(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("allows the same identity in another campaign", func() {
		other := s.newCampaign("code-2", 3)
		s.Require().NoError(s.store.Create(s.ctx, other))
		s.Require().NoError(s.store.CreateParticipant(s.ctx, &models.Participant{
			ID:          id.ParticipantID(uuid.New()),
			CampaignID:  other.ID,
			IdentityKey: "alice@example.com",
			CreatedAt:   s.now,
		}))
	})

	s.Run("counts participants per campaign", func() {
		count, err := s.store.CountParticipants(s.ctx, campaign.ID)
		s.Require().NoError(err)
		s.Equal(1, count)

		count, err = s.store.CountParticipants(s.ctx, id.CampaignID(uuid.New()))
		s.Require().NoError(err)
		s.Zero(count)
	})
}

//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"quorum/internal/campaign/models"
	"quorum/internal/campaign/store"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite

	postgres *containers.PostgresContainer
	store    *store.Postgres
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) seedItems(ctx context.Context, count int) []id.ItemID {
	itemIDs := make([]id.ItemID, count)
	for i := range itemIDs {
		itemIDs[i] = id.ItemID(uuid.New())
		_, err := s.postgres.DB.ExecContext(ctx,
			`INSERT INTO items (id, label, batch, status, created_at, updated_at)
			 VALUES ($1, $2, 'round-1', 'active', $3, $3)`,
			uuid.UUID(itemIDs[i]), "item", s.now)
		s.Require().NoError(err)
	}
	return itemIDs
}

func (s *PostgresStoreSuite) newCampaign(ctx context.Context, accessCode string, buckets int) *models.Campaign {
	itemIDs := s.seedItems(ctx, 2)
	campaign, err := models.NewCampaign(
		id.CampaignID(uuid.New()), "integration run", accessCode,
		itemIDs, 1, buckets, 0, s.now.Add(24*time.Hour), s.now,
	)
	s.Require().NoError(err)
	campaign.Plan.Stats = models.PlanStats{TotalSlots: 2, BucketCapacity: 1, CoverageComplete: buckets >= 2}
	campaign.Plan.Buckets = make([]models.Bucket, buckets)
	for i := range campaign.Plan.Buckets {
		campaign.Plan.Buckets[i] = models.Bucket{itemIDs[i%len(itemIDs)]}
	}
	return campaign
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundtrip() {
	ctx := context.Background()
	campaign := s.newCampaign(ctx, "code-roundtrip", 2)
	s.Require().NoError(s.store.Create(ctx, campaign))

	found, err := s.store.FindByCode(ctx, "code-roundtrip")
	s.Require().NoError(err)
	s.Equal(campaign.ID, found.ID)
	s.Equal(campaign.Items, found.Items)
	s.Equal(campaign.Plan.Stats, found.Plan.Stats)
	s.Require().Len(found.Plan.Buckets, 2)
	s.Equal(campaign.Plan.Buckets[0], found.Plan.Buckets[0])
	s.Equal(campaign.Plan.Buckets[1], found.Plan.Buckets[1])

	err = s.store.Create(ctx, s.newCampaign(ctx, "code-roundtrip", 2))
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.FindByCode(ctx, "no-such-code")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentClaimsNeverShareAnIndex() {
	ctx := context.Background()
	const limit = 10
	campaign := s.newCampaign(ctx, "code-claims", limit)
	s.Require().NoError(s.store.Create(ctx, campaign))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		indices []int
		errs    []error
	)
	for i := 0; i < limit*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			index, err := s.store.NextClaimIndex(ctx, campaign.ID, limit)
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
	s.Len(errs, limit*2)
	seen := make(map[int]bool, limit)
	for _, index := range indices {
		s.False(seen[index], "index %d handed out twice", index)
		seen[index] = true
	}
	for _, err := range errs {
		s.ErrorIs(err, sentinel.ErrExhausted)
	}
}

func (s *PostgresStoreSuite) TestNextClaimIndexUnknownCampaign() {
	_, err := s.store.NextClaimIndex(context.Background(), id.CampaignID(uuid.New()), 5)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestParticipantUniqueness() {
	ctx := context.Background()
	campaign := s.newCampaign(ctx, "code-participants", 2)
	s.Require().NoError(s.store.Create(ctx, campaign))

	participant := &models.Participant{
		ID:          id.ParticipantID(uuid.New()),
		CampaignID:  campaign.ID,
		IdentityKey: "alice@example.com",
		DisplayName: "Alice",
		BucketIndex: 0,
		CreatedAt:   s.now,
	}
	s.Require().NoError(s.store.CreateParticipant(ctx, participant))

	dup := &models.Participant{
		ID:          id.ParticipantID(uuid.New()),
		CampaignID:  campaign.ID,
		IdentityKey: "alice@example.com",
		BucketIndex: 1,
		CreatedAt:   s.now,
	}
	s.ErrorIs(s.store.CreateParticipant(ctx, dup), sentinel.ErrConflict)

	found, err := s.store.FindParticipantByIdentity(ctx, campaign.ID, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(participant.ID, found.ID)

	count, err := s.store.CountParticipants(ctx, campaign.ID)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()
	first := s.newCampaign(ctx, "code-first", 1)
	first.CreatedAt = s.now.Add(-time.Hour)
	second := s.newCampaign(ctx, "code-second", 1)
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))

	listed, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second.ID, listed[0].ID)
	s.Equal(first.ID, listed[1].ID)
}

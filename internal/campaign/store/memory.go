package store

import (
	"context"
	"sort"
	"sync"

	"quorum/internal/campaign/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// InMemory implements Store with maps guarded by a RWMutex. Used by unit
// tests and by deployments that run without Postgres.
type InMemory struct {
	mu           sync.RWMutex
	campaigns    map[id.CampaignID]*models.Campaign
	byCode       map[string]id.CampaignID
	participants map[id.ParticipantID]*models.Participant
	byIdentity   map[id.CampaignID]map[string]id.ParticipantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		campaigns:    make(map[id.CampaignID]*models.Campaign),
		byCode:       make(map[string]id.CampaignID),
		participants: make(map[id.ParticipantID]*models.Participant),
		byIdentity:   make(map[id.CampaignID]map[string]id.ParticipantID),
	}
}

func (s *InMemory) Create(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.campaigns[campaign.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byCode[campaign.AccessCode]; exists {
		return sentinel.ErrConflict
	}
	s.campaigns[campaign.ID] = cloneCampaign(campaign)
	s.byCode[campaign.AccessCode] = campaign.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, campaignID id.CampaignID) (*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaign, ok := s.campaigns[campaignID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCampaign(campaign), nil
}

func (s *InMemory) FindByCode(_ context.Context, accessCode string) (*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaignID, ok := s.byCode[accessCode]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCampaign(s.campaigns[campaignID]), nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Campaign, 0, len(s.campaigns))
	for _, campaign := range s.campaigns {
		out = append(out, cloneCampaign(campaign))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) NextClaimIndex(_ context.Context, campaignID id.CampaignID, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign, ok := s.campaigns[campaignID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	if campaign.ClaimCount >= limit {
		return 0, sentinel.ErrExhausted
	}
	index := campaign.ClaimCount
	campaign.ClaimCount++
	return index, nil
}

func (s *InMemory) CreateParticipant(_ context.Context, participant *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.participants[participant.ID]; exists {
		return sentinel.ErrConflict
	}
	identities, ok := s.byIdentity[participant.CampaignID]
	if !ok {
		identities = make(map[string]id.ParticipantID)
		s.byIdentity[participant.CampaignID] = identities
	}
	if _, exists := identities[participant.IdentityKey]; exists {
		return sentinel.ErrConflict
	}
	clone := *participant
	s.participants[participant.ID] = &clone
	identities[participant.IdentityKey] = participant.ID
	return nil
}

func (s *InMemory) FindParticipant(_ context.Context, participantID id.ParticipantID) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *participant
	return &clone, nil
}

func (s *InMemory) FindParticipantByIdentity(_ context.Context, campaignID id.CampaignID, identityKey string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participantID, ok := s.byIdentity[campaignID][identityKey]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.participants[participantID]
	return &clone, nil
}

func (s *InMemory) CountParticipants(_ context.Context, campaignID id.CampaignID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byIdentity[campaignID]), nil
}

// cloneCampaign deep-copies the slices so callers can never mutate the
// stored plan.
func cloneCampaign(campaign *models.Campaign) *models.Campaign {
	clone := *campaign
	clone.Items = append([]id.ItemID(nil), campaign.Items...)
	clone.Plan.Buckets = make([]models.Bucket, len(campaign.Plan.Buckets))
	for i, bucket := range campaign.Plan.Buckets {
		clone.Plan.Buckets[i] = append(models.Bucket(nil), bucket...)
	}
	return &clone
}

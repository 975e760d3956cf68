package store

import (
	"context"

	"quorum/internal/campaign/models"
	id "quorum/pkg/domain"
)

// Store persists campaigns and the participants that claimed their buckets.
// Implementations return pkg/platform/sentinel errors for factual failures;
// services translate them into domain errors.
type Store interface {
	// Create persists a campaign together with its frozen item list and
	// allocation plan. Returns sentinel.ErrConflict when the access code
	// is already taken.
	Create(ctx context.Context, campaign *models.Campaign) error
	FindByID(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error)
	FindByCode(ctx context.Context, accessCode string) (*models.Campaign, error)

	// List returns all campaigns ordered by creation time, newest first.
	List(ctx context.Context) ([]*models.Campaign, error)

	// NextClaimIndex atomically increments the campaign's claim counter and
	// returns the index it held before the increment. Returns
	// sentinel.ErrExhausted once the counter has reached limit. Two
	// concurrent callers can never observe the same index.
	NextClaimIndex(ctx context.Context, campaignID id.CampaignID, limit int) (int, error)

	// CreateParticipant persists a claimed slot. Returns
	// sentinel.ErrConflict when the identity key already claimed a bucket
	// in this campaign.
	CreateParticipant(ctx context.Context, participant *models.Participant) error
	FindParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Participant, error)
	FindParticipantByIdentity(ctx context.Context, campaignID id.CampaignID, identityKey string) (*models.Participant, error)
	CountParticipants(ctx context.Context, campaignID id.CampaignID) (int, error)
}

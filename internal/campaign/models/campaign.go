package models

import (
	"time"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

// Bucket is the ordered set of items pre-assigned to one participant slot.
// Buckets are immutable once the plan is finalized.
type Bucket []id.ItemID

// PlanStats summarizes an allocation plan.
type PlanStats struct {
	// TotalSlots is N*R: the number of judgements the campaign must collect.
	TotalSlots int `json:"total_slots"`
	// BucketCapacity is ceil(TotalSlots / expected participants): how many
	// items each participant will be asked to judge.
	BucketCapacity int `json:"bucket_capacity"`
	// CoverageComplete reports whether the plan reaches the redundancy
	// target for every item. An under-provisioned plan is still returned;
	// operators either raise the expected participant count or accept
	// partial coverage.
	CoverageComplete bool `json:"coverage_complete"`
}

// AllocationPlan is the precomputed, load-balanced partition of a campaign's
// items into per-slot buckets. Computed once per campaign and never mutated
// afterwards; recomputation would invalidate already-claimed slots.
type AllocationPlan struct {
	Buckets []Bucket  `json:"buckets"`
	Stats   PlanStats `json:"stats"`
}

// Campaign represents one distribution token: a frozen item list, a
// redundancy target, and the claim state participants consume.
//
// Invariants:
//   - Redundancy >= 1 and ExpectedParticipants >= 1
//   - Items is frozen at plan-computation time; later catalog withdrawals
//     never rewrite it
//   - The plan is computed exactly once, together with the campaign
//   - ClaimCount only grows, and only through the store's atomic claim
type Campaign struct {
	ID                   id.CampaignID `json:"id"`
	Name                 string        `json:"name"`
	AccessCode           string        `json:"access_code"`
	Items                []id.ItemID   `json:"items"`
	Redundancy           int           `json:"redundancy"`
	ExpectedParticipants int           `json:"expected_participants"`
	UsageCeiling         int           `json:"usage_ceiling"`
	ExpiresAt            time.Time     `json:"expires_at"`
	ClaimCount           int           `json:"claim_count"`
	Plan                 AllocationPlan `json:"plan"`
	CreatedAt            time.Time     `json:"created_at"`
}

// ClaimLimit is the number of buckets that may ever be claimed: the plan
// length capped by the usage ceiling.
func (c *Campaign) ClaimLimit() int {
	limit := len(c.Plan.Buckets)
	if c.UsageCeiling > 0 && c.UsageCeiling < limit {
		limit = c.UsageCeiling
	}
	return limit
}

// IsExpired reports whether the campaign's expiry instant has passed.
func (c *Campaign) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

func NewCampaign(campaignID id.CampaignID, name, accessCode string, items []id.ItemID, redundancy, expected, ceiling int, expiresAt, now time.Time) (*Campaign, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "campaign name cannot be empty")
	}
	if accessCode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "campaign access code cannot be empty")
	}
	if ceiling < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "usage ceiling cannot be negative")
	}
	return &Campaign{
		ID:                   campaignID,
		Name:                 name,
		AccessCode:           accessCode,
		Items:                items,
		Redundancy:           redundancy,
		ExpectedParticipants: expected,
		UsageCeiling:         ceiling,
		ExpiresAt:            expiresAt,
		CreatedAt:            now,
	}, nil
}

// Participant binds one caller identity to one claimed bucket.
// A participant is never re-assigned a different bucket.
type Participant struct {
	ID          id.ParticipantID `json:"id"`
	CampaignID  id.CampaignID    `json:"campaign_id"`
	IdentityKey string           `json:"identity_key"`
	DisplayName string           `json:"display_name"`
	BucketIndex int              `json:"bucket_index"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CampaignUsage pairs a campaign with its observed consumption, for
// operator listings.
type CampaignUsage struct {
	Campaign     *Campaign `json:"campaign"`
	Participants int       `json:"participants"`
	Completed    int       `json:"completed_assignments"`
	Assigned     int       `json:"total_assignments"`
}

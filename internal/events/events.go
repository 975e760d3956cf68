// Package events publishes scheduler lifecycle events to Kafka so downstream
// consumers (aggregation jobs, dashboards) can follow campaign progress
// without polling the API. Emission is fail-open: a broker outage never fails
// the business operation that produced the event.
package events

import (
	"context"
	"time"

	id "quorum/pkg/domain"
)

// Type names a lifecycle event.
type Type string

const (
	TypeCampaignCreated       Type = "campaign_created"
	TypeParticipantRegistered Type = "participant_registered"
	TypeJudgementRecorded     Type = "judgement_recorded"
	TypeItemWithdrawn         Type = "item_withdrawn"
)

// Event is one scheduler lifecycle record. CampaignID keys the Kafka
// partition so per-campaign ordering is preserved.
type Event struct {
	Type          Type             `json:"type"`
	CampaignID    id.CampaignID    `json:"campaign_id"`
	ParticipantID id.ParticipantID `json:"participant_id,omitempty"`
	ItemID        id.ItemID        `json:"item_id,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// Emitter publishes lifecycle events. Implementations must not block the
// caller on broker availability.
type Emitter interface {
	Emit(ctx context.Context, event Event)
	Close()
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Emit(context.Context, Event) {}
func (Noop) Close()                      {}

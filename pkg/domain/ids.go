// Package domain holds the typed identifiers and small domain primitives
// shared across modules. Typed IDs prevent cross-type assignment at compile
// time (a ParticipantID can never be passed where a CampaignID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "quorum/pkg/domain-errors"
)

// Typed identifiers for the scheduler's aggregates.
type (
	// CampaignID identifies one distribution campaign (plan + claim counter).
	CampaignID uuid.UUID

	// ParticipantID identifies a registered participant within a campaign.
	ParticipantID uuid.UUID

	// ItemID identifies a rateable item. ItemIDs are totally ordered by their
	// canonical string form, which the planner uses for tie-breaking.
	ItemID uuid.UUID

	// AssignmentID identifies a single (participant, item) assignment.
	AssignmentID uuid.UUID

	// JudgementID identifies a recorded judgement.
	JudgementID uuid.UUID
)

func (id CampaignID) String() string    { return uuid.UUID(id).String() }
func (id ParticipantID) String() string { return uuid.UUID(id).String() }
func (id ItemID) String() string        { return uuid.UUID(id).String() }
func (id AssignmentID) String() string  { return uuid.UUID(id).String() }
func (id JudgementID) String() string   { return uuid.UUID(id).String() }

func (id CampaignID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ParticipantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// Less reports whether id orders before other. The planner relies on this
// for deterministic tie-breaking when two items carry equal remaining need.
func (id ItemID) Less(other ItemID) bool {
	return id.String() < other.String()
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
// Rejecting at the trust boundary keeps malformed input out of stores.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseCampaignID validates and returns a CampaignID.
func ParseCampaignID(s string) (CampaignID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CampaignID{}, err
	}
	return CampaignID(u), nil
}

// ParseParticipantID validates and returns a ParticipantID.
func ParseParticipantID(s string) (ParticipantID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ParticipantID{}, err
	}
	return ParticipantID(u), nil
}

// ParseItemID validates and returns an ItemID.
func ParseItemID(s string) (ItemID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ItemID{}, err
	}
	return ItemID(u), nil
}

// ParseAssignmentID validates and returns an AssignmentID.
func ParseAssignmentID(s string) (AssignmentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AssignmentID{}, err
	}
	return AssignmentID(u), nil
}

// ParseJudgementID validates and returns a JudgementID.
func ParseJudgementID(s string) (JudgementID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return JudgementID{}, err
	}
	return JudgementID(u), nil
}

// Text marshalling keeps typed IDs as canonical UUID strings in JSON.

func (id CampaignID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ParticipantID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ItemID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id AssignmentID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id JudgementID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *CampaignID) UnmarshalText(b []byte) error {
	parsed, err := ParseCampaignID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ParticipantID) UnmarshalText(b []byte) error {
	parsed, err := ParseParticipantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ItemID) UnmarshalText(b []byte) error {
	parsed, err := ParseItemID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AssignmentID) UnmarshalText(b []byte) error {
	parsed, err := ParseAssignmentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *JudgementID) UnmarshalText(b []byte) error {
	parsed, err := ParseJudgementID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

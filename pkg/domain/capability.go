package domain

import "fmt"

// Capability tags a caller with what it is allowed to do. It travels
// explicitly with each request instead of being inferred from ambient
// session state, so every handler states which capability it requires.
type Capability string

const (
	// CapabilityOperator covers campaign definition, catalog management and
	// item withdrawal.
	CapabilityOperator Capability = "operator"

	// CapabilityParticipant covers retrieving assigned items and submitting
	// judgements for the caller's own assignments.
	CapabilityParticipant Capability = "participant"
)

// ParseCapability validates and returns a Capability.
func ParseCapability(s string) (Capability, error) {
	switch Capability(s) {
	case CapabilityOperator, CapabilityParticipant:
		return Capability(s), nil
	}
	return "", fmt.Errorf("unknown capability: %s", s)
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

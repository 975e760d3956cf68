// Package token mints and validates participant session tokens. A token is
// issued once at registration and carries the participant ID plus the
// participant capability; it never grants operator rights.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

// Claims represents the JWT claims for participant session tokens.
type Claims struct {
	ParticipantID string `json:"participant_id"`
	Capability    string `json:"capability"`
	jwt.RegisteredClaims
}

// Service handles session token creation and validation.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

func NewService(signingKey string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		ttl:        ttl,
	}
}

// Mint issues a signed session token for a participant.
func (s *Service) Mint(participantID id.ParticipantID, now time.Time) (string, error) {
	claims := Claims{
		ParticipantID: participantID.String(),
		Capability:    id.CapabilityParticipant.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "quorum",
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Validate parses and verifies a session token, returning the participant ID.
func (s *Service) Validate(tokenString string) (id.ParticipantID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.ParticipantID{}, dErrors.New(dErrors.CodeUnauthorized, "session token has expired")
		}
		return id.ParticipantID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return id.ParticipantID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	if claims.Capability != id.CapabilityParticipant.String() {
		return id.ParticipantID{}, dErrors.New(dErrors.CodeForbidden, "token does not carry the participant capability")
	}

	participantID, err := id.ParseParticipantID(claims.ParticipantID)
	if err != nil {
		return id.ParticipantID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token claims")
	}
	return participantID, nil
}

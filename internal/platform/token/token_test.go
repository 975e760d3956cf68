package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
)

func TestMintAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour)
	participantID := id.ParticipantID(uuid.New())

	signed, err := svc.Mint(participantID, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	got, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, participantID, got)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour)

	signed, err := svc.Mint(id.ParticipantID(uuid.New()), time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	signed, err := NewService("key-one", time.Hour).Mint(id.ParticipantID(uuid.New()), time.Now())
	require.NoError(t, err)

	_, err = NewService("key-two", time.Hour).Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour)

	_, err := svc.Validate("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsMissingCapability(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour)

	claims := Claims{
		ParticipantID: uuid.NewString(),
		Capability:    "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

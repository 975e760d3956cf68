package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorum/internal/platform/token"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/secrets"
	"quorum/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestMeta(t *testing.T) {
	var gotRequestID string
	var gotTime time.Time
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = requestcontext.RequestID(r.Context())
		gotTime = requestcontext.Now(r.Context())
	})

	t.Run("generates a request id when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequestMeta(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, gotRequestID)
		assert.Equal(t, gotRequestID, rec.Header().Get("X-Request-Id"))
		assert.False(t, gotTime.IsZero())
	})

	t.Run("propagates the caller's request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "trace-me-123")
		rec := httptest.NewRecorder()
		RequestMeta(inner).ServeHTTP(rec, req)

		assert.Equal(t, "trace-me-123", gotRequestID)
		assert.Equal(t, "trace-me-123", rec.Header().Get("X-Request-Id"))
	})
}

func TestRequireOperator(t *testing.T) {
	hash, err := secrets.Hash("operator-secret")
	require.NoError(t, err)

	var capability id.Capability
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capability = requestcontext.Capability(r.Context())
	})
	guard := RequireOperator(hash, discardLogger())(inner)

	t.Run("accepts the configured key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", "operator-secret")
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id.CapabilityOperator, capability)
	})

	t.Run("rejects a missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects everything when no hash is configured", func(t *testing.T) {
		open := RequireOperator("", discardLogger())(inner)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", "operator-secret")
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireParticipant(t *testing.T) {
	tokens := token.NewService("test-signing-key", time.Hour)
	participantID := id.ParticipantID(uuid.New())
	signed, err := tokens.Mint(participantID, time.Now())
	require.NoError(t, err)

	var gotParticipant id.ParticipantID
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParticipant = requestcontext.ParticipantID(r.Context())
	})
	guard := RequireParticipant(tokens, discardLogger())(inner)

	t.Run("accepts a valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, participantID, gotParticipant)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a non bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic "+signed)
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		forged, err := token.NewService("other-key", time.Hour).Mint(participantID, time.Now())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

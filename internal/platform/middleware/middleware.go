// Package middleware wires transport concerns onto the chi router: request
// metadata, and capability checks for operator and participant routes.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"quorum/internal/platform/token"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/httputil"
	"quorum/pkg/platform/secrets"
	"quorum/pkg/requestcontext"
)

// RequestMeta stamps every request with a request ID and a request-scoped
// time. Services read both through pkg/requestcontext, so expiry checks and
// audit timestamps agree within one request.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOperator verifies the X-API-Key header against the configured
// bcrypt hash and grants the operator capability.
func RequireOperator(operatorKeyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if operatorKeyHash == "" || key == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "operator API key required"))
				return
			}
			if err := secrets.Verify(key, operatorKeyHash); err != nil {
				logger.WarnContext(r.Context(), "operator key rejected",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid operator API key"))
				return
			}
			ctx := requestcontext.WithCapability(r.Context(), id.CapabilityOperator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParticipant validates the Bearer session token and injects the
// participant ID and capability into the request context.
func RequireParticipant(tokens *token.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session token required"))
				return
			}
			participantID, err := tokens.Validate(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "session token rejected",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			ctx := requestcontext.WithParticipantID(r.Context(), participantID)
			ctx = requestcontext.WithCapability(ctx, id.CapabilityParticipant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

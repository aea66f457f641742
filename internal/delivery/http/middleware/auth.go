package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"eventroster/internal/adapters/auth"
	h "eventroster/internal/delivery/http/helpers"
)

type contextKey string

const (
	participantIDKey contextKey = "participantID"
	communityIDKey   contextKey = "communityID"
)

// TokenVerifier validates a bearer token and returns the claims it carries.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// SetIdentity returns a context with the participant and community IDs set.
// Used by auth middleware and by tests that bypass it.
func SetIdentity(ctx context.Context, participantID, communityID string) context.Context {
	ctx = context.WithValue(ctx, participantIDKey, participantID)
	return context.WithValue(ctx, communityIDKey, communityID)
}

// ParticipantIDFromContext returns the authenticated participant ID, if present.
func ParticipantIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(participantIDKey).(string)
	return id, ok
}

// CommunityIDFromContext returns the authenticated community ID, if present.
func CommunityIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(communityIDKey).(string)
	return id, ok
}

// RequireMembership returns a wrapper that validates the Bearer token and sets
// the participant and community IDs in the request context. If the token is
// missing or invalid, it responds with 401 and does not call next.
func RequireMembership(verifier TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(header[len(prefix):])
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("token rejected", "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			r = r.WithContext(SetIdentity(r.Context(), claims.ParticipantID, claims.CommunityID))
			next(w, r)
		}
	}
}

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventroster/internal/adapters/auth"
	"eventroster/internal/delivery/http/helpers"
)

// fakeVerifier implements TokenVerifier for tests.
type fakeVerifier struct {
	claims auth.Claims
	err    error
}

func (f *fakeVerifier) Verify(_ string) (auth.Claims, error) {
	if f.err != nil {
		return auth.Claims{}, f.err
	}
	return f.claims, nil
}

func TestRequireMembership(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	member := auth.Claims{ParticipantID: "participant-123", CommunityID: "guild-1"}

	tests := []struct {
		name            string
		authHeader      string
		verifier        TokenVerifier
		wantStatus      int
		wantBodyCode    string
		nextCalled      bool
		wantParticipant string
		wantCommunity   string
	}{
		{
			name:            "valid token sets identity and calls next",
			authHeader:      "Bearer valid-token",
			verifier:        &fakeVerifier{claims: member},
			wantStatus:      http.StatusOK,
			nextCalled:      true,
			wantParticipant: "participant-123",
			wantCommunity:   "guild-1",
		},
		{
			name:         "missing authorization header",
			authHeader:   "",
			verifier:     &fakeVerifier{claims: member},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "wrong scheme",
			authHeader:   "Basic dXNlcjpwYXNz",
			verifier:     &fakeVerifier{claims: member},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "empty bearer token",
			authHeader:   "Bearer   ",
			verifier:     &fakeVerifier{claims: member},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "verifier rejects token",
			authHeader:   "Bearer expired-token",
			verifier:     &fakeVerifier{err: errors.New("token is expired")},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var gotParticipant, gotCommunity string
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotParticipant, _ = ParticipantIDFromContext(r.Context())
				gotCommunity, _ = CommunityIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}

			handler := RequireMembership(tt.verifier, logger)(next)
			req := httptest.NewRequest(http.MethodGet, "http://test/events", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.nextCalled, nextCalled)
			if tt.nextCalled {
				assert.Equal(t, tt.wantParticipant, gotParticipant)
				assert.Equal(t, tt.wantCommunity, gotCommunity)
				return
			}
			var body helpers.APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantBodyCode, body.Error.Code)
		})
	}
}

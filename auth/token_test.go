package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/libris-go/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            "unit-test-secret",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(nil, testAuthConfig())
	userID := uuid.New()

	resp, err := svc.generateTokens(userID, RoleLibrarian)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)

	claims, err := svc.validateToken(resp.AccessToken, tokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, RoleLibrarian, claims.Role)

	// The refresh token is not an access token.
	_, err = svc.validateToken(resp.RefreshToken, tokenTypeAccess)
	assert.Error(t, err)

	_, err = svc.validateToken(resp.RefreshToken, tokenTypeRefresh)
	assert.NoError(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewAuthService(nil, testAuthConfig())
	resp, err := svc.generateTokens(uuid.New(), RoleStudent)
	require.NoError(t, err)

	other := NewAuthService(nil, config.AuthConfig{
		JWTSecret:           "different-secret",
		AccessTokenDuration: time.Minute,
	})
	_, err = other.validateToken(resp.AccessToken, tokenTypeAccess)
	assert.Error(t, err)
}

func TestJWTMiddleware_RoleGate(t *testing.T) {
	cfg := testAuthConfig()
	svc := NewAuthService(nil, cfg)

	librarian, err := svc.generateTokens(uuid.New(), RoleLibrarian)
	require.NoError(t, err)
	student, err := svc.generateTokens(uuid.New(), RoleStudent)
	require.NoError(t, err)

	var reached bool
	handler := JWTMiddleware(&cfg)(RequireRole(RoleLibrarian)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusNoContent)
		})))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantReach  bool
	}{
		{name: "no_header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "malformed_header", authHeader: "Token abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage_token", authHeader: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
		{name: "refresh_token_rejected", authHeader: "Bearer " + librarian.RefreshToken, wantStatus: http.StatusUnauthorized},
		{name: "student_forbidden", authHeader: "Bearer " + student.AccessToken, wantStatus: http.StatusForbidden},
		{name: "librarian_allowed", authHeader: "Bearer " + librarian.AccessToken, wantStatus: http.StatusNoContent, wantReach: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(http.MethodGet, "/books", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantReach, reached)
		})
	}
}

func TestClaimsFromContext_Missing(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	id, ok := GetUserIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)
}

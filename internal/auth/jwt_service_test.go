package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T, clock func() time.Time) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret-test-secret-test-secret",
		Issuer:         "nmsportal-test",
		AccessTokenTTL: time.Minute,
		Clock:          clock,
	})
	require.NoError(t, err)
	return svc
}

func TestJWTRoundTrip(t *testing.T) {
	svc := newTestJWTService(t, nil)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:         "user-1",
		SessionID:      "session-1",
		OrganizationID: "org-1",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "session-1", claims.SessionID)
	require.Equal(t, "org-1", claims.OrganizationID)
	require.Equal(t, "nmsportal-test", claims.Issuer)
}

func TestJWTOrganizationClaimIsMandatory(t *testing.T) {
	svc := newTestJWTService(t, nil)

	_, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.Error(t, err)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := issued

	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:         "user-1",
		OrganizationID: "org-1",
	})
	require.NoError(t, err)

	current = issued.Add(2 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTRejectsForeignIssuer(t *testing.T) {
	other, err := NewJWTService(JWTConfig{
		Secret: "test-secret-test-secret-test-secret",
		Issuer: "someone-else",
	})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(AccessTokenInput{
		UserID:         "user-1",
		OrganizationID: "org-1",
	})
	require.NoError(t, err)

	svc := newTestJWTService(t, nil)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

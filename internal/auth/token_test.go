package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndIntrospect(t *testing.T) {
	ts := NewTokenService("a-test-secret", time.Hour, 24*time.Hour)

	pair, err := ts.Issue("admin", RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := ts.Introspect(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.PrincipalID)
	assert.Equal(t, RoleAdmin, claims.RoleID)
}

func TestTokenService_IntrospectRejectsRefreshToken(t *testing.T) {
	ts := NewTokenService("a-test-secret", time.Hour, 24*time.Hour)
	pair, err := ts.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	_, err = ts.Introspect(pair.RefreshToken)
	assert.Error(t, err)
}

func TestTokenService_RefreshRotatesToken(t *testing.T) {
	ts := NewTokenService("a-test-secret", time.Hour, 24*time.Hour)
	pair, err := ts.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	result, err := ts.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, result.Reuse)
	assert.NotEqual(t, pair.AccessToken, result.Pair.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, result.Pair.RefreshToken)
}

// TestTokenService_RefreshReuseDetected matches spec §4.2's token_reuse
// scenario: replaying an already-consumed refresh token must be denied.
func TestTokenService_RefreshReuseDetected(t *testing.T) {
	ts := NewTokenService("a-test-secret", time.Hour, 24*time.Hour)
	pair, err := ts.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	_, err = ts.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	result, err := ts.Refresh(pair.RefreshToken)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Reuse)
}

func TestTokenService_RevokeBlacklistsAccessToken(t *testing.T) {
	ts := NewTokenService("a-test-secret", time.Hour, 24*time.Hour)
	pair, err := ts.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	ts.Revoke(pair.AccessToken, pair.RefreshToken)

	_, err = ts.Introspect(pair.AccessToken)
	assert.Error(t, err)

	result, err := ts.Refresh(pair.RefreshToken)
	require.Error(t, err)
	assert.True(t, result.Reuse)
}

func TestTokenService_ExpiredAccessTokenRejected(t *testing.T) {
	ts := NewTokenService("a-test-secret", -time.Minute, 24*time.Hour)
	pair, err := ts.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	_, err = ts.Introspect(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenService_TamperedSignatureRejected(t *testing.T) {
	ts := NewTokenService("a-test-secret", time.Hour, 24*time.Hour)
	pair, err := ts.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	tampered := pair.AccessToken + "x"
	_, err = ts.Introspect(tampered)
	assert.Error(t, err)
}

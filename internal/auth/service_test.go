package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureyeoman/secureyeoman/internal/audit"
)

func newTestService(t *testing.T, password string) *Service {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)

	storage := audit.NewMemoryStorage()
	chain, err := audit.NewChain(context.Background(), storage, "test-signing-key-at-least-32-bytes!!", nil)
	require.NoError(t, err)

	roleStore := NewMemoryRoleStore()
	return NewService(Config{
		Tokens:        NewTokenService("test-secret", time.Hour, 24*time.Hour),
		RBAC:          NewRBAC(roleStore, chain, nil),
		Limiter:       NewInMemoryRateLimiter(DefaultAuthAttemptsRule()),
		Keys:          NewMemoryKeyStore(),
		Roles:         roleStore,
		Chain:         chain,
		AdminPassHash: hash,
	})
}

func TestService_LoginSuccess(t *testing.T) {
	svc := newTestService(t, "correct-horse-battery-staple")
	pair, err := svc.Login(context.Background(), "correct-horse-battery-staple", "203.0.113.1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestService_LoginWrongPasswordDenied(t *testing.T) {
	svc := newTestService(t, "correct-horse-battery-staple")
	_, err := svc.Login(context.Background(), "wrong", "203.0.113.1")
	assert.Error(t, err)
}

func TestService_LoginRateLimited(t *testing.T) {
	svc := newTestService(t, "correct-horse-battery-staple")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(ctx, "wrong", "203.0.113.9")
	}
	_, err := svc.Login(ctx, "correct-horse-battery-staple", "203.0.113.9")
	assert.Error(t, err)
}

func TestService_AuthenticateThenAuthorize(t *testing.T) {
	svc := newTestService(t, "correct-horse-battery-staple")
	ctx := context.Background()

	pair, err := svc.Login(ctx, "correct-horse-battery-staple", "203.0.113.1")
	require.NoError(t, err)

	principal, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, principal.RoleID)

	result, err := svc.Authorize(ctx, principal, PermissionCheck{Resource: "audit.read", Action: "read"})
	require.NoError(t, err)
	assert.True(t, result.Granted)
}

func TestService_CreateAndAuthenticateAPIKey(t *testing.T) {
	svc := newTestService(t, "correct-horse-battery-staple")
	ctx := context.Background()

	plaintext, rec, err := svc.CreateAPIKey(ctx, "ci-bot", RoleOperator)
	require.NoError(t, err)
	assert.NotEmpty(t, plaintext)

	principal, err := svc.AuthenticateAPIKey(ctx, plaintext)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, principal.ID)
	assert.Equal(t, RoleOperator, principal.RoleID)
}

func TestService_AuthenticateAPIKeyRejectsUnknown(t *testing.T) {
	svc := newTestService(t, "correct-horse-battery-staple")
	_, err := svc.AuthenticateAPIKey(context.Background(), "sk-sy-not-a-real-key")
	assert.Error(t, err)
}

// TestService_RefreshReuseRecordsAuditEvent matches spec §8's token-reuse
// scenario end to end via the Service wrapper.
func TestService_RefreshReuseRecordsAuditEvent(t *testing.T) {
	svc := newTestService(t, "correct-horse-battery-staple")
	ctx := context.Background()

	pair, err := svc.Login(ctx, "correct-horse-battery-staple", "203.0.113.1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Error(t, err)

	tail, err := svc.chain.Tail(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "token_reuse", tail[0].Event)
	assert.Equal(t, audit.LevelError, tail[0].Level)
}

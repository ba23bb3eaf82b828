package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureyeoman/secureyeoman/internal/app"
	"github.com/secureyeoman/secureyeoman/internal/config"
)

func testContainer(t *testing.T) *app.Container {
	t.Helper()
	c, err := app.Build(context.Background(), config.Options{
		ServiceName:              "secureyeoman-test",
		SigningKey:               "0123456789abcdef0123456789abcdef",
		TokenSecret:              "fedcba9876543210fedcba9876543210",
		AdminPassword:            "correct horse battery staple",
		AccessTokenTTL:           time.Hour,
		RefreshTokenTTL:          24 * time.Hour,
		AuthAttemptsMax:          5,
		AuthAttemptsWindow:       15 * time.Minute,
		MemoryFlagThreshold:      0.85,
		MemoryAutoDedupThreshold: 0.95,
		MemoryReplaceThreshold:   0.90,
		ConsolidationCron:        "0 3 * * *",
		ConsolidationBatchSize:   50,
		ConsolidationTimeout:     120 * time.Second,
		TaskStuckTimeout:         30 * time.Second,
		TaskRepetitionThreshold:  2,
		ExtensionWebhooksEnabled: true,
		ExtensionWebhookTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func adminToken(t *testing.T, c *app.Container) string {
	t.Helper()
	pair, err := c.Auth.Login(context.Background(), "correct horse battery staple", "127.0.0.1")
	require.NoError(t, err)
	return pair.AccessToken
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	c := testContainer(t)
	h := New(c).Handler()

	rr := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLogin_ThenAuthenticatedRequestSucceeds(t *testing.T) {
	c := testContainer(t)
	h := New(c).Handler()

	rr := doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"password": "correct horse battery staple",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var pair map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pair))
	token, _ := pair["accessToken"].(string)
	require.NotEmpty(t, token)

	audit := doJSON(t, h, http.MethodGet, "/api/v1/audit", token, nil)
	assert.Equal(t, http.StatusOK, audit.Code)
}

func TestLogin_WrongPasswordRejected(t *testing.T) {
	c := testContainer(t)
	h := New(c).Handler()

	rr := doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"password": "wrong",
	})
	assert.NotEqual(t, http.StatusOK, rr.Code)
}

func TestAuditQuery_WithoutCredentialsIsUnauthorized(t *testing.T) {
	c := testContainer(t)
	h := New(c).Handler()

	rr := doJSON(t, h, http.MethodGet, "/api/v1/audit", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSoulPersonalities_CreateListActivate(t *testing.T) {
	c := testContainer(t)
	h := New(c).Handler()
	token := adminToken(t, c)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/soul/personalities", token, map[string]interface{}{
		"name":         "ops-bot",
		"systemPrompt": "You are an ops assistant.",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	list := doJSON(t, h, http.MethodGet, "/api/v1/soul/personalities", token, nil)
	assert.Equal(t, http.StatusOK, list.Code)

	activate := doJSON(t, h, http.MethodPost, "/api/v1/soul/personalities/"+id+"/activate", token, nil)
	assert.Equal(t, http.StatusOK, activate.Code)

	active := doJSON(t, h, http.MethodGet, "/api/v1/soul/personality", token, nil)
	assert.Equal(t, http.StatusOK, active.Code)
}

func TestModelSwitch_RejectsUnknownModel(t *testing.T) {
	c := testContainer(t)
	h := New(c).Handler()
	token := adminToken(t, c)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/model/switch", token, map[string]string{
		"provider": "openai", "model": "does-not-exist",
	})
	assert.NotEqual(t, http.StatusOK, rr.Code)
}

func TestIntegrations_CreateUnknownPlatformRejected(t *testing.T) {
	c := testContainer(t)
	h := New(c).Handler()
	token := adminToken(t, c)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/integrations", token, map[string]interface{}{
		"platform": "carrier-pigeon",
	})
	assert.NotEqual(t, http.StatusCreated, rr.Code)
}

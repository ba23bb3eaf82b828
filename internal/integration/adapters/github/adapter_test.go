package github

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureyeoman/secureyeoman/internal/integration"
)

func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestAdapter_InitRequiresTokenAndRepo(t *testing.T) {
	a := New()
	err := a.Init(context.Background(), map[string]string{})
	assert.Error(t, err)
}

func TestAdapter_HandleWebhook_RejectsInvalidSignature(t *testing.T) {
	a := New()
	require.NoError(t, a.Init(context.Background(), map[string]string{
		"token": "tok", "repo": "acme/widgets", "webhookSecret": "s3cret",
	}))
	_, err := a.HandleWebhook(context.Background(), []byte(`{"action":"created"}`), "sha256=bad")
	assert.Error(t, err)
}

func TestAdapter_HandleWebhook_ParsesIssueComment(t *testing.T) {
	a := New()
	require.NoError(t, a.Init(context.Background(), map[string]string{
		"integrationId": "gh-1", "token": "tok", "repo": "acme/widgets", "webhookSecret": "s3cret",
	}))
	body := []byte(`{"action":"created","issue":{"number":42,"title":"Bug"},"comment":{"id":7,"body":"please fix","user":{"login":"alice"}}}`)
	msg, err := a.HandleWebhook(context.Background(), body, sign([]byte("s3cret"), body))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "please fix", msg.Text)
	assert.Equal(t, "acme/widgets#42", msg.ChatID)
	assert.Equal(t, "alice", msg.SenderID)
}

func TestAdapter_HandleWebhook_IgnoresNonCreatedActions(t *testing.T) {
	a := New()
	require.NoError(t, a.Init(context.Background(), map[string]string{
		"token": "tok", "repo": "acme/widgets", "webhookSecret": "s3cret",
	}))
	body := []byte(`{"action":"deleted","issue":{"number":1},"comment":{"body":"x"}}`)
	msg, err := a.HandleWebhook(context.Background(), body, sign([]byte("s3cret"), body))
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestAdapter_SendMessage_RequiresParsableChatID(t *testing.T) {
	a := New()
	require.NoError(t, a.Init(context.Background(), map[string]string{
		"token": "tok", "repo": "acme/widgets", "webhookSecret": "s3cret",
	}))
	err := a.SendMessage(context.Background(), integration.OutboundSend{ChatID: "no-hash-here", Text: "hi"})
	assert.Error(t, err)
}

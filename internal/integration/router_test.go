package integration

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureyeoman/secureyeoman/internal/task"
)

func mustBase64HMAC(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type fakeDispatcher struct {
	mu     sync.Mutex
	points []string
}

func (f *fakeDispatcher) Fire(_ context.Context, point string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, point)
}

type fakePersonality struct {
	active *ActivePersonality
	err    error
}

func (f *fakePersonality) ActivePersonality(context.Context) (*ActivePersonality, error) {
	return f.active, f.err
}

type fakeSubmitter struct {
	result    interface{}
	err       error
	submitted []task.ExecutionContext
}

func (f *fakeSubmitter) Submit(_ context.Context, t *task.Task, execCtx task.ExecutionContext) (*task.Task, error) {
	f.submitted = append(f.submitted, execCtx)
	if f.err != nil {
		return nil, f.err
	}
	cp := *t
	cp.Status = task.StatusCompleted
	cp.Result = f.result
	return &cp, nil
}

func (f *fakeSubmitter) OnComplete(func(ctx context.Context, t *task.Task)) {}

type fakeAdapter struct {
	mu   sync.Mutex
	sent []OutboundSend
}

func (a *fakeAdapter) Init(context.Context, map[string]string) error { return nil }
func (a *fakeAdapter) Start(context.Context) error                   { return nil }
func (a *fakeAdapter) Stop(context.Context) error                    { return nil }
func (a *fakeAdapter) SendMessage(_ context.Context, s OutboundSend) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, s)
	return nil
}
func (a *fakeAdapter) IsHealthy(context.Context) bool                                   { return true }
func (a *fakeAdapter) WebhookPath() string                                              { return "/hooks/fake" }
func (a *fakeAdapter) VerifyWebhook([]byte, string) bool                                { return true }
func (a *fakeAdapter) HandleWebhook(context.Context, []byte, string) (*UnifiedMessage, error) {
	return nil, nil
}
func (a *fakeAdapter) Platform() string   { return "fake" }
func (a *fakeAdapter) RateLimit() RateLimit { return RateLimit{PerSecond: 1000, Burst: 1000} }

func newTestRouter(t *testing.T, personality PersonalityResolver, submitter Submitter) (*Router, *fakeDispatcher, *InMemoryStore, *fakeAdapter) {
	t.Helper()
	store := NewInMemoryStore()
	dispatcher := &fakeDispatcher{}
	adapter := &fakeAdapter{}
	r := NewRouter(store, dispatcher, personality, submitter, nil, nil)
	r.RegisterAdapter("int-1", adapter)
	return r, dispatcher, store, adapter
}

func TestRouter_HandleInbound_FiresWebhookPersistsAndDeliversSynchronousResult(t *testing.T) {
	personality := &fakePersonality{active: &ActivePersonality{}}
	submitter := &fakeSubmitter{result: "42"}
	r, dispatcher, store, adapter := newTestRouter(t, personality, submitter)

	msg := UnifiedMessage{
		ID: "msg-1", IntegrationID: "int-1", Platform: "slack",
		SenderID: "u1", ChatID: "c1", Text: "hello", Timestamp: time.Now(),
	}
	r.HandleInbound(context.Background(), msg)

	require.Len(t, dispatcher.points, 1)
	assert.Equal(t, "message.inbound", dispatcher.points[0])

	saved := store.Messages()
	require.Len(t, saved, 1)
	assert.Equal(t, "hello", saved[0].Text)

	require.Len(t, submitter.submitted, 1)
	assert.Equal(t, "slack:u1", submitter.submitted[0].UserID)
	assert.Equal(t, "operator", submitter.submitted[0].Role)
	assert.Equal(t, "msg-1", submitter.submitted[0].CorrelationID)

	require.Len(t, adapter.sent, 1)
	assert.Equal(t, "42", adapter.sent[0].Text)
}

func TestRouter_HandleInbound_SkipsEmptyText(t *testing.T) {
	personality := &fakePersonality{active: &ActivePersonality{}}
	submitter := &fakeSubmitter{result: "ignored"}
	r, _, store, adapter := newTestRouter(t, personality, submitter)

	r.HandleInbound(context.Background(), UnifiedMessage{ID: "m1", IntegrationID: "int-1", Text: ""})

	require.Len(t, store.Messages(), 1)
	assert.Empty(t, submitter.submitted)
	assert.Empty(t, adapter.sent)
}

func TestRouter_HandleInbound_DropsWhenPersonalityExcludesIntegration(t *testing.T) {
	personality := &fakePersonality{active: &ActivePersonality{SelectedIntegrations: []string{"other-integration"}}}
	submitter := &fakeSubmitter{result: "x"}
	r, _, _, adapter := newTestRouter(t, personality, submitter)

	r.HandleInbound(context.Background(), UnifiedMessage{ID: "m1", IntegrationID: "int-1", Text: "hi"})

	assert.Empty(t, submitter.submitted)
	assert.Empty(t, adapter.sent)
}

func TestRouter_HandleInbound_AllowsWhenIntegrationInSelectedList(t *testing.T) {
	personality := &fakePersonality{active: &ActivePersonality{SelectedIntegrations: []string{"int-1", "int-2"}}}
	submitter := &fakeSubmitter{result: "ok"}
	r, _, _, adapter := newTestRouter(t, personality, submitter)

	r.HandleInbound(context.Background(), UnifiedMessage{ID: "m1", IntegrationID: "int-1", Text: "hi"})

	require.Len(t, adapter.sent, 1)
}

func TestRouter_HandleInbound_SubmitErrorSendsGenericFailureMessage(t *testing.T) {
	personality := &fakePersonality{active: &ActivePersonality{}}
	submitter := &fakeSubmitter{err: assertErr("boom")}
	r, _, _, adapter := newTestRouter(t, personality, submitter)

	r.HandleInbound(context.Background(), UnifiedMessage{ID: "m1", IntegrationID: "int-1", Text: "hi"})

	require.Len(t, adapter.sent, 1)
	assert.Equal(t, failureMessage, adapter.sent[0].Text)
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }

func TestVerifyHexHMAC_StripsPrefixAndMatchesConstantTime(t *testing.T) {
	secret := []byte("topsecret")
	body := []byte(`{"event":"push"}`)
	sig := hmacHex(secret, body)
	assert.True(t, VerifyHexHMAC(secret, body, "sha256="+sig, "sha256="))
	assert.False(t, VerifyHexHMAC(secret, body, "sha256=deadbeef", "sha256="))
}

func TestVerifyBase64HMAC_Matches(t *testing.T) {
	secret := []byte("linesecret")
	body := []byte(`{"events":[]}`)
	ok := VerifyBase64HMAC(secret, body, mustBase64HMAC(secret, body))
	assert.True(t, ok)
	assert.False(t, VerifyBase64HMAC(secret, body, "bogus"))
}

func TestVerifySharedSecret_ConstantTimeCompare(t *testing.T) {
	assert.True(t, VerifySharedSecret([]byte("token-123"), "token-123"))
	assert.False(t, VerifySharedSecret([]byte("token-123"), "token-124"))
}

// TestRouter_HandleInbound_DeliversRealExecutorCompletionAsynchronously
// exercises the router against a real task.Executor (not fakeSubmitter's
// artificially-synchronous completion) to confirm the async path actually
// relays a result: Submit always returns a StatusQueued task for the real
// executor, so delivery must come from the OnComplete callback.
func TestRouter_HandleInbound_DeliversRealExecutorCompletionAsynchronously(t *testing.T) {
	store := task.NewInMemoryStore(nil)
	executor := task.NewExecutor(store, nil, nil, task.Config{})
	executor.RegisterHandler("QUERY", func(_ context.Context, _ *task.Task, _ *task.Runtime) (interface{}, error) {
		return "async result", nil
	})

	personality := &fakePersonality{active: &ActivePersonality{}}
	r, _, _, adapter := newTestRouter(t, personality, executor)

	r.HandleInbound(context.Background(), UnifiedMessage{
		ID: "m1", IntegrationID: "int-1", Platform: "slack", SenderID: "u1", ChatID: "c1", Text: "hi",
	})

	executor.Wait()
	require.Eventually(t, func() bool {
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		return len(adapter.sent) == 1
	}, time.Second, 10*time.Millisecond)

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	assert.Equal(t, "async result", adapter.sent[0].Text)
}

func TestIntegration_RedactedMasksConfigValues(t *testing.T) {
	i := Integration{ID: "i1", Config: map[string]string{"token": "abc123"}}
	r := i.Redacted()
	assert.Equal(t, "••••••••", r.Config["token"])
	assert.Equal(t, "abc123", i.Config["token"])
}

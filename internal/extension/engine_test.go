package extension

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ObserveHandlersRunInPriorityOrderAndDoNotTransform(t *testing.T) {
	e := NewEngine(nil, false, nil)
	var order []string
	var mu sync.Mutex
	record := func(name string) HandlerFunc {
		return func(Context) Result {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return Result{}
		}
	}
	e.RegisterHook(PointTask, record("second"), 10, SemanticsObserve, "ext-a")
	e.RegisterHook(PointTask, record("first"), 1, SemanticsObserve, "ext-b")

	outcome := e.Emit(context.Background(), PointTask, "task.created", "payload", "corr-1")

	assert.Equal(t, []string{"first", "second"}, order)
	assert.False(t, outcome.Vetoed)
	assert.Equal(t, "payload", outcome.Transformed)
}

func TestEngine_TransformHandlerReplacesDataForLaterHandlers(t *testing.T) {
	e := NewEngine(nil, false, nil)
	var seenByLast interface{}
	e.RegisterHook(PointMessage, func(ctx Context) Result {
		return Result{Transformed: ctx.Data.(string) + "-transformed", HasTransform: true}
	}, 1, SemanticsTransform, "ext-a")
	e.RegisterHook(PointMessage, func(ctx Context) Result {
		seenByLast = ctx.Data
		return Result{}
	}, 2, SemanticsObserve, "ext-b")

	outcome := e.Emit(context.Background(), PointMessage, "message.inbound", "hello", "")

	assert.Equal(t, "hello-transformed", seenByLast)
	assert.Equal(t, "hello-transformed", outcome.Transformed)
}

func TestEngine_VetoStopsRemainingHandlers(t *testing.T) {
	e := NewEngine(nil, false, nil)
	var secondCalled bool
	e.RegisterHook(PointSecurity, func(Context) Result {
		return Result{Vetoed: true}
	}, 1, SemanticsVeto, "ext-a")
	e.RegisterHook(PointSecurity, func(Context) Result {
		secondCalled = true
		return Result{}
	}, 2, SemanticsObserve, "ext-b")

	outcome := e.Emit(context.Background(), PointSecurity, "security.check", nil, "")

	assert.True(t, outcome.Vetoed)
	assert.False(t, secondCalled)
}

func TestEngine_HandlerErrorIsCollectedAndLoopContinues(t *testing.T) {
	e := NewEngine(nil, false, nil)
	var secondCalled bool
	e.RegisterHook(PointTask, func(Context) Result {
		return Result{Err: assertErrExt("boom")}
	}, 1, SemanticsObserve, "ext-a")
	e.RegisterHook(PointTask, func(Context) Result {
		secondCalled = true
		return Result{}
	}, 2, SemanticsObserve, "ext-b")

	outcome := e.Emit(context.Background(), PointTask, "task.failed", nil, "")

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "ext-a", outcome.Errors[0].ExtensionID)
	assert.True(t, secondCalled)
}

func TestEngine_HandlerPanicIsRecoveredAsError(t *testing.T) {
	e := NewEngine(nil, false, nil)
	e.RegisterHook(PointAgent, func(Context) Result {
		panic("kaboom")
	}, 1, SemanticsObserve, "ext-a")

	outcome := e.Emit(context.Background(), PointAgent, "agent.step", nil, "")

	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0].Err.Error(), "kaboom")
}

func TestEngine_ReplacePlaceholderSwapsHandlerKeepingPriority(t *testing.T) {
	e := NewEngine(nil, false, nil)
	id := e.RegisterHook(PointSystem, placeholderHandler, 5, SemanticsObserve, "ext-a")

	var called bool
	ok := e.ReplacePlaceholder(id, func(Context) Result {
		called = true
		return Result{}
	})
	require.True(t, ok)

	e.Emit(context.Background(), PointSystem, "system.boot", nil, "")
	assert.True(t, called)

	regs := e.byPoint[PointSystem]
	require.Len(t, regs, 1)
	assert.Equal(t, id, regs[0].ID)
	assert.Equal(t, 5, regs[0].Priority)
}

type assertErrExt string

func (e assertErrExt) Error() string { return string(e) }

func TestWebhookDispatcher_SignsPayloadAndDeliversMatchingHookPoint(t *testing.T) {
	var gotSignature, gotEvent string
	var gotBody []byte
	done := make(chan struct{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Friday-Signature")
		gotEvent = r.Header.Get("X-Friday-Event")
		buf, _ := io.ReadAll(r.Body)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
		done <- struct{}{}
	}))
	defer server.Close()

	dispatcher := NewWebhookDispatcher(2*time.Second, nil)
	dispatcher.Register(Webhook{ID: "wh-1", URL: server.URL, Secret: "sekret", HookPoints: []Point{PointMessage}, Enabled: true})

	dispatcher.DispatchAll(context.Background(), PointMessage, "message.inbound", map[string]string{"text": "hi"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered in time")
	}

	assert.Equal(t, "extension-hook", gotEvent)
	require.NotEmpty(t, gotSignature)

	var payload webhookPayload
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	mac := hmac.New(sha256.New, []byte("sekret"))
	mac.Write(gotBody)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, gotSignature)
	assert.Equal(t, "message.inbound", payload.Event)
}

func TestWebhookDispatcher_SkipsNonMatchingHookPoints(t *testing.T) {
	called := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dispatcher := NewWebhookDispatcher(time.Second, nil)
	dispatcher.Register(Webhook{ID: "wh-1", URL: server.URL, HookPoints: []Point{PointTask}, Enabled: true})

	dispatcher.DispatchAll(context.Background(), PointMessage, "message.inbound", nil)

	select {
	case <-called:
		t.Fatal("webhook should not have been called for a non-matching point")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBootstrap_RematerializesPlaceholdersFromStore(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.CreateExtension(context.Background(), &ExtensionRecord{
		ID: "ext-1", Name: "sample", Enabled: true,
		Hooks: []HookBinding{{RegistrationID: "reg-1", Point: PointTask, Priority: 1, Semantics: SemanticsObserve}},
	}))

	e := NewEngine(nil, false, nil)
	require.NoError(t, Bootstrap(context.Background(), e, store))

	outcome := e.Emit(context.Background(), PointTask, "task.created", nil, "")
	assert.Empty(t, outcome.Errors)

	replaced := e.ReplacePlaceholder("reg-1", func(Context) Result { return Result{} })
	assert.True(t, replaced)
}

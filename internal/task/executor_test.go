package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForTerminal(t *testing.T, exec *Executor, id string) *Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tk, err := exec.Get(context.Background(), id)
		require.NoError(t, err)
		if tk.Status.IsTerminal() {
			return tk
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task did not reach a terminal state in time")
	return nil
}

func TestExecutor_SubmitRunsHandlerToCompletion(t *testing.T) {
	store := NewInMemoryStore(nil)
	exec := NewExecutor(store, nil, nil, Config{})
	exec.RegisterHandler("QUERY", func(_ context.Context, t *Task, rt *Runtime) (interface{}, error) {
		return "answer: " + t.Input["text"].(string), nil
	})

	submitted, err := exec.Submit(context.Background(), &Task{Type: "QUERY", Input: map[string]interface{}{"text": "hello"}}, ExecutionContext{UserID: "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, submitted.ID)

	final := waitForTerminal(t, exec, submitted.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, "answer: hello", final.Result)
}

func TestExecutor_HandlerErrorMarksFailed(t *testing.T) {
	store := NewInMemoryStore(nil)
	exec := NewExecutor(store, nil, nil, Config{})
	exec.RegisterHandler("QUERY", func(_ context.Context, t *Task, rt *Runtime) (interface{}, error) {
		return nil, errors.New("boom")
	})

	submitted, err := exec.Submit(context.Background(), &Task{Type: "QUERY"}, ExecutionContext{})
	require.NoError(t, err)

	final := waitForTerminal(t, exec, submitted.ID)
	assert.Equal(t, StatusFailed, final.Status)
	require.NotNil(t, final.Err)
	assert.Equal(t, ErrCodeHandlerError, final.Err.Code)
}

func TestExecutor_PanicRecoveredAsFailure(t *testing.T) {
	store := NewInMemoryStore(nil)
	exec := NewExecutor(store, nil, nil, Config{})
	exec.RegisterHandler("QUERY", func(_ context.Context, t *Task, rt *Runtime) (interface{}, error) {
		panic("unexpected")
	})

	submitted, err := exec.Submit(context.Background(), &Task{Type: "QUERY"}, ExecutionContext{})
	require.NoError(t, err)

	final := waitForTerminal(t, exec, submitted.ID)
	assert.Equal(t, StatusFailed, final.Status)
}

func TestExecutor_UnknownTaskTypeFailsImmediately(t *testing.T) {
	store := NewInMemoryStore(nil)
	exec := NewExecutor(store, nil, nil, Config{})

	submitted, err := exec.Submit(context.Background(), &Task{Type: "UNREGISTERED"}, ExecutionContext{})
	require.NoError(t, err)

	final := waitForTerminal(t, exec, submitted.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, ErrCodeInvalidInput, final.Err.Code)
}

func TestExecutor_CancelRejectsTerminalTask(t *testing.T) {
	store := NewInMemoryStore(nil)
	exec := NewExecutor(store, nil, nil, Config{})
	exec.RegisterHandler("QUERY", func(_ context.Context, t *Task, rt *Runtime) (interface{}, error) {
		return "done", nil
	})

	submitted, err := exec.Submit(context.Background(), &Task{Type: "QUERY"}, ExecutionContext{})
	require.NoError(t, err)
	waitForTerminal(t, exec, submitted.ID)

	err = exec.Cancel(context.Background(), submitted.ID)
	assert.Error(t, err)
}

func TestExecutor_HandlerCanUseLoopGuard(t *testing.T) {
	store := NewInMemoryStore(nil)
	exec := NewExecutor(store, nil, nil, Config{RepetitionThreshold: 2})
	exec.RegisterHandler("QUERY", func(_ context.Context, t *Task, rt *Runtime) (interface{}, error) {
		require.NoError(t, rt.Guard.RecordToolCall("search", map[string]interface{}{"q": "x"}, "error"))
		require.NoError(t, rt.Guard.RecordToolCall("search", map[string]interface{}{"q": "x"}, "error"))
		reason := rt.Guard.CheckStuck()
		require.NotNil(t, reason)
		return BuildRecoveryPrompt(reason, rt.Guard.History()), nil
	})

	submitted, err := exec.Submit(context.Background(), &Task{Type: "QUERY"}, ExecutionContext{})
	require.NoError(t, err)

	final := waitForTerminal(t, exec, submitted.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Contains(t, final.Result, "looping")
	require.Len(t, final.History, 2)
}

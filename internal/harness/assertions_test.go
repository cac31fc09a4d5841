package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
	"github.com/roach88/labrun/internal/store"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Command: LoadingCommand, Target: "deck", Op: "loadModule", Args: map[string]any{"model": "magneticModuleV2", "slot": "1"}},
		{Seq: 2, Command: 0, Target: "magneticModuleV2@1", Op: "engage", Args: map[string]any{"heightFromBase": 5.0}},
		{Seq: 3, Command: 1, Target: "deck", Op: "delay", Args: map[string]any{"seconds": 30.0, "message": "settle"}},
		{Seq: 4, Command: 2, Target: "deck", Op: "delay", Args: map[string]any{"seconds": 10.0, "message": ""}},
	}
}

func TestAssertCallContains_Found(t *testing.T) {
	err := assertCallContains(sampleTrace(), Assertion{
		Type: AssertCallContains,
		Call: "magneticModuleV2@1.engage",
		Args: map[string]any{"heightFromBase": 5},
	})
	assert.NoError(t, err)
}

func TestAssertCallContains_MatchesAnyOccurrence(t *testing.T) {
	err := assertCallContains(sampleTrace(), Assertion{
		Type: AssertCallContains,
		Call: "deck.delay",
		Args: map[string]any{"seconds": 10},
	})
	assert.NoError(t, err)
}

func TestAssertCallContains_NoArgsMatchesCall(t *testing.T) {
	err := assertCallContains(sampleTrace(), Assertion{Type: AssertCallContains, Call: "deck.loadModule"})
	assert.NoError(t, err)
}

func TestAssertCallContains_NotFound(t *testing.T) {
	err := assertCallContains(sampleTrace(), Assertion{
		Type: AssertCallContains,
		Call: "magneticModuleV2@1.engage",
		Args: map[string]any{"heightFromBase": 6},
	})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertCallContains, ae.Type)
	assert.Equal(t, "not found in trace", ae.Actual)
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), "[2] cmd 0 magneticModuleV2@1.engage")
}

func TestAssertCallContains_MissingArgKey(t *testing.T) {
	err := assertCallContains(sampleTrace(), Assertion{
		Type: AssertCallContains,
		Call: "deck.delay",
		Args: map[string]any{"minutes": 1},
	})
	assert.Error(t, err)
}

func TestAssertCallOrder(t *testing.T) {
	tests := []struct {
		name    string
		calls   []string
		wantErr string
	}{
		{"in order", []string{"deck.loadModule", "magneticModuleV2@1.engage", "deck.delay"}, ""},
		{"gaps allowed", []string{"deck.loadModule", "deck.delay"}, ""},
		{"wrong order", []string{"deck.delay", "magneticModuleV2@1.engage"}, "should be before"},
		{"missing call", []string{"deck.loadModule", "deck.pause"}, "missing call: deck.pause"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertCallOrder(sampleTrace(), Assertion{Type: AssertCallOrder, Calls: tt.calls})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertCallCount(t *testing.T) {
	assert.NoError(t, assertCallCount(sampleTrace(), Assertion{Call: "deck.delay", Count: 2}))
	assert.NoError(t, assertCallCount(sampleTrace(), Assertion{Call: "deck.pause", Count: 0}))

	err := assertCallCount(sampleTrace(), Assertion{Call: "deck.delay", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 1 occurrences of deck.delay")
	assert.Contains(t, err.Error(), "Actual: 2 occurrences")
}

func TestMatchArgs(t *testing.T) {
	actual := map[string]any{
		"steps":       []any{map[string]any{"temperature": 95.0, "hold_time_seconds": 30.0}},
		"repetitions": 1,
	}

	assert.True(t, matchArgs(actual, nil))
	assert.True(t, matchArgs(actual, map[string]any{"repetitions": 1.0}))
	assert.True(t, matchArgs(actual, map[string]any{
		"steps": []any{map[string]any{"hold_time_seconds": 30, "temperature": 95}},
	}))
	assert.False(t, matchArgs(actual, map[string]any{"repetitions": "1"}))
	assert.False(t, matchArgs(actual, map[string]any{"steps": []any{}}))
}

// journaledRun writes a two-command run whose second command failed.
func journaledRun(t *testing.T) *AssertionContext {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	doc := &protocol.Document{
		SchemaVersion: 4,
		Commands: []protocol.Command{
			{Type: "delay", Params: protocol.Object{"wait": protocol.Number(1)}},
			{Type: "shake", Params: protocol.Object{}},
		},
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = st.BeginRun(ctx, "r1", doc, start)
	require.NoError(t, err)

	failure := dispatch.NewUnsupportedError(1, "shake")
	require.NoError(t, st.RecordCommandStarted(ctx, "r1", 0, doc.Commands[0]))
	require.NoError(t, st.RecordCommandFinished(ctx, "r1", 0, nil))
	require.NoError(t, st.RecordCommandStarted(ctx, "r1", 1, doc.Commands[1]))
	require.NoError(t, st.RecordCommandFinished(ctx, "r1", 1, failure))
	require.NoError(t, st.FinishRun(ctx, "r1", start.Add(time.Second), failure))

	return &AssertionContext{Store: st, Ctx: ctx, RunID: "r1"}
}

func TestAssertJournalStatus(t *testing.T) {
	actx := journaledRun(t)
	seq := func(n int) *int { return &n }

	tests := []struct {
		name    string
		a       Assertion
		wantErr string
	}{
		{"run failed", Assertion{Status: "failed"}, ""},
		{"run not succeeded", Assertion{Status: "succeeded"}, "run status failed"},
		{"first command", Assertion{Seq: seq(0), Status: "succeeded"}, ""},
		{"second command", Assertion{Seq: seq(1), Status: "failed"}, ""},
		{"wrong command status", Assertion{Seq: seq(1), Status: "succeeded"}, "command 1 status failed"},
		{"never journaled", Assertion{Seq: seq(2), Status: "not journaled"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.a.Type = AssertJournalStatus
			err := assertJournalStatus(actx, tt.a)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertJournalStatus_UnknownRun(t *testing.T) {
	actx := journaledRun(t)
	actx.RunID = "missing"
	err := assertJournalStatus(actx, Assertion{Type: AssertJournalStatus, Status: "failed"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertCallCount, Call: "deck.delay", Count: 2},
		{Type: AssertCallCount, Call: "deck.delay", Count: 3},
		{Type: AssertJournalStatus, Status: "succeeded"},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "3 occurrences of deck.delay")
	assert.Contains(t, errs[1], "journal_status requires a journal")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}

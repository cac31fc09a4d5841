package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
)

func TestBeginRun_StoresCanonicalDocument(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	doc := createTestDocument("pcr setup", 3)

	run, err := s.BeginRun(ctx, "run-1", doc, at(0))
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)
	assert.Equal(t, 3, run.CommandCount)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "pcr setup", got.ProtocolName)
	assert.Equal(t, run.DocumentHash, got.DocumentHash)
	assert.Equal(t, protocol.EngineVersion, got.EngineVersion)
	assert.Equal(t, at(0), got.StartedAt)
	assert.True(t, got.FinishedAt.IsZero())
	assert.Equal(t, -1, got.HaltedAt)

	stored, err := s.ReadDocument(ctx, "run-1")
	require.NoError(t, err)
	hash, err := protocol.DocumentHash(stored)
	require.NoError(t, err)
	assert.Equal(t, run.DocumentHash, hash, "stored document must hash like the original")
}

func TestBeginRun_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	doc := createTestDocument("p", 0)

	_, err := s.BeginRun(ctx, "run-1", doc, at(0))
	require.NoError(t, err)
	_, err = s.BeginRun(ctx, "run-1", doc, at(1))
	assert.Error(t, err)
}

func TestFinishRun_RecordsHaltingCommand(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	_, err := s.BeginRun(ctx, "run-1", createTestDocument("p", 3), at(0))
	require.NoError(t, err)

	require.NoError(t, s.FinishRun(ctx, "run-1", at(5), dispatch.NewUnsupportedError(1, "transfer")))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
	assert.Equal(t, "UNSUPPORTED_COMMAND", run.ErrorCode)
	assert.Contains(t, run.ErrorMessage, "transfer")
	assert.Equal(t, 1, run.HaltedAt)
	assert.Equal(t, at(5), run.FinishedAt)
}

func TestFinishRun_PlainErrorHasNoCode(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	_, err := s.BeginRun(ctx, "run-1", createTestDocument("p", 1), at(0))
	require.NoError(t, err)

	require.NoError(t, s.FinishRun(ctx, "run-1", at(1), errors.New("operator abort")))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
	assert.Empty(t, run.ErrorCode)
	assert.Equal(t, "operator abort", run.ErrorMessage)
	assert.Equal(t, -1, run.HaltedAt)
}

func TestFinishRun_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), "ghost", at(0), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ReadDocument(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	for i, id := range []string{"a", "b", "c"} {
		_, err := s.BeginRun(ctx, id, createTestDocument(id, 0), at(i))
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestJournal_RecordsEventsInOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	doc := createTestDocument("p", 3)
	_, err := s.BeginRun(ctx, "run-1", doc, at(0))
	require.NoError(t, err)

	j := NewJournal(ctx, s, "run-1")
	j.CommandStarted(0, doc.Commands[0])
	j.CommandFinished(0, doc.Commands[0], nil)
	j.CommandStarted(1, doc.Commands[1])
	j.CommandFinished(1, doc.Commands[1], dispatch.NewHardwareError(1, "delay", errors.New("estop")))
	require.NoError(t, j.Err())

	events, err := s.ReadCommandEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, 0, events[0].Seq)
	assert.Equal(t, EventSucceeded, events[0].Status)
	assert.Equal(t, `{"wait":0}`, events[0].Params)

	want, err := protocol.ParamsHash(doc.Commands[1].Params)
	require.NoError(t, err)
	assert.Equal(t, want, events[1].ParamsHash)
	assert.Equal(t, EventFailed, events[1].Status)
	assert.Equal(t, "HARDWARE_FAILURE", events[1].ErrorCode)
	assert.Contains(t, events[1].ErrorMessage, "estop")
}

func TestJournal_KeepsFirstError(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	j := NewJournal(ctx, s, "no-such-run")

	j.CommandFinished(0, protocol.Command{Type: "delay"}, nil)
	j.CommandFinished(1, protocol.Command{Type: "delay"}, nil)

	require.Error(t, j.Err())
	assert.Contains(t, j.Err().Error(), "finish command 0")
}

func TestJournal_ForeignKeyEnforced(t *testing.T) {
	s := createTestStore(t)
	j := NewJournal(context.Background(), s, "no-such-run")

	j.CommandStarted(0, protocol.Command{Type: "delay"})
	assert.Error(t, j.Err())
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

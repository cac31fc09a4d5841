package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
)

// RunIDGenerator produces run ids.
// Implemented by UUIDv7Generator (production) and testutil.FixedRunIDGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Journal is a dispatch.Observer that writes command events for one run.
//
// Observers cannot fail dispatch, so the first write error is kept and
// reported by Err; later events are still attempted.
type Journal struct {
	store *Store
	runID string
	ctx   context.Context

	mu  sync.Mutex
	err error
}

var _ dispatch.Observer = (*Journal)(nil)

// NewJournal returns an observer writing events for runID. ctx bounds every
// write.
func NewJournal(ctx context.Context, s *Store, runID string) *Journal {
	return &Journal{store: s, runID: runID, ctx: ctx}
}

// RunID returns the run the journal writes to.
func (j *Journal) RunID() string {
	return j.runID
}

// CommandStarted implements dispatch.Observer.
func (j *Journal) CommandStarted(index int, cmd protocol.Command) {
	j.keep(j.store.RecordCommandStarted(j.ctx, j.runID, index, cmd))
}

// CommandFinished implements dispatch.Observer.
func (j *Journal) CommandFinished(index int, _ protocol.Command, err error) {
	j.keep(j.store.RecordCommandFinished(j.ctx, j.runID, index, err))
}

// Err returns the first write error, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Journal) keep(err error) {
	if err == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err == nil {
		j.err = err
	}
}

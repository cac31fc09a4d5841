package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
	"github.com/roach88/labrun/internal/store"
)

// Engine runs protocol documents and journals every run.
//
// Each Execute call is one run: a run row is opened, the dispatcher runs
// the document with a journal observer attached, and the run row is closed
// with the dispatch outcome. The journal is written even when ctx is
// cancelled so an interrupted run still records where it stopped.
//
// Thread-safety: an Engine holds no per-run state and may execute runs
// from several goroutines, provided each uses its own deck.
type Engine struct {
	store     *store.Store
	ids       store.RunIDGenerator
	now       func() time.Time
	logger    *slog.Logger
	observers []dispatch.Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(ids store.RunIDGenerator) Option {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger passed to the dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver adds an observer to every run, after the journal.
func WithObserver(o dispatch.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// New creates an Engine writing to s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		ids:    store.UUIDv7Generator{},
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the journal the engine writes to.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Outcome is the result of one run.
type Outcome struct {
	// Run is the journaled run row after it was closed.
	Run store.Run

	// Err is the dispatch error that halted the run, or nil.
	Err error
}

// Execute runs doc on deck, classifying commands with registry.
//
// The returned error reports journal failures only; a halted run returns
// a nil error and an Outcome whose Err is the dispatch error.
func (e *Engine) Execute(ctx context.Context, deck hardware.Deck, registry *dispatch.Registry, doc *protocol.Document) (*Outcome, error) {
	runID := e.ids.Generate()
	journalCtx := context.WithoutCancel(ctx)

	if _, err := e.store.BeginRun(journalCtx, runID, doc, e.now()); err != nil {
		return nil, &JournalError{RunID: runID, Op: "begin run", Err: err}
	}
	journal := store.NewJournal(journalCtx, e.store, runID)

	opts := []dispatch.Option{
		dispatch.WithLogger(e.logger.With("run_id", runID)),
		dispatch.WithObserver(journal),
	}
	for _, o := range e.observers {
		opts = append(opts, dispatch.WithObserver(o))
	}
	runErr := dispatch.New(deck, registry, opts...).Run(ctx, doc)

	if err := e.store.FinishRun(journalCtx, runID, e.now(), runErr); err != nil {
		return nil, &JournalError{RunID: runID, Op: "finish run", Err: err}
	}
	if err := journal.Err(); err != nil {
		return nil, &JournalError{RunID: runID, Op: "record command", Err: err}
	}

	run, err := e.store.ReadRun(journalCtx, runID)
	if err != nil {
		return nil, &JournalError{RunID: runID, Op: "read run", Err: err}
	}

	e.logger.Info("run finished",
		"run_id", runID,
		"protocol", run.ProtocolName,
		"status", string(run.Status),
		"code", run.ErrorCode,
	)
	return &Outcome{Run: run, Err: runErr}, nil
}

// describe renders a run's outcome for comparisons and logs.
func describe(run store.Run) string {
	if run.Status != store.RunFailed {
		return string(run.Status)
	}
	return fmt.Sprintf("%s %s at %d", run.Status, run.ErrorCode, run.HaltedAt)
}

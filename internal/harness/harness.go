package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"github.com/roach88/labrun/internal/commandset"
	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/engine"
	"github.com/roach88/labrun/internal/hardware/sim"
	"github.com/roach88/labrun/internal/protocol"
	"github.com/roach88/labrun/internal/store"
	"github.com/roach88/labrun/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal on a fresh simulated deck
// that never sleeps. The run id is the scenario name and timestamps come
// from a deterministic clock, so identical scenarios produce identical
// traces and journals.
//
// Execution flow:
//  1. Load the protocol document
//  2. Build the registry for its schema version
//  3. Inject faults into the simulator
//  4. Execute through the engine with a journal
//  5. Check the expect clause and assertions
//
// An error is returned only when the scenario cannot be executed at all; a
// run that halts is a normal result.
func Run(scenario *Scenario) (*Result, error) {
	doc, err := scenario.LoadDocument()
	if err != nil {
		return nil, fmt.Errorf("load protocol: %w", err)
	}
	registry, err := commandset.ForDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	deck := sim.NewDeck()
	for _, f := range scenario.Faults {
		deck.Log().FailOn(f.Target, f.Op, errors.New(f.Error))
	}

	marks := &commandMarks{log: deck.Log()}
	clock := testutil.NewDeterministicClock(0)
	eng := engine.New(st,
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.Name)),
		engine.WithClock(clock.Now),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithObserver(marks),
	)

	ctx := context.Background()
	outcome, err := eng.Execute(ctx, deck, registry, doc)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.RunID = outcome.Run.ID
	result.Status = string(outcome.Run.Status)
	result.ErrorCode = outcome.Run.ErrorCode
	result.HaltedAt = outcome.Run.HaltedAt
	result.Trace = marks.trace(deck.Log().Calls())

	checkExpectation(result, scenario.Expect, outcome.Err)

	actx := &AssertionContext{Store: st, Ctx: ctx, RunID: outcome.Run.ID}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// checkExpectation compares the run outcome with the expect clause.
func checkExpectation(result *Result, expect Expectation, runErr error) {
	switch {
	case expect.Error == "" && runErr != nil:
		result.AddError(fmt.Sprintf("expected success, got %v", runErr))
	case expect.Error != "" && runErr == nil:
		result.AddError(fmt.Sprintf("expected %s, run succeeded", expect.Error))
	case expect.Error != "" && string(dispatch.CodeOf(runErr)) != expect.Error:
		result.AddError(fmt.Sprintf("expected %s, got %v", expect.Error, runErr))
	}

	if expect.HaltedAt != nil && *expect.HaltedAt != result.HaltedAt {
		result.AddError(fmt.Sprintf("expected halt at command %d, halted at %d", *expect.HaltedAt, result.HaltedAt))
	}

	if expect.Calls != nil {
		got := result.CommandCalls()
		want := make([]string, len(expect.Calls))
		for i, c := range expect.Calls {
			want[i] = c.String()
		}
		have := make([]string, len(got))
		for i, ev := range got {
			have[i] = ev.Call()
		}
		if !slices.Equal(want, have) {
			result.AddError(fmt.Sprintf("expected calls %v, got %v", want, have))
		}
	}
}

// commandMarks is a dispatch.Observer that notes where each command's
// calls begin in the call log.
type commandMarks struct {
	log    *sim.CallLog
	starts []int // starts[i] is the call count when command i started
}

func (m *commandMarks) CommandStarted(index int, _ protocol.Command) {
	for len(m.starts) <= index {
		m.starts = append(m.starts, len(m.log.Calls()))
	}
}

func (m *commandMarks) CommandFinished(int, protocol.Command, error) {}

// trace attributes each call to the last command started before it.
func (m *commandMarks) trace(calls []sim.Call) []TraceEvent {
	out := make([]TraceEvent, len(calls))
	cmd := LoadingCommand
	for i, c := range calls {
		for cmd+1 < len(m.starts) && m.starts[cmd+1] <= i {
			cmd++
		}
		out[i] = TraceEvent{
			Seq:     i + 1,
			Command: cmd,
			Target:  c.Target,
			Op:      c.Op,
			Args:    c.Args,
		}
	}
	return out
}

// String summarizes the result for CLI output.
func (r *Result) String() string {
	status := r.Status
	if r.ErrorCode != "" {
		status += " " + r.ErrorCode + " at " + strconv.Itoa(r.HaltedAt)
	}
	return fmt.Sprintf("%s: %d calls, %s", r.RunID, len(r.Trace), status)
}

package engine

import (
	"context"
	"fmt"

	"github.com/roach88/labrun/internal/commandset"
	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
	"github.com/roach88/labrun/internal/store"
)

// Difference is one field where a replayed run diverged from the original.
type Difference struct {
	Field    string `json:"field"`
	Original string `json:"original"`
	Replayed string `json:"replayed"`
}

// String renders the difference for CLI output.
func (d Difference) String() string {
	return fmt.Sprintf("%s: original %q, replayed %q", d.Field, d.Original, d.Replayed)
}

// ReplayResult compares a journaled run with a fresh run of the same
// document.
type ReplayResult struct {
	Original    store.Run    `json:"original"`
	Replayed    store.Run    `json:"replayed"`
	Match       bool         `json:"match"`
	Differences []Difference `json:"differences,omitempty"`
}

// Replay re-runs the document journaled under runID on deck and compares
// the outcome with the original run.
//
// The document is read back from its canonical journal copy and classified
// with the command set of its own schema version. The replay is journaled
// as a new run. Dispatch is deterministic for a given document and deck, so
// any difference points at a changed handler or a nondeterministic deck.
func (e *Engine) Replay(ctx context.Context, runID string, deck hardware.Deck) (*ReplayResult, error) {
	original, err := e.store.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}
	if original.Status == store.RunRunning {
		return nil, fmt.Errorf("replay %s: run has not finished", runID)
	}

	doc, err := e.store.ReadDocument(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}
	registry, err := commandset.ForDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	outcome, err := e.Execute(ctx, deck, registry, doc)
	if err != nil {
		return nil, err
	}

	diffs, err := e.compare(ctx, original, outcome.Run, doc)
	if err != nil {
		return nil, err
	}

	e.logger.Info("replay finished",
		"run_id", runID,
		"replay_id", outcome.Run.ID,
		"original", describe(original),
		"replayed", describe(outcome.Run),
		"differences", len(diffs),
	)
	return &ReplayResult{
		Original:    original,
		Replayed:    outcome.Run,
		Match:       len(diffs) == 0,
		Differences: diffs,
	}, nil
}

// compare lists run-level and per-command differences in journal order.
func (e *Engine) compare(ctx context.Context, original, replayed store.Run, doc *protocol.Document) ([]Difference, error) {
	var diffs []Difference
	add := func(field, a, b string) {
		if a != b {
			diffs = append(diffs, Difference{Field: field, Original: a, Replayed: b})
		}
	}

	add("document_hash", original.DocumentHash, replayed.DocumentHash)
	add("status", string(original.Status), string(replayed.Status))
	add("error_code", original.ErrorCode, replayed.ErrorCode)
	add("halted_at", fmt.Sprint(original.HaltedAt), fmt.Sprint(replayed.HaltedAt))

	before, err := e.store.ReadCommandEvents(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("read events of %s: %w", original.ID, err)
	}
	after, err := e.store.ReadCommandEvents(ctx, replayed.ID)
	if err != nil {
		return nil, fmt.Errorf("read events of %s: %w", replayed.ID, err)
	}

	for i := 0; i < max(len(before), len(after)); i++ {
		field := fmt.Sprintf("commands[%d]", i)
		if i < len(doc.Commands) {
			field = fmt.Sprintf("commands[%d] %s", i, doc.Commands[i].Type)
		}
		add(field, eventSummary(before, i), eventSummary(after, i))
	}
	return diffs, nil
}

func eventSummary(events []store.CommandEvent, i int) string {
	if i >= len(events) {
		return "not dispatched"
	}
	ev := events[i]
	if ev.ErrorCode != "" {
		return fmt.Sprintf("%s %s", ev.Status, ev.ErrorCode)
	}
	return string(ev.Status)
}

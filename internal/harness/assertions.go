package harness

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/labrun/internal/protocol"
	"github.com/roach88/labrun/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}

	return buf.String()
}

// AssertionContext provides journal access for journal_status assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallContains:
			err = assertCallContains(result.Trace, assertion)
		case AssertCallOrder:
			err = assertCallOrder(result.Trace, assertion)
		case AssertCallCount:
			err = assertCallCount(result.Trace, assertion)
		case AssertJournalStatus:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal_status requires a journal", i)
			} else {
				err = assertJournalStatus(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertCallContains checks that some call matches target.op and carries
// the expected args (subset match).
func assertCallContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Call() == assertion.Call && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertCallContains,
		Expected: fmt.Sprintf("call %s with args %v", assertion.Call, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertCallOrder checks that calls first appear in the specified order.
// Calls don't need to be consecutive.
func assertCallOrder(trace []TraceEvent, assertion Assertion) error {
	// 1-indexed first positions; 0 means absent
	positions := make(map[string]int)
	for i, event := range trace {
		call := event.Call()
		if slices.Contains(assertion.Calls, call) && positions[call] == 0 {
			positions[call] = i + 1
		}
	}

	for _, call := range assertion.Calls {
		if positions[call] == 0 {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("all calls present: %v", assertion.Calls),
				Actual:   fmt.Sprintf("missing call: %s", call),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Calls); i++ {
		prev := assertion.Calls[i-1]
		curr := assertion.Calls[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("calls in order: %v", assertion.Calls),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertCallCount checks that target.op was called exactly Count times.
func assertCallCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Call() == assertion.Call {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Call),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertJournalStatus checks the journaled status of the run, or of one
// command event when Seq is set.
func assertJournalStatus(actx *AssertionContext, assertion Assertion) error {
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	if assertion.Seq == nil {
		run, err := actx.Store.ReadRun(ctx, actx.RunID)
		if err != nil {
			return fmt.Errorf("journal_status: %w", err)
		}
		if string(run.Status) != assertion.Status {
			return &AssertionError{
				Type:     AssertJournalStatus,
				Expected: fmt.Sprintf("run status %s", assertion.Status),
				Actual:   fmt.Sprintf("run status %s", run.Status),
			}
		}
		return nil
	}

	events, err := actx.Store.ReadCommandEvents(ctx, actx.RunID)
	if err != nil {
		return fmt.Errorf("journal_status: %w", err)
	}
	seq := *assertion.Seq
	actual := "not journaled"
	if seq < len(events) {
		actual = string(events[seq].Status)
	}
	if actual != assertion.Status {
		return &AssertionError{
			Type:     AssertJournalStatus,
			Expected: fmt.Sprintf("command %d status %s", seq, assertion.Status),
			Actual:   fmt.Sprintf("command %d status %s", seq, actual),
		}
	}
	return nil
}

// matchArgs reports whether every expected arg is present in actual with
// an equal value. Values are compared by canonical JSON, so a YAML 5
// matches a recorded 5.0.
func matchArgs(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		if !sameValue(got, want) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	ca, err := protocol.MarshalCanonical(a)
	if err != nil {
		return false
	}
	cb, err := protocol.MarshalCanonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Call is one recorded hardware operation.
type Call struct {
	Target string         `json:"target"`
	Op     string         `json:"op"`
	Args   map[string]any `json:"args,omitempty"`
}

// String renders the call as "target.op".
func (c Call) String() string {
	return c.Target + "." + c.Op
}

// CallLog collects calls across every simulated context.
//
// Thread-safety: all methods are safe for concurrent use.
type CallLog struct {
	mu     sync.Mutex
	calls  []Call
	faults map[string]error
	logger *slog.Logger
}

// NewCallLog creates an empty log. A nil logger discards output.
func NewCallLog(logger *slog.Logger) *CallLog {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CallLog{
		faults: make(map[string]error),
		logger: logger,
	}
}

// FailOn makes the next and every later call of op on target fail with err.
func (l *CallLog) FailOn(target, op string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faults[target+"."+op] = err
}

// Calls returns a copy of the recorded calls in order.
func (l *CallLog) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Call, len(l.calls))
	copy(out, l.calls)
	return out
}

// Ops returns "target.op" for every recorded call in order.
func (l *CallLog) Ops() []string {
	calls := l.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Reset clears recorded calls and injected faults.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
	l.faults = make(map[string]error)
}

// record appends a call unless the context is done or a fault is injected.
func (l *CallLog) record(ctx context.Context, target, op string, args map[string]any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s.%s: %w", target, op, err)
	}

	l.mu.Lock()
	fault := l.faults[target+"."+op]
	if fault == nil {
		l.calls = append(l.calls, Call{Target: target, Op: op, Args: args})
	}
	l.mu.Unlock()

	if fault != nil {
		l.logger.Debug("simulated fault", "target", target, "op", op, "error", fault)
		return fmt.Errorf("%s.%s: %w", target, op, fault)
	}
	l.logger.Debug("hardware call", "target", target, "op", op, "args", args)
	return nil
}

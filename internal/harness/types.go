package harness

import "fmt"

// LoadingCommand is the Command index of calls made while the deck is
// loaded, before the first command is dispatched.
const LoadingCommand = -1

// TraceEvent is one simulated hardware call, attributed to the command
// that made it.
type TraceEvent struct {
	Seq     int            `json:"seq"`
	Command int            `json:"command"`
	Target  string         `json:"target"`
	Op      string         `json:"op"`
	Args    map[string]any `json:"args,omitempty"`
}

// Call renders the event as "target.op", the form assertions use.
func (e TraceEvent) Call() string {
	return e.Target + "." + e.Op
}

// String renders the event for failure messages.
func (e TraceEvent) String() string {
	if e.Command == LoadingCommand {
		return fmt.Sprintf("[%d] load %s %v", e.Seq, e.Call(), e.Args)
	}
	return fmt.Sprintf("[%d] cmd %d %s %v", e.Seq, e.Command, e.Call(), e.Args)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and every assertion hold.
	Pass bool `json:"pass"`

	// RunID is the journal id of the scenario's run.
	RunID string `json:"run_id"`

	// Status is the journaled run status.
	Status string `json:"status"`

	// ErrorCode is the dispatch error code that halted the run, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// HaltedAt is the index of the halting command, or -1.
	HaltedAt int `json:"halted_at"`

	// Trace contains every hardware call in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		HaltedAt: -1,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// CommandCalls returns the calls made by dispatched commands, skipping
// deck loading.
func (r *Result) CommandCalls() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Command != LoadingCommand {
			out = append(out, ev)
		}
	}
	return out
}

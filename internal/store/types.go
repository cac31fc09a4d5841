package store

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// EventStatus is the state of one dispatched command.
type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventSucceeded EventStatus = "succeeded"
	EventFailed    EventStatus = "failed"
)

// Run is one journaled protocol run.
type Run struct {
	ID            string    `json:"id"`
	ProtocolName  string    `json:"protocol_name"`
	DocumentHash  string    `json:"document_hash"`
	SchemaVersion int       `json:"schema_version"`
	EngineVersion string    `json:"engine_version"`
	CommandCount  int       `json:"command_count"`
	StartedAt     time.Time `json:"started_at"`
	// FinishedAt is zero while the run is in progress.
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	Status       RunStatus `json:"status"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	// HaltedAt is the index of the failing command, or -1.
	HaltedAt int `json:"halted_at"`
}

// CommandEvent is the journaled outcome of one command.
type CommandEvent struct {
	RunID        string      `json:"run_id"`
	Seq          int         `json:"seq"`
	CommandType  string      `json:"command_type"`
	Params       string      `json:"params"`
	ParamsHash   string      `json:"params_hash"`
	Status       EventStatus `json:"status"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

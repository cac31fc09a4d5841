package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
)

// BeginRun inserts a run in the running state. The document is stored in
// canonical form alongside its hash.
func (s *Store) BeginRun(ctx context.Context, id string, doc *protocol.Document, startedAt time.Time) (Run, error) {
	docJSON, err := protocol.MarshalCanonical(doc.Value())
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	hash, err := protocol.DocumentHash(doc)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}

	run := Run{
		ID:            id,
		ProtocolName:  doc.Name(),
		DocumentHash:  hash,
		SchemaVersion: doc.SchemaVersion,
		EngineVersion: protocol.EngineVersion,
		CommandCount:  len(doc.Commands),
		StartedAt:     startedAt,
		Status:        RunRunning,
		HaltedAt:      -1,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, protocol_name, document_hash, document, schema_version, engine_version, command_count, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.ProtocolName,
		run.DocumentHash,
		string(docJSON),
		run.SchemaVersion,
		run.EngineVersion,
		run.CommandCount,
		startedAt.UnixMilli(),
		string(run.Status),
	)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// RecordCommandStarted journals a command about to be dispatched.
// Re-recording the same (run, seq) is a no-op.
func (s *Store) RecordCommandStarted(ctx context.Context, runID string, seq int, cmd protocol.Command) error {
	params := cmd.Params
	if params == nil {
		params = protocol.Object{}
	}
	paramsJSON, err := protocol.MarshalCanonical(params)
	if err != nil {
		return fmt.Errorf("record command %d: %w", seq, err)
	}
	hash, err := protocol.ParamsHash(params)
	if err != nil {
		return fmt.Errorf("record command %d: %w", seq, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO command_events
		(run_id, seq, command_type, params, params_hash, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, runID, seq, cmd.Type, string(paramsJSON), hash, string(EventStarted))
	if err != nil {
		return fmt.Errorf("record command %d: %w", seq, err)
	}
	return nil
}

// RecordCommandFinished marks a started command as succeeded or failed.
func (s *Store) RecordCommandFinished(ctx context.Context, runID string, seq int, cmdErr error) error {
	status := EventSucceeded
	code, msg := errorColumns(cmdErr)
	if cmdErr != nil {
		status = EventFailed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE command_events
		SET status = ?, error_code = ?, error_message = ?
		WHERE run_id = ? AND seq = ?
	`, string(status), code, msg, runID, seq)
	if err != nil {
		return fmt.Errorf("finish command %d: %w", seq, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish command %d of run %s: %w", seq, runID, ErrNotFound)
	}
	return nil
}

// FinishRun closes a run. A nil runErr marks it succeeded.
func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time, runErr error) error {
	status := RunSucceeded
	code, msg := errorColumns(runErr)
	var haltedAt sql.NullInt64
	if runErr != nil {
		status = RunFailed
		if de, ok := asDispatchError(runErr); ok && de.Index >= 0 {
			haltedAt = sql.NullInt64{Int64: int64(de.Index), Valid: true}
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, finished_at = ?, error_code = ?, error_message = ?, halted_at = ?
		WHERE id = ?
	`, string(status), finishedAt.UnixMilli(), code, msg, haltedAt, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// errorColumns splits err into nullable code and message columns.
func errorColumns(err error) (code, msg sql.NullString) {
	if err == nil {
		return code, msg
	}
	msg = sql.NullString{String: err.Error(), Valid: true}
	if c := dispatch.CodeOf(err); c != "" {
		code = sql.NullString{String: string(c), Valid: true}
	}
	return code, msg
}

func asDispatchError(err error) (*dispatch.Error, bool) {
	var de *dispatch.Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/labrun/internal/protocol"
)

const runColumns = `id, protocol_name, document_hash, schema_version, engine_version,
	command_count, started_at, finished_at, status, error_code, error_message, halted_at`

// ReadRun returns one run. Unknown ids return ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.ListRunsMatching(ctx, RunFilter{Limit: limit})
}

// ListRunsMatching returns the runs selected by f, most recent first.
func (s *Store) ListRunsMatching(ctx context.Context, f RunFilter) ([]Run, error) {
	query, args, err := compileRunQuery(f)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadCommandEvents returns a run's command events in dispatch order.
// Returns an empty slice (not nil) when the run has none.
func (s *Store) ReadCommandEvents(ctx context.Context, runID string) ([]CommandEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, command_type, params, params_hash, status, error_code, error_message
		FROM command_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query command events: %w", err)
	}
	defer rows.Close()

	events := []CommandEvent{}
	for rows.Next() {
		var (
			ev        CommandEvent
			status    string
			code, msg sql.NullString
		)
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.CommandType, &ev.Params, &ev.ParamsHash, &status, &code, &msg); err != nil {
			return nil, fmt.Errorf("scan command event: %w", err)
		}
		ev.Status = EventStatus(status)
		ev.ErrorCode = code.String
		ev.ErrorMessage = msg.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command events: %w", err)
	}
	return events, nil
}

// ReadDocument returns the document a run executed, decoded from its
// canonical form. The decoded document hashes to the run's DocumentHash.
func (s *Store) ReadDocument(ctx context.Context, runID string) (*protocol.Document, error) {
	var docJSON string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM runs WHERE id = ?`, runID).Scan(&docJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read document for run %s: %w", runID, err)
	}
	doc, err := protocol.Parse([]byte(docJSON))
	if err != nil {
		return nil, fmt.Errorf("decode document for run %s: %w", runID, err)
	}
	return doc, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		startedAt  int64
		finishedAt sql.NullInt64
		status     string
		code, msg  sql.NullString
		haltedAt   sql.NullInt64
	)
	err := row.Scan(
		&run.ID,
		&run.ProtocolName,
		&run.DocumentHash,
		&run.SchemaVersion,
		&run.EngineVersion,
		&run.CommandCount,
		&startedAt,
		&finishedAt,
		&status,
		&code,
		&msg,
		&haltedAt,
	)
	if err != nil {
		return Run{}, err
	}

	run.StartedAt = time.UnixMilli(startedAt).UTC()
	if finishedAt.Valid {
		run.FinishedAt = time.UnixMilli(finishedAt.Int64).UTC()
	}
	run.Status = RunStatus(status)
	run.ErrorCode = code.String
	run.ErrorMessage = msg.String
	run.HaltedAt = -1
	if haltedAt.Valid {
		run.HaltedAt = int(haltedAt.Int64)
	}
	return run, nil
}

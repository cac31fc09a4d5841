package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/labrun/internal/engine"
	"github.com/roach88/labrun/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Faults   []string

	// RunIDs allows overriding the run id generator (for testing).
	RunIDs store.RunIDGenerator
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Replay a journaled run and verify its outcome",
		Long: `Replay a journaled run on a fresh simulator and compare outcomes.

The run's document is read back from the journal, dispatched again with the
command set for its schema version and journaled as a new run. The two runs
must agree on document hash, status, error code, halting command and the
outcome of every command.

Exit codes:
  0 - Replay matched the original run
  1 - Replay diverged from the original run
  2 - Command error (database not found, unknown or unfinished run, etc.)

Examples:
  labrun replay --db ./labrun.db 01926f3c-8a4e-7b1a-9c33-2f0d5e6a7b8c
  labrun replay --db ./labrun.db --format json <run-id>`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") {
				opts.Database = opts.Config.Database
			}
			if opts.Database == "" {
				return NewExitError(ExitCommandError, "a journal is required: pass --db or set LABRUN_DB")
			}
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run journal")
	cmd.Flags().StringArrayVar(&opts.Faults, "fault", nil, "make a simulator call fail, as target.op (repeatable)")

	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openJournal(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	deck, err := newDeck(opts.RootOptions, opts.Config.SimulateSpeed, opts.Faults)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	engineOpts := []engine.Option{engine.WithLogger(opts.logger())}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	eng := engine.New(st, engineOpts...)

	ctx, stop := signalContext(cmd, opts.logger())
	defer stop()

	result, err := eng.Replay(ctx, runID, deck)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", runID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(f *OutputFormatter, result *engine.ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.Replayed.ID,
	}

	if !result.Match {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeReplay,
			Message: "replay diverged from the original run",
		}
	}

	if err := f.Respond(response); err != nil {
		return err
	}

	if !result.Match {
		// Divergence = exit code 1
		return &ExitError{Code: ExitFailure, Message: "replay verification failed", Reported: true}
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(f *OutputFormatter, result *engine.ReplayResult) error {
	w := f.Writer

	fmt.Fprintf(w, "Replayed %s as %s: %s\n", result.Original.ID, result.Replayed.ID, result.Original.ProtocolName)
	fmt.Fprintf(w, "  Original: %s\n", runLine(result.Original))
	fmt.Fprintf(w, "  Replayed: %s\n", runLine(result.Replayed))
	fmt.Fprintln(w)

	if result.Match {
		fmt.Fprintln(w, "✓ Replay matches the original run")
		return nil
	}

	for _, d := range result.Differences {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintln(w, "✗ Replay verification failed")
	return &ExitError{Code: ExitFailure, Message: "replay verification failed", Reported: true}
}

// runLine renders a run's outcome on one line.
func runLine(run store.Run) string {
	if run.ErrorCode == "" {
		return string(run.Status)
	}
	return fmt.Sprintf("%s %s at command %d", run.Status, run.ErrorCode, run.HaltedAt)
}

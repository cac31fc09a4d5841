package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/labrun/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database  string
	Limit     int
	Status    string
	Protocol  string
	ErrorCode string
	Since     time.Duration
}

// RunDetail is one run with its journaled command events.
type RunDetail struct {
	Run    store.Run            `json:"run"`
	Events []store.CommandEvent `json:"events"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show journaled runs",
		Long: `Show runs recorded in the journal.

Without a run id, lists the most recent runs, newest first, optionally
narrowed by status, protocol name, error code or age. With a run id, shows
that run and the outcome of every command it dispatched.

Examples:
  labrun history --db ./labrun.db
  labrun history --db ./labrun.db --limit 5
  labrun history --db ./labrun.db --status failed --since 24h
  labrun history --db ./labrun.db 01926f3c-8a4e-7b1a-9c33-2f0d5e6a7b8c --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") {
				opts.Database = opts.Config.Database
			}
			if opts.Database == "" {
				return NewExitError(ExitCommandError, "a journal is required: pass --db or set LABRUN_DB")
			}
			if len(args) == 1 {
				return runShowRun(opts, args[0], cmd)
			}
			return runListRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run journal")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only runs with this status (running|succeeded|failed)")
	cmd.Flags().StringVar(&opts.Protocol, "protocol", "", "only runs of the protocol with this name")
	cmd.Flags().StringVar(&opts.ErrorCode, "error-code", "", "only runs that halted with this error code")
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "only runs started within this duration")

	return cmd
}

func runListRuns(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openJournal(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	filter, err := opts.runFilter(time.Now())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	runs, err := st.ListRunsMatching(context.Background(), filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to list runs: %v", err), nil)
	}

	if opts.Format == "json" {
		return formatter.Respond(CLIResponse{Status: "ok", Data: runs})
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %-9s  %s  %s\n", run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"), run.ProtocolName)
		if run.ErrorCode != "" {
			fmt.Fprintf(w, "  %s at command %d\n", run.ErrorCode, run.HaltedAt)
		}
	}
	return nil
}

// runFilter builds the journal query from the list flags.
func (opts *HistoryOptions) runFilter(now time.Time) (store.RunFilter, error) {
	filter := store.RunFilter{
		Status:       store.RunStatus(opts.Status),
		ProtocolName: opts.Protocol,
		ErrorCode:    opts.ErrorCode,
		Limit:        opts.Limit,
	}
	switch filter.Status {
	case "", store.RunRunning, store.RunSucceeded, store.RunFailed:
	default:
		return store.RunFilter{}, fmt.Errorf("invalid status %q: must be running, succeeded or failed", opts.Status)
	}
	if opts.Limit < 0 {
		return store.RunFilter{}, fmt.Errorf("invalid limit %d: must not be negative", opts.Limit)
	}
	if opts.Since < 0 {
		return store.RunFilter{}, fmt.Errorf("invalid since %s: must not be negative", opts.Since)
	}
	if opts.Since > 0 {
		filter.Since = now.Add(-opts.Since)
	}
	return filter, nil
}

func runShowRun(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := context.Background()

	st, err := openJournal(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", runID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to read run: %v", err), nil)
	}

	events, err := st.ReadCommandEvents(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to read events: %v", err), nil)
	}
	if events == nil {
		events = []store.CommandEvent{}
	}
	detail := RunDetail{Run: run, Events: events}

	if opts.Format == "json" {
		return formatter.Respond(CLIResponse{Status: "ok", Data: detail, RunID: run.ID})
	}
	return outputRunDetailText(formatter, detail)
}

func outputRunDetailText(f *OutputFormatter, detail RunDetail) error {
	w := f.Writer
	run := detail.Run

	fmt.Fprintf(w, "Run %s: %s\n", run.ID, run.ProtocolName)
	fmt.Fprintf(w, "  Status:   %s\n", run.Status)
	fmt.Fprintf(w, "  Schema:   v%d\n", run.SchemaVersion)
	fmt.Fprintf(w, "  Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Duration: %s\n", duration(run))
	if run.ErrorCode != "" {
		fmt.Fprintf(w, "  Error:    [%s] %s\n", run.ErrorCode, run.ErrorMessage)
	}
	if f.Verbose {
		fmt.Fprintf(w, "  Document: %s\n", run.DocumentHash)
		fmt.Fprintf(w, "  Engine:   %s\n", run.EngineVersion)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Commands (%d of %d dispatched):\n", len(detail.Events), run.CommandCount)
	for _, ev := range detail.Events {
		marker := "✓"
		if ev.Status != store.EventSucceeded {
			marker = "✗"
		}
		fmt.Fprintf(w, "  %s [%d] %s", marker, ev.Seq, ev.CommandType)
		if ev.ErrorCode != "" {
			fmt.Fprintf(w, "  %s: %s", ev.ErrorCode, ev.ErrorMessage)
		}
		fmt.Fprintln(w)
		if f.Verbose {
			fmt.Fprintf(w, "      params %s\n", ev.Params)
		}
	}
	return nil
}

// openJournal opens an existing journal. Unlike run, history and replay
// never create one.
func openJournal(f *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	return st, nil
}

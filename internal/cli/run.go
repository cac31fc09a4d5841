package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/engine"
	"github.com/roach88/labrun/internal/hardware/sim"
	"github.com/roach88/labrun/internal/metrics"
	"github.com/roach88/labrun/internal/preflight"
	"github.com/roach88/labrun/internal/store"
)

// memoryDatabase keeps the journal for the lifetime of one command.
const memoryDatabase = ":memory:"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	MetricsFile string
	Speed       float64
	Faults      []string // "target.op" simulator calls that fail

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator

	// Clock allows overriding time.Now (for testing).
	Clock func() time.Time
}

// RunSummary is the payload printed after a run.
type RunSummary struct {
	Run      store.Run         `json:"run"`
	Calls    int               `json:"hardware_calls"`
	Database string            `json:"database"`
	Warnings []preflight.Issue `json:"warnings,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <protocol>",
		Short: "Run a protocol on the simulator",
		Long: `Run a protocol document on the hardware simulator.

The protocol (.json, .yaml or .cue) is preflighted against the command set
for its schema version, then dispatched command by command. The run halts on
the first failing command. Every run is journaled; without --db the journal
lives in memory and is discarded on exit.

Exit codes:
  0 - Run succeeded
  1 - Preflight errors or the run halted
  2 - Command error (unreadable protocol, journal unavailable, etc.)

Example:
  labrun run ./protocols/pcr.json
  labrun run --db ./labrun.db --metrics-file ./labrun.prom ./protocols/pcr.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyConfig(cmd)
			return runProtocol(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run journal")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	cmd.Flags().Float64Var(&opts.Speed, "speed", 0, "scale simulated delays (0 never sleeps)")
	cmd.Flags().StringArrayVar(&opts.Faults, "fault", nil, "make a simulator call fail, as target.op (repeatable)")

	return cmd
}

// applyConfig fills flags the user did not set from the merged config.
func (opts *RunOptions) applyConfig(cmd *cobra.Command) {
	if !cmd.Flags().Changed("db") {
		opts.Database = opts.Config.Database
	}
	if !cmd.Flags().Changed("metrics-file") {
		opts.MetricsFile = opts.Config.MetricsFile
	}
	if !cmd.Flags().Changed("speed") {
		opts.Speed = opts.Config.SimulateSpeed
	}
}

func runProtocol(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	loaded, err := LoadProtocol(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}
	doc := loaded.Document
	formatter.VerboseLog("Loaded %s: %d command(s), schema v%d", path, len(doc.Commands), doc.SchemaVersion)

	issues := preflight.Check(doc, loaded.Registry)
	if preflight.HasErrors(issues) {
		return formatter.Fail(ExitFailure, ErrCodePreflight, fmt.Sprintf("preflight found %d issue(s)", len(issues)), issues)
	}
	for _, issue := range issues {
		logger.Warn("preflight warning", "issue", issue.String())
	}

	deck, err := newDeck(opts.RootOptions, opts.Speed, opts.Faults)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = memoryDatabase
	}
	logger.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	observer := metrics.NewObserver()
	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithObserver(observer),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.Clock))
	}
	eng := engine.New(st, engineOpts...)

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	outcome, err := eng.Execute(ctx, deck, loaded.Registry, doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	observer.RunFinished(outcome.Err)
	if opts.MetricsFile != "" {
		if err := observer.WriteFile(opts.MetricsFile); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
		formatter.VerboseLog("Wrote metrics to %s", opts.MetricsFile)
	}

	summary := RunSummary{
		Run:      outcome.Run,
		Calls:    len(deck.Log().Calls()),
		Database: dbPath,
		Warnings: issues,
	}
	if opts.Format == "json" {
		return outputRunJSON(formatter, summary, outcome.Err)
	}
	return outputRunText(formatter, summary, outcome.Err)
}

// newDeck builds the simulator with the requested faults injected.
func newDeck(opts *RootOptions, speed float64, faults []string) (*sim.Deck, error) {
	if speed < 0 {
		return nil, fmt.Errorf("speed must not be negative, got %v", speed)
	}
	deck := sim.NewDeck(sim.WithSpeed(speed), sim.WithLogger(opts.logger()))
	for _, fault := range faults {
		target, op, err := parseFault(fault)
		if err != nil {
			return nil, err
		}
		deck.Log().FailOn(target, op, fmt.Errorf("injected fault on %s", fault))
	}
	return deck, nil
}

// parseFault splits "target.op" at the last dot; targets such as
// "magneticModuleV2@1" never contain one.
func parseFault(fault string) (target, op string, err error) {
	i := strings.LastIndex(fault, ".")
	if i <= 0 || i == len(fault)-1 {
		return "", "", fmt.Errorf("invalid fault %q: want target.op", fault)
	}
	return fault[:i], fault[i+1:], nil
}

// signalContext cancels the command's context on SIGINT or SIGTERM. The
// engine still journals the cancelled run.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, func()) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, cancelling run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

// runErrorCode picks the CLI code for a halted run: the dispatch code when
// there is one.
func runErrorCode(err error) string {
	if code := dispatch.CodeOf(err); code != "" {
		return string(code)
	}
	return ErrCodeRunFailed
}

func outputRunJSON(f *OutputFormatter, summary RunSummary, runErr error) error {
	resp := CLIResponse{Status: "ok", Data: summary, RunID: summary.Run.ID}
	if runErr != nil {
		resp.Status = "error"
		resp.Error = &CLIError{Code: runErrorCode(runErr), Message: runErr.Error()}
	}
	if err := f.Respond(resp); err != nil {
		return err
	}
	if runErr != nil {
		return &ExitError{Code: ExitFailure, Message: "run failed", Err: runErr, Reported: true}
	}
	return nil
}

func outputRunText(f *OutputFormatter, summary RunSummary, runErr error) error {
	w := f.Writer
	run := summary.Run

	for _, issue := range summary.Warnings {
		fmt.Fprintf(w, "  %s\n", issue)
	}

	if runErr == nil {
		fmt.Fprintf(w, "✓ Run %s succeeded: %s\n", run.ID, run.ProtocolName)
		fmt.Fprintf(w, "  %d command(s), %d hardware call(s), %s\n", run.CommandCount, summary.Calls, duration(run))
		if f.Verbose {
			fmt.Fprintf(w, "  Journal: %s\n", summary.Database)
		}
		return nil
	}

	fmt.Fprintf(w, "✗ Run %s failed: %s\n", run.ID, run.ProtocolName)
	if run.HaltedAt >= 0 {
		fmt.Fprintf(w, "  Halted at command %d of %d\n", run.HaltedAt, run.CommandCount)
	}
	fmt.Fprintf(w, "  Error [%s]: %s\n", runErrorCode(runErr), runErr)
	return &ExitError{Code: ExitFailure, Message: "run failed", Err: runErr, Reported: true}
}

// duration renders the run's wall time.
func duration(run store.Run) string {
	if run.FinishedAt.IsZero() {
		return "unfinished"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

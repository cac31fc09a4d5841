package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/labrun/internal/preflight"
)

// CheckResult holds preflight results for one protocol.
type CheckResult struct {
	Protocol      string            `json:"protocol"`
	Name          string            `json:"name"`
	SchemaVersion int               `json:"schema_version"`
	Commands      int               `json:"commands"`
	Valid         bool              `json:"valid"`
	Issues        []preflight.Issue `json:"issues,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <protocol>",
		Short: "Preflight a protocol without running it",
		Long: `Check a protocol against the command set for its schema version.

Reports every unsupported command, unknown module, pipette or labware
reference and module capability mismatch, without touching hardware.
Warnings do not fail the check.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadProtocol(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}
	doc := loaded.Document
	formatter.VerboseLog("Checking %d command(s) against %d registered type(s)", len(doc.Commands), loaded.Registry.Len())

	issues := preflight.Check(doc, loaded.Registry)
	result := CheckResult{
		Protocol:      path,
		Name:          doc.Name(),
		SchemaVersion: doc.SchemaVersion,
		Commands:      len(doc.Commands),
		Valid:         !preflight.HasErrors(issues),
		Issues:        issues,
	}

	if opts.Format == "json" {
		return outputCheckJSON(formatter, result)
	}
	return outputCheckText(formatter, result)
}

func outputCheckJSON(f *OutputFormatter, result CheckResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if !result.Valid {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodePreflight,
			Message: fmt.Sprintf("preflight found %d issue(s)", len(result.Issues)),
		}
	}
	if err := f.Respond(resp); err != nil {
		return err
	}
	if !result.Valid {
		return &ExitError{Code: ExitFailure, Message: "preflight failed", Reported: true}
	}
	return nil
}

func outputCheckText(f *OutputFormatter, result CheckResult) error {
	w := f.Writer
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "  %s\n", issue)
	}

	if result.Valid {
		fmt.Fprintf(w, "✓ %s: %d command(s), schema v%d\n", result.Protocol, result.Commands, result.SchemaVersion)
		return nil
	}
	fmt.Fprintf(w, "✗ %s: %d issue(s)\n", result.Protocol, len(result.Issues))
	return &ExitError{Code: ExitFailure, Message: "preflight failed", Reported: true}
}

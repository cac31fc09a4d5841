package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/labrun/internal/commandset"
	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
)

// CommandsOptions holds flags for the commands command.
type CommandsOptions struct {
	*RootOptions
	Schema int // 0 selects the latest schema
}

// FamilyCommands lists the command types one family handles.
type FamilyCommands struct {
	Family     dispatch.Family `json:"family"`
	Capability string          `json:"capability,omitempty"`
	Commands   []string        `json:"commands"`
}

// CommandSet describes everything a schema version can dispatch.
type CommandSet struct {
	SchemaVersion int              `json:"schema_version"`
	Families      []FamilyCommands `json:"families"`
	Total         int              `json:"total"`
}

// familyOrder fixes the listing order.
var familyOrder = []dispatch.Family{
	dispatch.FamilyControl,
	dispatch.FamilyPipette,
	dispatch.FamilyMagnetic,
	dispatch.FamilyTemperature,
	dispatch.FamilyThermocycler,
}

// NewCommandsCommand creates the commands command.
func NewCommandsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommandsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List supported command types",
		Long: fmt.Sprintf(`List the command types a protocol schema version can dispatch, grouped
by handler family. Supported schema versions: %v.`, commandset.SupportedVersions),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommands(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Schema, "schema", 0, "protocol schema version (default latest)")

	return cmd
}

func runCommands(opts *CommandsOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	version := opts.Schema
	if version == 0 {
		version = protocol.LatestSchemaVersion
	}
	registry, err := commandset.Registry(version)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchema, err.Error(), nil)
	}

	set := describeCommandSet(version, registry)
	if opts.Format == "json" {
		return formatter.Respond(CLIResponse{Status: "ok", Data: set})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Schema v%d: %d command type(s)\n", set.SchemaVersion, set.Total)
	for _, fc := range set.Families {
		fmt.Fprintf(w, "\n%s:\n", fc.Family)
		fmt.Fprintf(w, "  %s\n", strings.Join(fc.Commands, "\n  "))
	}
	return nil
}

// describeCommandSet groups the registry's types by family. Control
// commands are always available and never live in the registry.
func describeCommandSet(version int, registry *dispatch.Registry) CommandSet {
	byFamily := map[dispatch.Family][]string{
		dispatch.FamilyControl: dispatch.ControlCommands(),
	}
	for _, t := range registry.Types() {
		d, _ := registry.Lookup(t)
		byFamily[d.Family] = append(byFamily[d.Family], t)
	}

	set := CommandSet{SchemaVersion: version}
	for _, family := range familyOrder {
		types := byFamily[family]
		if len(types) == 0 {
			continue
		}
		fc := FamilyCommands{Family: family, Commands: types}
		if capability, ok := family.Capability(); ok {
			fc.Capability = capability.String()
		}
		set.Families = append(set.Families, fc)
		set.Total += len(types)
	}
	return set
}

// Package preflight statically checks a protocol document against a
// registry before any hardware is touched.
//
// Check reports every problem it finds rather than stopping at the first.
// Passing preflight does not replace the dispatcher's own checks; it only
// surfaces the problems that are visible without running anything.
package preflight

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in a document. Code reuses the dispatch error
// taxonomy so a preflight issue and the matching runtime failure agree.
type Issue struct {
	Severity Severity           `json:"severity"`
	Code     dispatch.ErrorCode `json:"code"`
	Field    string             `json:"field"`
	Message  string             `json:"message"`
	// Index is the command position, or -1 for document-level issues.
	Index int `json:"index"`
}

// String renders the issue on one line.
func (i Issue) String() string {
	if i.Index >= 0 {
		return fmt.Sprintf("%s [%s] command %d: %s: %s", i.Severity, i.Code, i.Index, i.Field, i.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", i.Severity, i.Code, i.Field, i.Message)
}

// HasErrors reports whether any issue is an error rather than a warning.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Check validates doc against registry and returns every issue found, in
// document order.
func Check(doc *protocol.Document, registry *dispatch.Registry) []Issue {
	c := &checker{doc: doc, registry: registry}
	c.checkModules()
	c.checkLabware()
	for i, cmd := range doc.Commands {
		c.checkCommand(i, cmd)
	}
	return c.issues
}

type checker struct {
	doc      *protocol.Document
	registry *dispatch.Registry
	issues   []Issue
}

func (c *checker) add(sev Severity, code dispatch.ErrorCode, index int, field, format string, args ...any) {
	c.issues = append(c.issues, Issue{
		Severity: sev,
		Code:     code,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Index:    index,
	})
}

func (c *checker) checkModules() {
	for _, id := range sortedIDs(c.doc.Modules) {
		entry := c.doc.Modules[id]
		if entry.Model == "" {
			c.add(SeverityError, dispatch.ErrCodeMissingParameter, -1, "modules."+id+".model", "module model is required")
			continue
		}
		if _, known := hardware.CapabilityForModel(entry.Model); !known {
			c.add(SeverityWarning, dispatch.ErrCodeCapabilityMismatch, -1, "modules."+id+".model",
				"unknown model %q loads as a generic module and accepts no module commands", entry.Model)
		}
	}
}

func (c *checker) checkLabware() {
	for _, id := range sortedIDs(c.doc.Labware) {
		entry := c.doc.Labware[id]
		if _, ok := c.doc.LabwareDefinitions[entry.DefinitionID]; !ok {
			c.add(SeverityError, dispatch.ErrCodeLookupFailure, -1, "labware."+id+".definitionId",
				"unknown labware definition %q", entry.DefinitionID)
		}
		if entry.Slot == "" {
			c.add(SeverityError, dispatch.ErrCodeMissingParameter, -1, "labware."+id+".slot", "slot is required")
		}
	}
}

func (c *checker) checkCommand(i int, cmd protocol.Command) {
	params := dispatch.Params(cmd.Params)

	if cmd.Type == dispatch.CmdMoveToSlot {
		c.checkPipetteRef(i, params)
		return
	}
	if !c.registry.Supports(cmd.Type) {
		c.add(SeverityError, dispatch.ErrCodeUnsupportedCommand, i, "command", "unsupported command type %q", cmd.Type)
		return
	}
	desc, ok := c.registry.Lookup(cmd.Type)
	if !ok {
		return
	}

	switch {
	case desc.TargetsModule():
		c.checkModuleRef(i, params, desc)
	case desc.Family == dispatch.FamilyPipette:
		if c.checkPipetteRef(i, params) {
			c.checkWellRef(i, params)
		}
	}
}

// checkModuleRef mirrors the resolver using declared models.
func (c *checker) checkModuleRef(i int, params dispatch.Params, desc dispatch.Descriptor) {
	id, err := params.String("module")
	if err != nil {
		c.add(SeverityError, dispatch.CodeOf(err), i, "params.module", "%s", messageOf(err))
		return
	}
	entry, ok := c.doc.Modules[id]
	if !ok {
		c.add(SeverityError, dispatch.ErrCodeLookupFailure, i, "params.module", "unknown module %q", id)
		return
	}
	actual, _ := hardware.CapabilityForModel(entry.Model)
	if actual != desc.Capability {
		c.add(SeverityError, dispatch.ErrCodeCapabilityMismatch, i, "params.module",
			"module %q (%s) is %s, %s commands need a %s module",
			id, entry.Model, actual, desc.Family, desc.Capability)
	}
}

// checkPipetteRef reports whether params.pipette names a declared pipette.
func (c *checker) checkPipetteRef(i int, params dispatch.Params) bool {
	id, err := params.String("pipette")
	if err != nil {
		c.add(SeverityError, dispatch.CodeOf(err), i, "params.pipette", "%s", messageOf(err))
		return false
	}
	if _, ok := c.doc.Pipettes[id]; !ok {
		c.add(SeverityError, dispatch.ErrCodeLookupFailure, i, "params.pipette", "unknown pipette %q", id)
		return false
	}
	return true
}

func (c *checker) checkWellRef(i int, params dispatch.Params) {
	labwareID, err := params.String("labware")
	if err != nil {
		c.add(SeverityError, dispatch.CodeOf(err), i, "params.labware", "%s", messageOf(err))
		return
	}
	entry, ok := c.doc.Labware[labwareID]
	if !ok {
		c.add(SeverityError, dispatch.ErrCodeLookupFailure, i, "params.labware", "unknown labware %q", labwareID)
		return
	}
	well, err := params.String("well")
	if err != nil {
		c.add(SeverityError, dispatch.CodeOf(err), i, "params.well", "%s", messageOf(err))
		return
	}
	def, ok := c.doc.LabwareDefinitions[entry.DefinitionID]
	if !ok {
		// Already reported by checkLabware.
		return
	}
	wells, _ := def["wells"].(protocol.Object)
	if _, ok := wells[well]; !ok {
		c.add(SeverityError, dispatch.ErrCodeLookupFailure, i, "params.well", "labware %q has no well %q", labwareID, well)
	}
}

func messageOf(err error) string {
	var de *dispatch.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

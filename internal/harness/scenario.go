package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
)

// Scenario is a conformance test: one protocol document run on the
// simulator, with optional injected faults, an expected outcome and
// assertions over the hardware trace and the run journal.
type Scenario struct {
	// Name identifies the scenario; it also names its golden file and run id.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Protocol is a document file (.json, .yaml, .yml or .cue). Relative
	// paths are resolved against the scenario file's directory.
	Protocol string `yaml:"protocol,omitempty"`

	// Document is an inline protocol document, used when Protocol is empty.
	Document map[string]any `yaml:"document,omitempty"`

	// SchemaVersion overrides the document's schemaVersion when non-zero.
	SchemaVersion int `yaml:"schema_version,omitempty"`

	// Faults are simulated hardware failures injected before the run.
	Faults []Fault `yaml:"faults,omitempty"`

	// Expect is the run outcome. The zero value expects success.
	Expect Expectation `yaml:"expect"`

	// Assertions are checked after the run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Fault makes every call of Op on Target fail with Error.
type Fault struct {
	Target string `yaml:"target"`
	Op     string `yaml:"op"`
	Error  string `yaml:"error"`
}

// Expectation describes how a run must end.
type Expectation struct {
	// Error is the dispatch error code that halts the run; empty expects
	// success.
	Error string `yaml:"error,omitempty"`

	// HaltedAt is the index of the halting command.
	HaltedAt *int `yaml:"halted_at,omitempty"`

	// Calls, when present, is the exact sequence of hardware calls made
	// by dispatched commands. Deck loading calls are excluded.
	Calls []ExpectedCall `yaml:"calls,omitempty"`
}

// ExpectedCall names one hardware call.
type ExpectedCall struct {
	Target string `yaml:"target"`
	Op     string `yaml:"op"`
}

// String renders the call as "target.op".
func (c ExpectedCall) String() string {
	return c.Target + "." + c.Op
}

// Assertion represents a single assertion about the run.
type Assertion struct {
	Type string `yaml:"type"`

	// Call is "target.op" (call_contains, call_count).
	Call string `yaml:"call,omitempty"`

	// Args are matched as a subset of the call's args (call_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Calls must appear in this order (call_order).
	Calls []string `yaml:"calls,omitempty"`

	// Count is the exact number of matching calls (call_count).
	Count int `yaml:"count,omitempty"`

	// Seq selects a command event; absent checks the run itself
	// (journal_status).
	Seq *int `yaml:"seq,omitempty"`

	// Status is the expected journal status (journal_status).
	Status string `yaml:"status,omitempty"`
}

// Assertion types.
const (
	AssertCallContains  = "call_contains"
	AssertCallOrder     = "call_order"
	AssertCallCount     = "call_count"
	AssertJournalStatus = "journal_status"
)

var knownErrorCodes = map[string]bool{
	string(dispatch.ErrCodeUnsupportedCommand): true,
	string(dispatch.ErrCodeCapabilityMismatch): true,
	string(dispatch.ErrCodeMissingParameter):   true,
	string(dispatch.ErrCodeMalformedParameter): true,
	string(dispatch.ErrCodeLookupFailure):      true,
	string(dispatch.ErrCodeHardwareFailure):    true,
	string(dispatch.ErrCodeRegistryCollision):  true,
	string(dispatch.ErrCodeMissingHandler):     true,
}

// LoadScenario reads and parses a scenario YAML file, resolving its
// protocol path against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the protocol path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the protocol path BEFORE validation
	if scenario.Protocol != "" && !filepath.IsAbs(scenario.Protocol) && basePath != "" {
		scenario.Protocol = filepath.Join(basePath, scenario.Protocol)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDocument returns the scenario's protocol document.
func (s *Scenario) LoadDocument() (*protocol.Document, error) {
	var (
		doc *protocol.Document
		err error
	)
	if s.Protocol != "" {
		doc, err = protocol.Load(s.Protocol)
	} else {
		doc, err = inlineDocument(s.Document)
	}
	if err != nil {
		return nil, err
	}
	if s.SchemaVersion != 0 {
		doc.SchemaVersion = s.SchemaVersion
	}
	return doc, nil
}

// inlineDocument re-encodes a YAML-decoded document as JSON so it takes the
// same decoding path as protocol files.
func inlineDocument(raw map[string]any) (*protocol.Document, error) {
	val, err := protocol.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("inline document: %w", err)
	}
	data, err := protocol.MarshalValue(val)
	if err != nil {
		return nil, fmt.Errorf("inline document: %w", err)
	}
	return protocol.Parse(data)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Protocol == "" && s.Document == nil:
		return fmt.Errorf("one of protocol or document is required")
	case s.Protocol != "" && s.Document != nil:
		return fmt.Errorf("protocol and document are mutually exclusive")
	}

	if s.Protocol != "" {
		if _, err := os.Stat(s.Protocol); os.IsNotExist(err) {
			return fmt.Errorf("protocol file not found: %s", s.Protocol)
		}
	}

	if s.SchemaVersion < 0 {
		return fmt.Errorf("schema_version must be positive")
	}

	for i, f := range s.Faults {
		if f.Target == "" || f.Op == "" {
			return fmt.Errorf("faults[%d]: target and op are required", i)
		}
		if f.Error == "" {
			return fmt.Errorf("faults[%d]: error is required", i)
		}
	}

	if s.Expect.Error != "" && !knownErrorCodes[s.Expect.Error] {
		return fmt.Errorf("expect.error: unknown error code %q", s.Expect.Error)
	}
	if s.Expect.HaltedAt != nil && s.Expect.Error == "" {
		return fmt.Errorf("expect.halted_at requires expect.error")
	}
	for i, c := range s.Expect.Calls {
		if c.Target == "" || c.Op == "" {
			return fmt.Errorf("expect.calls[%d]: target and op are required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallContains:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for call_contains", index)
		}
	case AssertCallOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertJournalStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for journal_status", index)
		}
		if a.Seq != nil && *a.Seq < 0 {
			return fmt.Errorf("assertions[%d]: seq must be non-negative for journal_status", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

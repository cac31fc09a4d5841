package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// createTestProtocol writes a one-delay protocol under dir/protocols.
func createTestProtocol(t *testing.T, dir string) string {
	t.Helper()
	protocolsDir := filepath.Join(dir, "protocols")
	require.NoError(t, os.MkdirAll(protocolsDir, 0755))
	path := filepath.Join(protocolsDir, "delay.json")
	content := `{"schemaVersion": 4, "labware": {}, "labwareDefinitions": {},
		"commands": [{"command": "delay", "params": {"wait": 1}}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/magnet_fault.yaml")
	require.NoError(t, err)

	assert.Equal(t, "magnet_fault", scenario.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "protocols", "magnetic.json"), scenario.Protocol)
	require.Len(t, scenario.Faults, 1)
	assert.Equal(t, Fault{Target: "magneticModuleV2@1", Op: "engage", Error: "magnet jammed"}, scenario.Faults[0])
	assert.Equal(t, "HARDWARE_FAILURE", scenario.Expect.Error)
	require.NotNil(t, scenario.Expect.HaltedAt)
	assert.Equal(t, 0, *scenario.Expect.HaltedAt)
	assert.Len(t, scenario.Assertions, 4)
}

func TestLoadScenario_InlineDocument(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pcr.yaml")
	require.NoError(t, err)

	doc, err := scenario.LoadDocument()
	require.NoError(t, err)
	assert.Equal(t, 4, doc.SchemaVersion)
	assert.Equal(t, "pcr", doc.Name())
	assert.Len(t, doc.Commands, 6)
	assert.Equal(t, "thermocyclerModuleV1", doc.Modules["tc"].Model)
	assert.Equal(t, "plate", doc.Labware["tcplate"].DefinitionID)
}

func TestLoadScenario_SchemaVersionOverride(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/schema_v3.yaml")
	require.NoError(t, err)

	doc, err := scenario.LoadDocument()
	require.NoError(t, err)
	assert.Equal(t, 3, doc.SchemaVersion)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	createTestProtocol(t, dir)
	path := writeScenario(t, dir, "typo.yaml", `
name: typo
description: "Has a typo"
protocol: protocols/delay.json
assertion:
  - type: call_count
    call: deck.delay
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	createTestProtocol(t, dir)
	scenarioDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarioDir, 0755))
	path := writeScenario(t, scenarioDir, "delay.yaml", `
name: delay
description: "Protocol resolved against an explicit base"
protocol: protocols/delay.json
`)

	_, err := LoadScenario(path)
	require.Error(t, err, "protocol is not beside the scenario")

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "protocols", "delay.json"), scenario.Protocol)
}

func TestValidateScenario(t *testing.T) {
	dir := t.TempDir()
	protocolPath := createTestProtocol(t, dir)
	zero := 0
	negative := -1

	valid := func() Scenario {
		return Scenario{Name: "s", Description: "d", Protocol: protocolPath}
	}

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no document", func(s *Scenario) { s.Protocol = "" }, "one of protocol or document is required"},
		{"both documents", func(s *Scenario) { s.Document = map[string]any{} }, "mutually exclusive"},
		{"protocol not found", func(s *Scenario) { s.Protocol = filepath.Join(dir, "missing.json") }, "protocol file not found"},
		{"negative schema", func(s *Scenario) { s.SchemaVersion = -1 }, "schema_version must be positive"},
		{"fault without op", func(s *Scenario) { s.Faults = []Fault{{Target: "deck", Error: "x"}} }, "faults[0]: target and op are required"},
		{"fault without error", func(s *Scenario) { s.Faults = []Fault{{Target: "deck", Op: "delay"}} }, "faults[0]: error is required"},
		{"unknown error code", func(s *Scenario) { s.Expect.Error = "E_NOPE" }, `unknown error code "E_NOPE"`},
		{"halted_at without error", func(s *Scenario) { s.Expect.HaltedAt = &zero }, "expect.halted_at requires expect.error"},
		{"call without op", func(s *Scenario) { s.Expect.Calls = []ExpectedCall{{Target: "deck"}} }, "expect.calls[0]"},
		{"assertion without type", func(s *Scenario) { s.Assertions = []Assertion{{}} }, "assertions[0]: type is required"},
		{"unknown assertion", func(s *Scenario) { s.Assertions = []Assertion{{Type: "trace_contains"}} }, `unknown assertion type "trace_contains"`},
		{"call_contains without call", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertCallContains}} }, "call is required for call_contains"},
		{"call_order without calls", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertCallOrder}} }, "calls list is required"},
		{"call_count negative", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertCallCount, Call: "deck.delay", Count: -1}} }, "count must be non-negative"},
		{"journal_status without status", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertJournalStatus}} }, "status is required"},
		{"journal_status negative seq", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertJournalStatus, Status: "failed", Seq: &negative}}
		}, "seq must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := validateScenario(&s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInlineDocument_InvalidShape(t *testing.T) {
	_, err := inlineDocument(map[string]any{"commands": "not a list"})
	require.Error(t, err)
}

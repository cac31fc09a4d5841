package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden_MagneticCleanup(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/magnetic_cleanup.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_MagnetFault(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/magnet_fault.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pcr.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := NewSnapshot(scenario.Name, first).Marshal()
	require.NoError(t, err)
	b, err := NewSnapshot(scenario.Name, second).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_OmitsEmptyFields(t *testing.T) {
	result := NewResult()
	result.Status = "succeeded"
	result.Trace = []TraceEvent{{Seq: 1, Command: 0, Target: "deck", Op: "pause", Args: map[string]any{}}}

	data, err := NewSnapshot("empty", result).Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"halted_at":-1,"scenario_name":"empty","status":"succeeded","trace":[{"command":0,"op":"pause","seq":1,"target":"deck"}]}`,
		string(data))
}

func TestAssertGolden_ReusesResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/magnetic_cleanup.yaml")
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "magnetic_cleanup", result))
}

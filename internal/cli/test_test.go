package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/labrun/internal/harness"
)

var scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := executeRoot(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	out, _, err := executeRoot(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestTestCommandPasses(t *testing.T) {
	out, _, err := executeRoot(t, "test", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ magnetic_cleanup")
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, _, err := executeRoot(t, "--format", "json", "test", "--filter", "magnet*", scenariosDir)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result harness.SuiteResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := executeRoot(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	scenario := `
name: wrong_halt
description: "Expects a failure the protocol never produces"
document:
  schemaVersion: 4
  labwareDefinitions: {}
  labware: {}
  commands:
    - command: delay
      params: {wait: 1}
expect:
  error: HARDWARE_FAILURE
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_halt.yaml"), []byte(scenario), 0644))

	out, _, err := executeRoot(t, "--format", "json", "test", "--update", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Contains(t, out, "expected HARDWARE_FAILURE, run succeeded")
}

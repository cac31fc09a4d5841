package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/labrun/internal/commandset"
	"github.com/roach88/labrun/internal/dispatch"
)

func decodeCommandSet(t *testing.T, out string) CommandSet {
	t.Helper()
	resp := decodeResponse(t, out)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var set CommandSet
	require.NoError(t, json.Unmarshal(data, &set))
	return set
}

func families(set CommandSet) []dispatch.Family {
	out := make([]dispatch.Family, len(set.Families))
	for i, fc := range set.Families {
		out[i] = fc.Family
	}
	return out
}

func TestCommandsLatest(t *testing.T) {
	out, _, err := executeRoot(t, "--format", "json", "commands")
	require.NoError(t, err)

	set := decodeCommandSet(t, out)
	assert.Equal(t, 4, set.SchemaVersion)
	assert.Equal(t, []dispatch.Family{
		dispatch.FamilyControl,
		dispatch.FamilyPipette,
		dispatch.FamilyMagnetic,
		dispatch.FamilyTemperature,
		dispatch.FamilyThermocycler,
	}, families(set))

	registry, err := commandset.Registry(4)
	require.NoError(t, err)
	assert.Equal(t, registry.Len()+len(dispatch.ControlCommands()), set.Total)
	assert.Equal(t, "magnetic", set.Families[2].Capability)
	assert.Empty(t, set.Families[1].Capability)
}

func TestCommandsSchemaV3(t *testing.T) {
	out, _, err := executeRoot(t, "--format", "json", "commands", "--schema", "3")
	require.NoError(t, err)

	set := decodeCommandSet(t, out)
	assert.Equal(t, []dispatch.Family{dispatch.FamilyControl, dispatch.FamilyPipette}, families(set))
}

func TestCommandsText(t *testing.T) {
	out, _, err := executeRoot(t, "commands")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema v4:")
	assert.Contains(t, out, "\nmagnetic:\n")
	assert.Contains(t, out, "  magneticModule/engageMagnet\n")
	assert.Contains(t, out, "  delay\n")
}

func TestCommandsUnknownSchema(t *testing.T) {
	out, _, err := executeRoot(t, "commands", "--schema", "9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeSchema+"]")
	assert.Contains(t, out, "unsupported schema version 9")
}

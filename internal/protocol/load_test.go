package protocol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "schemaVersion": 4,
  "metadata": {"protocolName": "magnet demo"},
  "pipettes": {"pip1": {"mount": "left", "name": "p300_single"}},
  "labware": {
    "plate": {"slot": "magMod", "definitionId": "plateDef", "displayName": "Sample Plate"}
  },
  "labwareDefinitions": {"plateDef": {"wells": {"A1": {}}}},
  "modules": {"magMod": {"model": "magneticModuleV1", "slot": "1"}},
  "commands": [
    {"command": "magneticModule/engageMagnet", "params": {"module": "magMod", "engageHeight": 4.2}},
    {"command": "delay", "params": {"wait": true, "message": "check"}}
  ]
}`

const sampleYAML = `
schemaVersion: 4
metadata:
  protocolName: magnet demo
pipettes:
  pip1: {mount: left, name: p300_single}
labware:
  plate: {slot: magMod, definitionId: plateDef, displayName: Sample Plate}
labwareDefinitions:
  plateDef:
    wells:
      A1: {}
modules:
  magMod: {model: magneticModuleV1, slot: "1"}
commands:
  - command: magneticModule/engageMagnet
    params: {module: magMod, engageHeight: 4.2}
  - command: delay
    params: {wait: true, message: check}
`

const sampleCUE = `
schemaVersion: 4
metadata: protocolName: "magnet demo"
pipettes: pip1: {mount: "left", name: "p300_single"}
labware: plate: {slot: "magMod", definitionId: "plateDef", displayName: "Sample Plate"}
labwareDefinitions: plateDef: wells: A1: {}
modules: magMod: {model: "magneticModuleV1", slot: "1"}
commands: [
	{command: "magneticModule/engageMagnet", params: {module: "magMod", engageHeight: 4.2}},
	{command: "delay", params: {wait: true, message: "check"}},
]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, 4, doc.SchemaVersion)
	assert.Equal(t, "magnet demo", doc.Name())
	assert.Equal(t, PipetteEntry{Mount: "left", Name: "p300_single"}, doc.Pipettes["pip1"])
	assert.Equal(t, LabwareEntry{Slot: "magMod", DefinitionID: "plateDef", DisplayName: "Sample Plate"}, doc.Labware["plate"])
	assert.Equal(t, ModuleEntry{Model: "magneticModuleV1", Slot: "1"}, doc.Modules["magMod"])
	require.Len(t, doc.Commands, 2)
	assert.Equal(t, "magneticModule/engageMagnet", doc.Commands[0].Type)
	assert.Equal(t, Number(4.2), doc.Commands[0].Params["engageHeight"])
	assert.Equal(t, Bool(true), doc.Commands[1].Params["wait"])
}

func TestParse_PreservesCommandOrder(t *testing.T) {
	doc, err := Parse([]byte(`{"commands":[
		{"command":"c","params":{}},
		{"command":"a","params":{}},
		{"command":"b","params":{}}]}`))
	require.NoError(t, err)

	var types []string
	for _, c := range doc.Commands {
		types = append(types, c.Type)
	}
	assert.Equal(t, []string{"c", "a", "b"}, types)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"commands": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode protocol")
}

func TestLoad_FormatsAgree(t *testing.T) {
	jsonDoc, err := Load(writeFile(t, "p.json", sampleJSON))
	require.NoError(t, err)
	yamlDoc, err := Load(writeFile(t, "p.yaml", sampleYAML))
	require.NoError(t, err)
	cueDoc, err := Load(writeFile(t, "p.cue", sampleCUE))
	require.NoError(t, err)

	want, err := DocumentHash(jsonDoc)
	require.NoError(t, err)

	yamlHash, err := DocumentHash(yamlDoc)
	require.NoError(t, err)
	cueHash, err := DocumentHash(cueDoc)
	require.NoError(t, err)

	assert.Equal(t, want, yamlHash)
	assert.Equal(t, want, cueHash)
	assert.Equal(t, jsonDoc.Commands, cueDoc.Commands)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "p.txt", sampleJSON))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported protocol file extension")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read protocol")
}

func TestParseCUE_RejectsIncomplete(t *testing.T) {
	_, err := ParseCUE([]byte(`schemaVersion: int`), "p.cue")
	require.Error(t, err)
}

func TestParseYAML_Empty(t *testing.T) {
	_, err := ParseYAML([]byte(""))
	require.Error(t, err)
}

func TestDocumentHash_ChangesWithCommands(t *testing.T) {
	a, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)
	b, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)
	b.Commands = b.Commands[:1]

	ha, err := DocumentHash(a)
	require.NoError(t, err)
	hb, err := DocumentHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

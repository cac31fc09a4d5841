package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/labrun/internal/hardware/sim"
	"github.com/roach88/labrun/internal/protocol"
)

// benchProtocol declares one of each module plus a pipette and three labware.
const benchProtocol = `{
  "schemaVersion": 4,
  "metadata": {"protocolName": "bench"},
  "pipettes": {"p300": {"mount": "left", "name": "p300_single"}},
  "labwareDefinitions": {
    "plate": {"metadata": {"displayName": "PCR Plate"}, "wells": {"A1": {}, "A2": {}}},
    "tips": {"metadata": {"displayName": "Tip Rack"}, "wells": {"A1": {}, "B1": {}}}
  },
  "modules": {
    "mag": {"model": "magneticModuleV2", "slot": "1"},
    "temp": {"model": "temperatureModuleV2", "slot": "3"},
    "tc": {"model": "thermocyclerModuleV1", "slot": "7"},
    "shaker": {"model": "heaterShakerModuleV1", "slot": "6"}
  },
  "labware": {
    "tiprack": {"slot": "2", "definitionId": "tips"},
    "magplate": {"slot": "mag", "definitionId": "plate"},
    "tcplate": {"slot": "tc", "definitionId": "plate"}
  },
  "commands": []
}`

func fullRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(FamilyMaps{
		Pipette:      PipetteHandlers(),
		Magnetic:     MagneticHandlers(),
		Temperature:  TemperatureHandlers(),
		Thermocycler: ThermocyclerHandlers(),
	})
	require.NoError(t, err)
	return r
}

// loadedBench is a bench protocol loaded onto a simulated deck with the
// loading calls cleared from the log.
type loadedBench struct {
	deck        *sim.Deck
	doc         *protocol.Document
	instruments Instruments
	labware     LoadedLabware
	modules     Modules
}

func newLoadedBench(t *testing.T, commands ...protocol.Command) *loadedBench {
	t.Helper()
	ctx := context.Background()

	doc, err := protocol.Parse([]byte(benchProtocol))
	require.NoError(t, err)
	doc.Commands = commands

	deck := sim.NewDeck()
	instruments, err := LoadPipettes(ctx, deck, doc)
	require.NoError(t, err)
	modules, err := LoadModules(ctx, deck, doc)
	require.NoError(t, err)
	labware, err := LoadLabware(ctx, deck, doc, modules)
	require.NoError(t, err)
	deck.Log().Reset()

	return &loadedBench{deck: deck, doc: doc, instruments: instruments, labware: labware, modules: modules}
}

func (b *loadedBench) dispatch(t *testing.T, registry *Registry, opts ...Option) error {
	t.Helper()
	return New(b.deck, registry, opts...).Dispatch(context.Background(), b.doc, b.instruments, b.labware, b.modules)
}

func cmd(commandType string, params protocol.Object) protocol.Command {
	return protocol.Command{Type: commandType, Params: params}
}

// recordingObserver remembers every callback.
type recordingObserver struct {
	events []string
	errs   []error
}

func (o *recordingObserver) CommandStarted(index int, c protocol.Command) {
	o.events = append(o.events, "start:"+c.Type)
}

func (o *recordingObserver) CommandFinished(index int, c protocol.Command, err error) {
	o.events = append(o.events, "finish:"+c.Type)
	o.errs = append(o.errs, err)
}

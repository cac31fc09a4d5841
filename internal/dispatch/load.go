package dispatch

import (
	"context"
	"fmt"

	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
)

// loadError wraps a hardware failure raised while loading.
func loadError(kind, id string, err error) *Error {
	return &Error{
		Code:    ErrCodeHardwareFailure,
		Message: fmt.Sprintf("load %s %q", kind, id),
		Index:   -1,
		Err:     err,
	}
}

// LoadPipettes attaches every declared pipette, in sorted id order.
func LoadPipettes(ctx context.Context, deck hardware.Deck, doc *protocol.Document) (Instruments, error) {
	out := make(Instruments, len(doc.Pipettes))
	for _, id := range sortedKeys(doc.Pipettes) {
		entry := doc.Pipettes[id]
		inst, err := deck.LoadInstrument(ctx, entry.Name, entry.Mount)
		if err != nil {
			return nil, loadError("pipette", id, err)
		}
		out[id] = inst
	}
	return out, nil
}

// LoadModules attaches one module per declared entry, in sorted id order.
func LoadModules(ctx context.Context, deck hardware.Deck, doc *protocol.Document) (Modules, error) {
	out := make(Modules, len(doc.Modules))
	for _, id := range sortedKeys(doc.Modules) {
		entry := doc.Modules[id]
		mod, err := deck.LoadModule(ctx, entry.Model, entry.Slot)
		if err != nil {
			lerr := loadError("module", id, err)
			lerr.ModuleID = id
			return nil, lerr
		}
		out[id] = mod
	}
	return out, nil
}

// LoadLabware places every labware entry, in sorted id order. An entry whose
// slot is a loaded module id goes onto that module; any other slot is a deck
// position.
func LoadLabware(ctx context.Context, deck hardware.Deck, doc *protocol.Document, modules Modules) (LoadedLabware, error) {
	out := make(LoadedLabware, len(doc.Labware))
	for _, id := range sortedKeys(doc.Labware) {
		entry := doc.Labware[id]
		def, ok := doc.LabwareDefinitions[entry.DefinitionID]
		if !ok {
			return nil, NewLookupError("labware definition", entry.DefinitionID)
		}

		var (
			lw  hardware.Labware
			err error
		)
		if mod, onModule := modules[entry.Slot]; onModule && mod.Valid() {
			lw, err = mod.Context().LoadLabware(ctx, def, entry.DisplayName)
		} else {
			lw, err = deck.LoadLabware(ctx, def, entry.Slot, entry.DisplayName)
		}
		if err != nil {
			return nil, loadError("labware", id, err)
		}
		out[id] = lw
	}
	return out, nil
}

package protocol

// Document is a parsed protocol: labware placements, attached modules,
// pipettes and the ordered command list.
//
// A Document is loaded once before dispatch and never mutated afterwards.
type Document struct {
	SchemaVersion      int                     `json:"schemaVersion"`
	Metadata           Object                  `json:"metadata,omitempty"`
	Pipettes           map[string]PipetteEntry `json:"pipettes,omitempty"`
	Labware            map[string]LabwareEntry `json:"labware"`
	LabwareDefinitions map[string]Object       `json:"labwareDefinitions"`
	Modules            map[string]ModuleEntry  `json:"modules,omitempty"`
	Commands           []Command               `json:"commands"`
}

// LabwareEntry places a labware definition on a deck slot, or on a module
// when Slot holds a module id.
type LabwareEntry struct {
	Slot         string `json:"slot"`
	DefinitionID string `json:"definitionId"`
	DisplayName  string `json:"displayName,omitempty"`
}

// ModuleEntry declares an attached module by model and slot.
type ModuleEntry struct {
	Model string `json:"model"`
	Slot  string `json:"slot"`
}

// PipetteEntry declares a pipette by name and mount.
type PipetteEntry struct {
	Mount string `json:"mount"`
	Name  string `json:"name"`
}

// Command is one step of a protocol. Params are validated only by the
// handler that consumes them.
type Command struct {
	Type   string `json:"command"`
	Params Object `json:"params"`
}

// Value renders the document as a Value tree for canonical hashing.
func (d *Document) Value() Object {
	pipettes := make(Object, len(d.Pipettes))
	for id, p := range d.Pipettes {
		pipettes[id] = Object{"mount": String(p.Mount), "name": String(p.Name)}
	}

	labware := make(Object, len(d.Labware))
	for id, l := range d.Labware {
		entry := Object{"slot": String(l.Slot), "definitionId": String(l.DefinitionID)}
		if l.DisplayName != "" {
			entry["displayName"] = String(l.DisplayName)
		}
		labware[id] = entry
	}

	defs := make(Object, len(d.LabwareDefinitions))
	for id, def := range d.LabwareDefinitions {
		defs[id] = def
	}

	modules := make(Object, len(d.Modules))
	for id, m := range d.Modules {
		modules[id] = Object{"model": String(m.Model), "slot": String(m.Slot)}
	}

	commands := make(Array, len(d.Commands))
	for i, c := range d.Commands {
		params := c.Params
		if params == nil {
			params = Object{}
		}
		commands[i] = Object{"command": String(c.Type), "params": params}
	}

	out := Object{
		"schemaVersion":      Number(d.SchemaVersion),
		"pipettes":           pipettes,
		"labware":            labware,
		"labwareDefinitions": defs,
		"modules":            modules,
		"commands":           commands,
	}
	if d.Metadata != nil {
		out["metadata"] = d.Metadata
	}
	return out
}

// Name returns metadata.protocolName, or "" when absent.
func (d *Document) Name() string {
	if s, ok := d.Metadata["protocolName"].(String); ok {
		return string(s)
	}
	return ""
}

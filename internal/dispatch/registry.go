package dispatch

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/labrun/internal/hardware"
)

// Family names a group of commands that share a target kind.
type Family string

const (
	FamilyPipette      Family = "pipette"
	FamilyMagnetic     Family = "magnetic"
	FamilyTemperature  Family = "temperature"
	FamilyThermocycler Family = "thermocycler"
	FamilyControl      Family = "control"
)

// Capability returns the module capability a family's commands require.
// Pipette and control commands do not target modules.
func (f Family) Capability() (hardware.Capability, bool) {
	switch f {
	case FamilyMagnetic:
		return hardware.CapabilityMagnetic, true
	case FamilyTemperature:
		return hardware.CapabilityTemperature, true
	case FamilyThermocycler:
		return hardware.CapabilityThermocycler, true
	default:
		return hardware.CapabilityGeneric, false
	}
}

// Instruments maps pipette ids to loaded instruments.
type Instruments map[string]hardware.Instrument

// LoadedLabware maps labware ids to loaded labware.
type LoadedLabware map[string]hardware.Labware

// Modules maps module ids to loaded modules.
type Modules map[string]hardware.Module

// Handler signatures, one per family.
type (
	PipetteHandler      func(ctx context.Context, instruments Instruments, labware LoadedLabware, params Params) error
	MagneticHandler     func(ctx context.Context, mod hardware.MagneticModule, params Params) error
	TemperatureHandler  func(ctx context.Context, mod hardware.TemperatureModule, params Params) error
	ThermocyclerHandler func(ctx context.Context, mod hardware.ThermocyclerModule, params Params) error
)

// FamilyMaps is the caller-supplied set of per-family handler maps, keyed by
// command type.
type FamilyMaps struct {
	Pipette      map[string]PipetteHandler
	Magnetic     map[string]MagneticHandler
	Temperature  map[string]TemperatureHandler
	Thermocycler map[string]ThermocyclerHandler
}

// Descriptor is a registry entry: the command's family and its handler.
// Exactly one handler field is set, matching Family.
type Descriptor struct {
	Type       string
	Family     Family
	Capability hardware.Capability

	pipette      PipetteHandler
	magnetic     MagneticHandler
	temperature  TemperatureHandler
	thermocycler ThermocyclerHandler
}

// TargetsModule reports whether the command names a module in params.module.
func (d Descriptor) TargetsModule() bool {
	_, ok := d.Family.Capability()
	return ok
}

// Registry is the unified command-type table. It is immutable once built.
type Registry struct {
	entries map[string]Descriptor
}

// NewRegistry merges the family maps into one table. A command type present
// in two families, or shadowing a control command, is a REGISTRY_COLLISION;
// a nil handler is MISSING_HANDLER. Families are added in a fixed order and
// types in sorted order, so the error reported is always the same one.
func NewRegistry(maps FamilyMaps) (*Registry, error) {
	r := &Registry{entries: make(map[string]Descriptor)}

	add := func(d Descriptor) error {
		if !d.hasHandler() {
			return &Error{
				Code:        ErrCodeMissingHandler,
				Message:     fmt.Sprintf("%s command %q has a nil handler", d.Family, d.Type),
				Index:       -1,
				CommandType: d.Type,
				Family:      d.Family,
			}
		}
		if isControlCommand(d.Type) {
			return &Error{
				Code:        ErrCodeRegistryCollision,
				Message:     fmt.Sprintf("%s command %q shadows a control command", d.Family, d.Type),
				Index:       -1,
				CommandType: d.Type,
				Family:      d.Family,
			}
		}
		if prev, ok := r.entries[d.Type]; ok {
			return &Error{
				Code:        ErrCodeRegistryCollision,
				Message:     fmt.Sprintf("command %q registered by both %s and %s", d.Type, prev.Family, d.Family),
				Index:       -1,
				CommandType: d.Type,
				Family:      d.Family,
			}
		}
		r.entries[d.Type] = d
		return nil
	}

	for _, t := range sortedKeys(maps.Pipette) {
		if err := add(Descriptor{Type: t, Family: FamilyPipette, pipette: maps.Pipette[t]}); err != nil {
			return nil, err
		}
	}
	for _, t := range sortedKeys(maps.Magnetic) {
		d := Descriptor{Type: t, Family: FamilyMagnetic, Capability: hardware.CapabilityMagnetic, magnetic: maps.Magnetic[t]}
		if err := add(d); err != nil {
			return nil, err
		}
	}
	for _, t := range sortedKeys(maps.Temperature) {
		d := Descriptor{Type: t, Family: FamilyTemperature, Capability: hardware.CapabilityTemperature, temperature: maps.Temperature[t]}
		if err := add(d); err != nil {
			return nil, err
		}
	}
	for _, t := range sortedKeys(maps.Thermocycler) {
		d := Descriptor{Type: t, Family: FamilyThermocycler, Capability: hardware.CapabilityThermocycler, thermocycler: maps.Thermocycler[t]}
		if err := add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (d Descriptor) hasHandler() bool {
	switch d.Family {
	case FamilyPipette:
		return d.pipette != nil
	case FamilyMagnetic:
		return d.magnetic != nil
	case FamilyTemperature:
		return d.temperature != nil
	case FamilyThermocycler:
		return d.thermocycler != nil
	default:
		return false
	}
}

// Lookup returns the descriptor for a command type.
func (r *Registry) Lookup(commandType string) (Descriptor, bool) {
	d, ok := r.entries[commandType]
	return d, ok
}

// Supports reports whether commandType is registered or is a control command.
func (r *Registry) Supports(commandType string) bool {
	_, ok := r.entries[commandType]
	return ok || isControlCommand(commandType)
}

// Types returns every registered command type in sorted order. Control
// commands are not included.
func (r *Registry) Types() []string {
	return sortedKeys(r.entries)
}

// Len returns the number of registered command types.
func (r *Registry) Len() int {
	return len(r.entries)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

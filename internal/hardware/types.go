package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/labrun/internal/protocol"
)

// Point is a deck-relative offset in millimetres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Origin names the reference a Location's offset is measured from.
type Origin string

const (
	OriginBottom Origin = "bottom" // well bottom
	OriginTop    Origin = "top"    // well top
	OriginSlot   Origin = "slot"   // deck slot, no labware
)

// Location is a geometric target expressed as references, not coordinates.
// Geometry resolution belongs to the hardware implementation.
type Location struct {
	Labware Labware
	Well    string
	Slot    string
	Origin  Origin
	Offset  Point
}

// String renders the location for logs and call traces.
func (l Location) String() string {
	if l.Origin == OriginSlot {
		return fmt.Sprintf("slot %s %+v", l.Slot, l.Offset)
	}
	name := "<nil>"
	if l.Labware != nil {
		name = l.Labware.Name()
	}
	return fmt.Sprintf("%s/%s %s %+v", name, l.Well, l.Origin, l.Offset)
}

// MoveOptions tunes an instrument move.
type MoveOptions struct {
	// MinimumZHeight is the lowest z the arc may travel at; 0 means default.
	MinimumZHeight float64
	// ForceDirect moves in a straight line without an arc.
	ForceDirect bool
}

// Labware is a loaded labware handle.
type Labware interface {
	Name() string
	HasWell(well string) bool
}

// Instrument is a pipetting instrument.
type Instrument interface {
	Name() string
	Mount() string
	Aspirate(ctx context.Context, volume float64, loc Location, flowRate float64) error
	Dispense(ctx context.Context, volume float64, loc Location, flowRate float64) error
	AirGap(ctx context.Context, volume float64, loc Location, flowRate float64) error
	Blowout(ctx context.Context, loc Location, flowRate float64) error
	TouchTip(ctx context.Context, loc Location) error
	PickUpTip(ctx context.Context, loc Location) error
	DropTip(ctx context.Context, loc Location) error
	MoveTo(ctx context.Context, loc Location, opts MoveOptions) error
}

// Deck is the protocol-level context: it loads labware, modules and
// instruments and owns run-wide controls such as delays.
type Deck interface {
	LoadLabware(ctx context.Context, def protocol.Object, slot, label string) (Labware, error)
	LoadModule(ctx context.Context, model, slot string) (Module, error)
	LoadInstrument(ctx context.Context, name, mount string) (Instrument, error)
	HasSlot(slot string) bool
	Delay(ctx context.Context, d time.Duration, message string) error
	Pause(ctx context.Context, message string) error
}

// ProfileStep is one unrolled thermocycler step.
type ProfileStep struct {
	Temperature     float64 `json:"temperature"`
	HoldTimeSeconds float64 `json:"hold_time_seconds"`
}

// ModuleContext is the operation set every module supports.
type ModuleContext interface {
	Model() string
	Slot() string
	LoadLabware(ctx context.Context, def protocol.Object, label string) (Labware, error)
}

// MagneticModule raises and lowers a magnet under a plate.
type MagneticModule interface {
	ModuleContext
	// Engage raises the magnet to heightFromBase millimetres above the
	// module's mechanical base.
	Engage(ctx context.Context, heightFromBase float64) error
	// Disengage retracts the magnet. Calling it on a disengaged module is a no-op.
	Disengage(ctx context.Context) error
}

// TemperatureModule heats or cools a block.
type TemperatureModule interface {
	ModuleContext
	// StartSetTemperature begins a ramp and returns without waiting.
	StartSetTemperature(ctx context.Context, celsius float64) error
	// AwaitTemperature blocks until the block reports celsius, or fails when
	// the target cannot be reached.
	AwaitTemperature(ctx context.Context, celsius float64) error
	Deactivate(ctx context.Context) error
}

// ThermocyclerModule runs block and lid temperature programs.
type ThermocyclerModule interface {
	ModuleContext
	OpenLid(ctx context.Context) error
	CloseLid(ctx context.Context) error
	DeactivateBlock(ctx context.Context) error
	DeactivateLid(ctx context.Context) error
	SetBlockTemperature(ctx context.Context, celsius float64) error
	SetLidTemperature(ctx context.Context, celsius float64) error
	ExecuteProfile(ctx context.Context, steps []ProfileStep, repetitions int, blockMaxVolume float64) error
}

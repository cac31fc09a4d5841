package dispatch

import (
	"context"

	"github.com/roach88/labrun/internal/hardware"
)

// Pipette command types.
const (
	CmdAspirate   = "aspirate"
	CmdDispense   = "dispense"
	CmdAirGap     = "airGap"
	CmdBlowout    = "blowout"
	CmdTouchTip   = "touchTip"
	CmdPickUpTip  = "pickUpTip"
	CmdDropTip    = "dropTip"
	CmdMoveToWell = "moveToWell"
)

// PipetteHandlers returns the pipette command family.
func PipetteHandlers() map[string]PipetteHandler {
	return map[string]PipetteHandler{
		CmdAspirate:   liquidHandler(hardware.Instrument.Aspirate),
		CmdDispense:   liquidHandler(hardware.Instrument.Dispense),
		CmdAirGap:     liquidHandler(hardware.Instrument.AirGap),
		CmdBlowout:    blowout,
		CmdTouchTip:   touchTip,
		CmdPickUpTip:  tipHandler(hardware.Instrument.PickUpTip),
		CmdDropTip:    tipHandler(hardware.Instrument.DropTip),
		CmdMoveToWell: moveToWell,
	}
}

// lookupPipette resolves params.pipette.
func lookupPipette(instruments Instruments, params Params) (hardware.Instrument, error) {
	id, err := params.String("pipette")
	if err != nil {
		return nil, err
	}
	inst, ok := instruments[id]
	if !ok || inst == nil {
		return nil, NewLookupError("pipette", id)
	}
	return inst, nil
}

// lookupWell resolves params.labware and params.well into a location at
// origin. The offset is left for the caller.
func lookupWell(labware LoadedLabware, params Params, origin hardware.Origin) (hardware.Location, error) {
	labwareID, err := params.String("labware")
	if err != nil {
		return hardware.Location{}, err
	}
	lw, ok := labware[labwareID]
	if !ok || lw == nil {
		return hardware.Location{}, NewLookupError("labware", labwareID)
	}
	well, err := params.String("well")
	if err != nil {
		return hardware.Location{}, err
	}
	if !lw.HasWell(well) {
		return hardware.Location{}, NewLookupError("well", labwareID+"/"+well)
	}
	return hardware.Location{Labware: lw, Well: well, Origin: origin}, nil
}

// bottomLocation resolves a well and applies offsetFromBottomMm.
func bottomLocation(labware LoadedLabware, params Params) (hardware.Location, error) {
	loc, err := lookupWell(labware, params, hardware.OriginBottom)
	if err != nil {
		return loc, err
	}
	z, err := params.Number("offsetFromBottomMm")
	if err != nil {
		return loc, err
	}
	loc.Offset.Z = z
	return loc, nil
}

type liquidOp func(hardware.Instrument, context.Context, float64, hardware.Location, float64) error

// liquidHandler builds aspirate, dispense and airGap, which share params.
func liquidHandler(op liquidOp) PipetteHandler {
	return func(ctx context.Context, instruments Instruments, labware LoadedLabware, params Params) error {
		inst, err := lookupPipette(instruments, params)
		if err != nil {
			return err
		}
		volume, err := params.Number("volume")
		if err != nil {
			return err
		}
		loc, err := bottomLocation(labware, params)
		if err != nil {
			return err
		}
		flowRate, err := params.Number("flowRate")
		if err != nil {
			return err
		}
		return op(inst, ctx, volume, loc, flowRate)
	}
}

func blowout(ctx context.Context, instruments Instruments, labware LoadedLabware, params Params) error {
	inst, err := lookupPipette(instruments, params)
	if err != nil {
		return err
	}
	loc, err := bottomLocation(labware, params)
	if err != nil {
		return err
	}
	flowRate, err := params.Number("flowRate")
	if err != nil {
		return err
	}
	return inst.Blowout(ctx, loc, flowRate)
}

func touchTip(ctx context.Context, instruments Instruments, labware LoadedLabware, params Params) error {
	inst, err := lookupPipette(instruments, params)
	if err != nil {
		return err
	}
	loc, err := bottomLocation(labware, params)
	if err != nil {
		return err
	}
	return inst.TouchTip(ctx, loc)
}

type tipOp func(hardware.Instrument, context.Context, hardware.Location) error

// tipHandler builds pickUpTip and dropTip, which target the well top.
func tipHandler(op tipOp) PipetteHandler {
	return func(ctx context.Context, instruments Instruments, labware LoadedLabware, params Params) error {
		inst, err := lookupPipette(instruments, params)
		if err != nil {
			return err
		}
		loc, err := lookupWell(labware, params, hardware.OriginTop)
		if err != nil {
			return err
		}
		return op(inst, ctx, loc)
	}
}

func moveToWell(ctx context.Context, instruments Instruments, labware LoadedLabware, params Params) error {
	inst, err := lookupPipette(instruments, params)
	if err != nil {
		return err
	}
	loc, err := lookupWell(labware, params, hardware.OriginBottom)
	if err != nil {
		return err
	}
	if loc.Offset, err = params.Offset("offset"); err != nil {
		return err
	}
	opts, err := moveOptions(params)
	if err != nil {
		return err
	}
	return inst.MoveTo(ctx, loc, opts)
}

// moveOptions reads the optional minimumZHeight and forceDirect params.
func moveOptions(params Params) (hardware.MoveOptions, error) {
	minZ, err := params.OptionalNumber("minimumZHeight", 0)
	if err != nil {
		return hardware.MoveOptions{}, err
	}
	direct, err := params.Bool("forceDirect")
	if err != nil {
		return hardware.MoveOptions{}, err
	}
	return hardware.MoveOptions{MinimumZHeight: minZ, ForceDirect: direct}, nil
}

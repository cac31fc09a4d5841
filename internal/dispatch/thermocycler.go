package dispatch

import (
	"context"

	"github.com/roach88/labrun/internal/hardware"
)

// Thermocycler command types.
const (
	CmdCloseLid                  = "thermocycler/closeLid"
	CmdOpenLid                   = "thermocycler/openLid"
	CmdDeactivateBlock           = "thermocycler/deactivateBlock"
	CmdDeactivateLid             = "thermocycler/deactivateLid"
	CmdSetTargetBlockTemperature = "thermocycler/setTargetBlockTemperature"
	CmdSetTargetLidTemperature   = "thermocycler/setTargetLidTemperature"
	CmdRunProfile                = "thermocycler/runProfile"
	CmdAwaitBlockTemperature     = "thermocycler/awaitBlockTemperature"
	CmdAwaitLidTemperature       = "thermocycler/awaitLidTemperature"
	CmdAwaitProfileComplete      = "thermocycler/awaitProfileComplete"
)

// ThermocyclerHandlers returns the thermocycler command family.
func ThermocyclerHandlers() map[string]ThermocyclerHandler {
	return map[string]ThermocyclerHandler{
		CmdCloseLid:                  closeLid,
		CmdOpenLid:                   openLid,
		CmdDeactivateBlock:           deactivateBlock,
		CmdDeactivateLid:             deactivateLid,
		CmdSetTargetBlockTemperature: setTargetBlockTemperature,
		CmdSetTargetLidTemperature:   setTargetLidTemperature,
		CmdRunProfile:                runProfile,
		CmdAwaitBlockTemperature:     awaitThermocycler,
		CmdAwaitLidTemperature:       awaitThermocycler,
		CmdAwaitProfileComplete:      awaitThermocycler,
	}
}

func closeLid(ctx context.Context, mod hardware.ThermocyclerModule, _ Params) error {
	return mod.CloseLid(ctx)
}

func openLid(ctx context.Context, mod hardware.ThermocyclerModule, _ Params) error {
	return mod.OpenLid(ctx)
}

func deactivateBlock(ctx context.Context, mod hardware.ThermocyclerModule, _ Params) error {
	return mod.DeactivateBlock(ctx)
}

func deactivateLid(ctx context.Context, mod hardware.ThermocyclerModule, _ Params) error {
	return mod.DeactivateLid(ctx)
}

// setTargetBlockTemperature holds the block at temperature. A volume param
// is rejected; only runProfile takes one.
func setTargetBlockTemperature(ctx context.Context, mod hardware.ThermocyclerModule, params Params) error {
	if err := rejectVolume(params); err != nil {
		return err
	}
	celsius, err := params.Number("temperature")
	if err != nil {
		return err
	}
	return mod.SetBlockTemperature(ctx, celsius)
}

func setTargetLidTemperature(ctx context.Context, mod hardware.ThermocyclerModule, params Params) error {
	if err := rejectVolume(params); err != nil {
		return err
	}
	celsius, err := params.Number("temperature")
	if err != nil {
		return err
	}
	return mod.SetLidTemperature(ctx, celsius)
}

// runProfile executes the steps once, with volume as the block's max volume.
func runProfile(ctx context.Context, mod hardware.ThermocyclerModule, params Params) error {
	volume, err := params.Number("volume")
	if err != nil {
		return err
	}
	steps, err := params.Profile("profile")
	if err != nil {
		return err
	}
	return mod.ExecuteProfile(ctx, steps, 1, volume)
}

// awaitThermocycler is a no-op: the set and run operations block in the
// hardware context until they complete.
func awaitThermocycler(context.Context, hardware.ThermocyclerModule, Params) error {
	return nil
}

func rejectVolume(params Params) error {
	if params.Has("volume") {
		return NewMalformedParamError("volume", "only %s accepts a volume", CmdRunProfile)
	}
	return nil
}

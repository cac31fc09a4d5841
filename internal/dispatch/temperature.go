package dispatch

import (
	"context"

	"github.com/roach88/labrun/internal/hardware"
)

// Temperature module command types.
const (
	CmdSetTargetTemperature  = "temperatureModule/setTargetTemperature"
	CmdDeactivateTemperature = "temperatureModule/deactivate"
	CmdAwaitTemperature      = "temperatureModule/awaitTemperature"
)

// TemperatureHandlers returns the temperature module command family.
func TemperatureHandlers() map[string]TemperatureHandler {
	return map[string]TemperatureHandler{
		CmdSetTargetTemperature:  setTargetTemperature,
		CmdDeactivateTemperature: deactivateTemperature,
		CmdAwaitTemperature:      awaitTemperature,
	}
}

// setTargetTemperature starts a ramp and returns without waiting for it.
func setTargetTemperature(ctx context.Context, mod hardware.TemperatureModule, params Params) error {
	celsius, err := params.Number("temperature")
	if err != nil {
		return err
	}
	return mod.StartSetTemperature(ctx, celsius)
}

func deactivateTemperature(ctx context.Context, mod hardware.TemperatureModule, _ Params) error {
	return mod.Deactivate(ctx)
}

// awaitTemperature blocks until the module reports the temperature.
func awaitTemperature(ctx context.Context, mod hardware.TemperatureModule, params Params) error {
	celsius, err := params.Number("temperature")
	if err != nil {
		return err
	}
	return mod.AwaitTemperature(ctx, celsius)
}

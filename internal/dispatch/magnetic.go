package dispatch

import (
	"context"

	"github.com/roach88/labrun/internal/hardware"
)

// Magnetic module command types.
const (
	CmdEngageMagnet    = "magneticModule/engageMagnet"
	CmdDisengageMagnet = "magneticModule/disengageMagnet"
)

// MagneticHandlers returns the magnetic module command family.
func MagneticHandlers() map[string]MagneticHandler {
	return map[string]MagneticHandler{
		CmdEngageMagnet:    engageMagnet,
		CmdDisengageMagnet: disengageMagnet,
	}
}

// engageMagnet passes engageHeight through unchanged as height from base.
func engageMagnet(ctx context.Context, mod hardware.MagneticModule, params Params) error {
	height, err := params.Number("engageHeight")
	if err != nil {
		return err
	}
	return mod.Engage(ctx, height)
}

func disengageMagnet(ctx context.Context, mod hardware.MagneticModule, _ Params) error {
	return mod.Disengage(ctx)
}

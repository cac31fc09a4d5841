package dispatch

import (
	"context"
	"math"
	"time"

	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
)

// Control command types. They are handled by the dispatcher itself and can
// never be registered by a family.
const (
	CmdDelay      = "delay"
	CmdMoveToSlot = "moveToSlot"
)

type controlHandler func(ctx context.Context, deck hardware.Deck, instruments Instruments, params Params) error

var controlCommands = map[string]controlHandler{
	CmdDelay:      delay,
	CmdMoveToSlot: moveToSlot,
}

func isControlCommand(commandType string) bool {
	_, ok := controlCommands[commandType]
	return ok
}

// ControlCommands returns the control command types in sorted order.
func ControlCommands() []string {
	return sortedKeys(controlCommands)
}

// delay waits params.wait seconds, or pauses for a resume when wait is true.
func delay(ctx context.Context, deck hardware.Deck, _ Instruments, params Params) error {
	message, err := params.OptionalString("message")
	if err != nil {
		return err
	}
	if !params.Has("wait") {
		return NewMissingParamError("wait")
	}

	switch wait := params["wait"].(type) {
	case protocol.Bool:
		if !wait {
			return NewMalformedParamError("wait", "want seconds or true, got false")
		}
		return deck.Pause(ctx, message)
	case protocol.Number:
		seconds := float64(wait)
		if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return NewMalformedParamError("wait", "want a non-negative number of seconds, got %v", seconds)
		}
		return deck.Delay(ctx, time.Duration(seconds*float64(time.Second)), message)
	default:
		return NewMalformedParamError("wait", "want seconds or true, got %s", protocol.KindOf(wait))
	}
}

// moveToSlot moves a pipette above a deck slot.
func moveToSlot(ctx context.Context, deck hardware.Deck, instruments Instruments, params Params) error {
	inst, err := lookupPipette(instruments, params)
	if err != nil {
		return err
	}
	slot, err := params.String("slot")
	if err != nil {
		return err
	}
	if !deck.HasSlot(slot) {
		return NewLookupError("slot", slot)
	}
	offset, err := params.Offset("offset")
	if err != nil {
		return err
	}
	opts, err := moveOptions(params)
	if err != nil {
		return err
	}
	loc := hardware.Location{Slot: slot, Origin: hardware.OriginSlot, Offset: offset}
	return inst.MoveTo(ctx, loc, opts)
}

package sim

import (
	"context"
	"fmt"

	"github.com/roach88/labrun/internal/hardware"
)

// volumeTolerance absorbs float rounding when comparing volumes.
const volumeTolerance = 1e-9

// Instrument is a simulated single-channel pipette.
// It tracks tip presence and held volume.
type Instrument struct {
	name      string
	mount     string
	maxVolume float64
	hasTip    bool
	volume    float64
	log       *CallLog
}

var _ hardware.Instrument = (*Instrument)(nil)

// Name returns the pipette model name.
func (p *Instrument) Name() string { return p.name }

// Mount returns "left" or "right".
func (p *Instrument) Mount() string { return p.mount }

// HasTip reports whether a tip is attached.
func (p *Instrument) HasTip() bool { return p.hasTip }

// Volume returns the liquid currently held.
func (p *Instrument) Volume() float64 { return p.volume }

func (p *Instrument) target() string {
	return "pipette/" + p.mount
}

func (p *Instrument) requireTip(op string) error {
	if !p.hasTip {
		return fmt.Errorf("%s: cannot %s without a tip", p.target(), op)
	}
	return nil
}

func liquidArgs(volume float64, loc hardware.Location, flowRate float64) map[string]any {
	return map[string]any{"volume": volume, "location": loc.String(), "flowRate": flowRate}
}

// Aspirate draws volume µL at loc.
func (p *Instrument) Aspirate(ctx context.Context, volume float64, loc hardware.Location, flowRate float64) error {
	if err := p.requireTip("aspirate"); err != nil {
		return err
	}
	if volume <= 0 {
		return fmt.Errorf("%s: aspirate volume must be positive, got %v", p.target(), volume)
	}
	if p.volume+volume > p.maxVolume+volumeTolerance {
		return fmt.Errorf("%s: aspirating %v µL would exceed max volume %v µL (holding %v)", p.target(), volume, p.maxVolume, p.volume)
	}
	if err := p.log.record(ctx, p.target(), "aspirate", liquidArgs(volume, loc, flowRate)); err != nil {
		return err
	}
	p.volume += volume
	return nil
}

// Dispense pushes out volume µL at loc.
func (p *Instrument) Dispense(ctx context.Context, volume float64, loc hardware.Location, flowRate float64) error {
	if err := p.requireTip("dispense"); err != nil {
		return err
	}
	if volume <= 0 {
		return fmt.Errorf("%s: dispense volume must be positive, got %v", p.target(), volume)
	}
	if volume > p.volume+volumeTolerance {
		return fmt.Errorf("%s: cannot dispense %v µL, holding %v µL", p.target(), volume, p.volume)
	}
	if err := p.log.record(ctx, p.target(), "dispense", liquidArgs(volume, loc, flowRate)); err != nil {
		return err
	}
	p.volume -= volume
	if p.volume < volumeTolerance {
		p.volume = 0
	}
	return nil
}

// AirGap draws volume µL of air above loc.
func (p *Instrument) AirGap(ctx context.Context, volume float64, loc hardware.Location, flowRate float64) error {
	if err := p.requireTip("air gap"); err != nil {
		return err
	}
	if p.volume+volume > p.maxVolume+volumeTolerance {
		return fmt.Errorf("%s: air gap of %v µL would exceed max volume %v µL", p.target(), volume, p.maxVolume)
	}
	if err := p.log.record(ctx, p.target(), "airGap", liquidArgs(volume, loc, flowRate)); err != nil {
		return err
	}
	p.volume += volume
	return nil
}

// Blowout empties the tip at loc.
func (p *Instrument) Blowout(ctx context.Context, loc hardware.Location, flowRate float64) error {
	if err := p.requireTip("blow out"); err != nil {
		return err
	}
	if err := p.log.record(ctx, p.target(), "blowout", map[string]any{"location": loc.String(), "flowRate": flowRate}); err != nil {
		return err
	}
	p.volume = 0
	return nil
}

// TouchTip touches the tip to the well walls at loc.
func (p *Instrument) TouchTip(ctx context.Context, loc hardware.Location) error {
	if err := p.requireTip("touch tip"); err != nil {
		return err
	}
	return p.log.record(ctx, p.target(), "touchTip", map[string]any{"location": loc.String()})
}

// PickUpTip attaches a tip from loc.
func (p *Instrument) PickUpTip(ctx context.Context, loc hardware.Location) error {
	if p.hasTip {
		return fmt.Errorf("%s: cannot pick up a tip while one is attached", p.target())
	}
	if err := p.log.record(ctx, p.target(), "pickUpTip", map[string]any{"location": loc.String()}); err != nil {
		return err
	}
	p.hasTip = true
	return nil
}

// DropTip ejects the attached tip into loc.
func (p *Instrument) DropTip(ctx context.Context, loc hardware.Location) error {
	if err := p.requireTip("drop tip"); err != nil {
		return err
	}
	if err := p.log.record(ctx, p.target(), "dropTip", map[string]any{"location": loc.String()}); err != nil {
		return err
	}
	p.hasTip = false
	p.volume = 0
	return nil
}

// MoveTo moves the pipette without liquid handling.
func (p *Instrument) MoveTo(ctx context.Context, loc hardware.Location, opts hardware.MoveOptions) error {
	return p.log.record(ctx, p.target(), "moveTo", map[string]any{
		"location":       loc.String(),
		"minimumZHeight": opts.MinimumZHeight,
		"forceDirect":    opts.ForceDirect,
	})
}

package sim

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
)

// DeckTarget is the call-log target for deck-level operations.
const DeckTarget = "deck"

// standardSlots are the twelve positions of the deck.
var standardSlots = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}

// thermocyclerSlot is where a thermocycler sits.
const thermocyclerSlot = "7"

// thermocyclerSpan lists every slot a thermocycler occupies.
var thermocyclerSpan = []string{"7", "8", "10", "11"}

// Option configures a Deck.
type Option func(*Deck)

// WithLogger sets the logger used for call tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deck) {
		d.logger = logger
	}
}

// WithSpeed makes delays and temperature ramps take d/speed of wall time.
// A speed of 0 (the default) never sleeps.
func WithSpeed(speed float64) Option {
	return func(d *Deck) {
		d.clock.speed = speed
	}
}

// WithCallLog shares an existing call log.
func WithCallLog(log *CallLog) Option {
	return func(d *Deck) {
		d.log = log
	}
}

// simClock turns simulated durations into (optional) wall time.
type simClock struct {
	speed float64
}

// sleep waits d/speed or until ctx is done.
func (c simClock) sleep(ctx context.Context, d time.Duration) error {
	if c.speed <= 0 || d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(float64(d) / c.speed))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Deck is the simulated protocol context.
type Deck struct {
	log      *CallLog
	logger   *slog.Logger
	clock    simClock
	occupant map[string]string // slot -> what occupies it
	mounts   map[string]bool
}

var _ hardware.Deck = (*Deck)(nil)

// NewDeck creates an empty simulated deck.
func NewDeck(opts ...Option) *Deck {
	d := &Deck{
		occupant: make(map[string]string),
		mounts:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = NewCallLog(d.logger)
	}
	return d
}

// Log returns the shared call log.
func (d *Deck) Log() *CallLog {
	return d.log
}

// HasSlot reports whether slot names a deck position.
func (d *Deck) HasSlot(slot string) bool {
	for _, s := range standardSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// claim marks slots as occupied by what. Either every slot is claimed or
// none is.
func (d *Deck) claim(what string, slots ...string) error {
	for _, slot := range slots {
		if !d.HasSlot(slot) {
			return fmt.Errorf("unknown deck slot %q", slot)
		}
		if cur, ok := d.occupant[slot]; ok {
			return fmt.Errorf("slot %s is already occupied by %s", slot, cur)
		}
	}
	for _, slot := range slots {
		d.occupant[slot] = what
	}
	return nil
}

// release frees slots claimed by a load that then failed.
func (d *Deck) release(slots ...string) {
	for _, slot := range slots {
		delete(d.occupant, slot)
	}
}

// LoadLabware places a labware definition on a deck slot.
func (d *Deck) LoadLabware(ctx context.Context, def protocol.Object, slot, label string) (hardware.Labware, error) {
	lw := newLabware(def, label)
	if err := d.claim("labware "+lw.Name(), slot); err != nil {
		return nil, err
	}
	if err := d.log.record(ctx, DeckTarget, "loadLabware", map[string]any{"slot": slot, "name": lw.Name()}); err != nil {
		d.release(slot)
		return nil, err
	}
	return lw, nil
}

// LoadModule attaches a module. Known models become typed variants; any
// other model loads as a generic module.
func (d *Deck) LoadModule(ctx context.Context, model, slot string) (hardware.Module, error) {
	capability, _ := hardware.CapabilityForModel(model)
	slots := []string{slot}
	if capability == hardware.CapabilityThermocycler {
		slot = thermocyclerSlot
		slots = thermocyclerSpan
	}
	if err := d.claim("module "+model, slots...); err != nil {
		return hardware.Module{}, err
	}
	if err := d.log.record(ctx, DeckTarget, "loadModule", map[string]any{"model": model, "slot": slot}); err != nil {
		d.release(slots...)
		return hardware.Module{}, err
	}

	base := moduleBase{model: model, slot: slot, log: d.log, clock: d.clock}
	switch capability {
	case hardware.CapabilityMagnetic:
		return hardware.NewMagnetic(&MagneticModule{moduleBase: base}), nil
	case hardware.CapabilityTemperature:
		return hardware.NewTemperature(newTemperatureModule(base)), nil
	case hardware.CapabilityThermocycler:
		return hardware.NewThermocycler(newThermocycler(base)), nil
	default:
		return hardware.NewGeneric(&GenericModule{moduleBase: base}), nil
	}
}

// LoadInstrument attaches a pipette to a mount.
func (d *Deck) LoadInstrument(ctx context.Context, name, mount string) (hardware.Instrument, error) {
	if mount != "left" && mount != "right" {
		return nil, fmt.Errorf("invalid mount %q (want left or right)", mount)
	}
	if d.mounts[mount] {
		return nil, fmt.Errorf("mount %s already has an instrument", mount)
	}
	if err := d.log.record(ctx, DeckTarget, "loadInstrument", map[string]any{"name": name, "mount": mount}); err != nil {
		return nil, err
	}
	d.mounts[mount] = true
	return &Instrument{
		name:      name,
		mount:     mount,
		maxVolume: maxVolumeForName(name),
		log:       d.log,
	}, nil
}

// Delay waits d of simulated time.
func (d *Deck) Delay(ctx context.Context, dur time.Duration, message string) error {
	if dur < 0 {
		return fmt.Errorf("negative delay %s", dur)
	}
	if err := d.log.record(ctx, DeckTarget, "delay", map[string]any{"seconds": dur.Seconds(), "message": message}); err != nil {
		return err
	}
	return d.clock.sleep(ctx, dur)
}

// Pause records a pause. The simulator resumes immediately.
func (d *Deck) Pause(ctx context.Context, message string) error {
	return d.log.record(ctx, DeckTarget, "pause", map[string]any{"message": message})
}

var pipetteVolume = regexp.MustCompile(`^p(\d+)`)

// maxVolumeForName reads the nominal volume from names like "p300_single".
func maxVolumeForName(name string) float64 {
	m := pipetteVolume.FindStringSubmatch(name)
	if m == nil {
		return 1000
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 1000
	}
	return v
}

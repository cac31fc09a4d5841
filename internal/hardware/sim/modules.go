package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
)

// Simulated operating ranges.
const (
	maxEngageHeight = 45.0

	tempModuleMin = 4.0
	tempModuleMax = 95.0

	blockMin = 4.0
	blockMax = 99.0
	lidMin   = 37.0
	lidMax   = 110.0

	maxBlockVolume = 100.0

	ambientTemperature = 25.0

	// rampRate is degrees per simulated second.
	rampRate = 1.0
)

// moduleBase holds state shared by every simulated module.
type moduleBase struct {
	model   string
	slot    string
	log     *CallLog
	clock   simClock
	labware hardware.Labware
}

// Model returns the module model.
func (m *moduleBase) Model() string { return m.model }

// Slot returns the deck slot the module occupies.
func (m *moduleBase) Slot() string { return m.slot }

func (m *moduleBase) target() string {
	return m.model + "@" + m.slot
}

// LoadLabware places a labware definition on the module.
func (m *moduleBase) LoadLabware(ctx context.Context, def protocol.Object, label string) (hardware.Labware, error) {
	if m.labware != nil {
		return nil, fmt.Errorf("%s already holds labware %s", m.target(), m.labware.Name())
	}
	lw := newLabware(def, label)
	if err := m.log.record(ctx, m.target(), "loadLabware", map[string]any{"name": lw.Name()}); err != nil {
		return nil, err
	}
	m.labware = lw
	return lw, nil
}

// GenericModule is a module with no command family.
type GenericModule struct {
	moduleBase
}

var _ hardware.ModuleContext = (*GenericModule)(nil)

// MagneticModule simulates a magnet under a plate.
type MagneticModule struct {
	moduleBase
	engaged bool
	height  float64
}

var _ hardware.MagneticModule = (*MagneticModule)(nil)

// Engaged reports the magnet state and height.
func (m *MagneticModule) Engaged() (bool, float64) {
	return m.engaged, m.height
}

// Engage raises the magnet to heightFromBase mm.
func (m *MagneticModule) Engage(ctx context.Context, heightFromBase float64) error {
	if heightFromBase < 0 || heightFromBase > maxEngageHeight {
		return fmt.Errorf("%s: engage height %v mm outside 0-%v mm", m.target(), heightFromBase, maxEngageHeight)
	}
	if err := m.log.record(ctx, m.target(), "engage", map[string]any{"heightFromBase": heightFromBase}); err != nil {
		return err
	}
	m.engaged = true
	m.height = heightFromBase
	return nil
}

// Disengage retracts the magnet. It is a no-op on a disengaged module
// apart from being recorded.
func (m *MagneticModule) Disengage(ctx context.Context) error {
	if err := m.log.record(ctx, m.target(), "disengage", nil); err != nil {
		return err
	}
	m.engaged = false
	m.height = 0
	return nil
}

// TemperatureModule simulates a heating/cooling block.
type TemperatureModule struct {
	moduleBase
	current  float64
	setpoint *float64
}

var _ hardware.TemperatureModule = (*TemperatureModule)(nil)

func newTemperatureModule(base moduleBase) *TemperatureModule {
	return &TemperatureModule{moduleBase: base, current: ambientTemperature}
}

// Current returns the block temperature.
func (m *TemperatureModule) Current() float64 { return m.current }

// Target returns the active target, if any.
func (m *TemperatureModule) Target() (float64, bool) {
	if m.setpoint == nil {
		return 0, false
	}
	return *m.setpoint, true
}

// StartSetTemperature sets a new target and returns immediately.
func (m *TemperatureModule) StartSetTemperature(ctx context.Context, celsius float64) error {
	if celsius < tempModuleMin || celsius > tempModuleMax {
		return fmt.Errorf("%s: target %v°C outside %v-%v°C", m.target(), celsius, tempModuleMin, tempModuleMax)
	}
	if err := m.log.record(ctx, m.target(), "startSetTemperature", map[string]any{"celsius": celsius}); err != nil {
		return err
	}
	t := celsius
	m.setpoint = &t
	return nil
}

// AwaitTemperature ramps the block until it reads celsius. The wait fails
// when celsius does not lie between the current reading and the active
// target, because the block would never pass through it.
func (m *TemperatureModule) AwaitTemperature(ctx context.Context, celsius float64) error {
	if m.setpoint == nil {
		return fmt.Errorf("%s: cannot await %v°C, module is idle", m.target(), celsius)
	}
	lo, hi := math.Min(m.current, *m.setpoint), math.Max(m.current, *m.setpoint)
	if celsius < lo || celsius > hi {
		return fmt.Errorf("%s: %v°C is unreachable while ramping from %v°C to %v°C", m.target(), celsius, m.current, *m.setpoint)
	}

	ramp := time.Duration(math.Abs(celsius-m.current) / rampRate * float64(time.Second))
	if err := m.clock.sleep(ctx, ramp); err != nil {
		return fmt.Errorf("%s: await temperature: %w", m.target(), err)
	}
	if err := m.log.record(ctx, m.target(), "awaitTemperature", map[string]any{"celsius": celsius}); err != nil {
		return err
	}
	m.current = celsius
	return nil
}

// Deactivate stops temperature control.
func (m *TemperatureModule) Deactivate(ctx context.Context) error {
	if err := m.log.record(ctx, m.target(), "deactivate", nil); err != nil {
		return err
	}
	m.setpoint = nil
	return nil
}

// Thermocycler simulates a thermal cycler with a heated lid.
type Thermocycler struct {
	moduleBase
	lidOpen     bool
	blockTarget *float64
	lidTarget   *float64
}

var _ hardware.ThermocyclerModule = (*Thermocycler)(nil)

func newThermocycler(base moduleBase) *Thermocycler {
	return &Thermocycler{moduleBase: base, lidOpen: true}
}

// LidOpen reports the lid position.
func (m *Thermocycler) LidOpen() bool { return m.lidOpen }

// OpenLid opens the lid.
func (m *Thermocycler) OpenLid(ctx context.Context) error {
	if err := m.log.record(ctx, m.target(), "openLid", nil); err != nil {
		return err
	}
	m.lidOpen = true
	return nil
}

// CloseLid closes the lid.
func (m *Thermocycler) CloseLid(ctx context.Context) error {
	if err := m.log.record(ctx, m.target(), "closeLid", nil); err != nil {
		return err
	}
	m.lidOpen = false
	return nil
}

// DeactivateBlock stops block temperature control.
func (m *Thermocycler) DeactivateBlock(ctx context.Context) error {
	if err := m.log.record(ctx, m.target(), "deactivateBlock", nil); err != nil {
		return err
	}
	m.blockTarget = nil
	return nil
}

// DeactivateLid stops lid heating.
func (m *Thermocycler) DeactivateLid(ctx context.Context) error {
	if err := m.log.record(ctx, m.target(), "deactivateLid", nil); err != nil {
		return err
	}
	m.lidTarget = nil
	return nil
}

// SetBlockTemperature holds the block at celsius.
func (m *Thermocycler) SetBlockTemperature(ctx context.Context, celsius float64) error {
	if celsius < blockMin || celsius > blockMax {
		return fmt.Errorf("%s: block target %v°C outside %v-%v°C", m.target(), celsius, blockMin, blockMax)
	}
	if err := m.log.record(ctx, m.target(), "setBlockTemperature", map[string]any{"celsius": celsius}); err != nil {
		return err
	}
	t := celsius
	m.blockTarget = &t
	return nil
}

// SetLidTemperature heats the lid to celsius.
func (m *Thermocycler) SetLidTemperature(ctx context.Context, celsius float64) error {
	if celsius < lidMin || celsius > lidMax {
		return fmt.Errorf("%s: lid target %v°C outside %v-%v°C", m.target(), celsius, lidMin, lidMax)
	}
	if err := m.log.record(ctx, m.target(), "setLidTemperature", map[string]any{"celsius": celsius}); err != nil {
		return err
	}
	t := celsius
	m.lidTarget = &t
	return nil
}

// ExecuteProfile runs steps repetitions times. The block ends at the last
// step's temperature.
func (m *Thermocycler) ExecuteProfile(ctx context.Context, steps []hardware.ProfileStep, repetitions int, blockMaxVolume float64) error {
	if len(steps) == 0 {
		return fmt.Errorf("%s: profile has no steps", m.target())
	}
	if repetitions < 1 {
		return fmt.Errorf("%s: repetitions must be at least 1, got %d", m.target(), repetitions)
	}
	if blockMaxVolume < 0 || blockMaxVolume > maxBlockVolume {
		return fmt.Errorf("%s: block volume %v µL outside 0-%v µL", m.target(), blockMaxVolume, maxBlockVolume)
	}

	stepArgs := make([]any, len(steps))
	var hold time.Duration
	for i, s := range steps {
		if s.Temperature < blockMin || s.Temperature > blockMax {
			return fmt.Errorf("%s: step %d temperature %v°C outside %v-%v°C", m.target(), i, s.Temperature, blockMin, blockMax)
		}
		if s.HoldTimeSeconds < 0 {
			return fmt.Errorf("%s: step %d has negative hold time", m.target(), i)
		}
		hold += time.Duration(s.HoldTimeSeconds * float64(time.Second))
		stepArgs[i] = map[string]any{"temperature": s.Temperature, "hold_time_seconds": s.HoldTimeSeconds}
	}

	if err := m.clock.sleep(ctx, hold*time.Duration(repetitions)); err != nil {
		return fmt.Errorf("%s: execute profile: %w", m.target(), err)
	}
	if err := m.log.record(ctx, m.target(), "executeProfile", map[string]any{
		"steps":          stepArgs,
		"repetitions":    repetitions,
		"blockMaxVolume": blockMaxVolume,
	}); err != nil {
		return err
	}
	last := steps[len(steps)-1].Temperature
	m.blockTarget = &last
	return nil
}

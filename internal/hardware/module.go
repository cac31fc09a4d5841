package hardware

import "fmt"

// Capability tags the operation set a module exposes.
type Capability int

const (
	CapabilityGeneric Capability = iota
	CapabilityMagnetic
	CapabilityTemperature
	CapabilityThermocycler
)

// String implements fmt.Stringer.
func (c Capability) String() string {
	switch c {
	case CapabilityGeneric:
		return "generic"
	case CapabilityMagnetic:
		return "magnetic"
	case CapabilityTemperature:
		return "temperature"
	case CapabilityThermocycler:
		return "thermocycler"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// modelCapabilities maps known module models to their capability.
var modelCapabilities = map[string]Capability{
	"magdeck":              CapabilityMagnetic,
	"magneticModuleV1":     CapabilityMagnetic,
	"magneticModuleV2":     CapabilityMagnetic,
	"tempdeck":             CapabilityTemperature,
	"temperatureModuleV1":  CapabilityTemperature,
	"temperatureModuleV2":  CapabilityTemperature,
	"thermocycler":         CapabilityThermocycler,
	"thermocyclerModuleV1": CapabilityThermocycler,
}

// CapabilityForModel returns the capability a model declares.
// Unknown models report CapabilityGeneric and false.
func CapabilityForModel(model string) (Capability, bool) {
	c, ok := modelCapabilities[model]
	if !ok {
		return CapabilityGeneric, false
	}
	return c, true
}

// Module is a loaded module tagged with its capability. Exactly one of the
// variant contexts is set, matching the tag. The zero Module is invalid.
//
// Callers select a variant with Magnetic, Temperature or Thermocycler,
// which match on the tag rather than probing the dynamic type.
type Module struct {
	capability   Capability
	base         ModuleContext
	magnetic     MagneticModule
	temperature  TemperatureModule
	thermocycler ThermocyclerModule
}

// NewGeneric wraps a module with no command family.
func NewGeneric(m ModuleContext) Module {
	return Module{capability: CapabilityGeneric, base: m}
}

// NewMagnetic wraps a magnetic module.
func NewMagnetic(m MagneticModule) Module {
	return Module{capability: CapabilityMagnetic, base: m, magnetic: m}
}

// NewTemperature wraps a temperature module.
func NewTemperature(m TemperatureModule) Module {
	return Module{capability: CapabilityTemperature, base: m, temperature: m}
}

// NewThermocycler wraps a thermocycler module.
func NewThermocycler(m ThermocyclerModule) Module {
	return Module{capability: CapabilityThermocycler, base: m, thermocycler: m}
}

// Capability returns the variant tag.
func (m Module) Capability() Capability {
	return m.capability
}

// Context returns the generic operation set shared by every variant.
func (m Module) Context() ModuleContext {
	return m.base
}

// Valid reports whether the module was built by one of the constructors.
func (m Module) Valid() bool {
	return m.base != nil
}

// Magnetic returns the magnetic variant.
func (m Module) Magnetic() (MagneticModule, bool) {
	if m.capability != CapabilityMagnetic || m.magnetic == nil {
		return nil, false
	}
	return m.magnetic, true
}

// Temperature returns the temperature variant.
func (m Module) Temperature() (TemperatureModule, bool) {
	if m.capability != CapabilityTemperature || m.temperature == nil {
		return nil, false
	}
	return m.temperature, true
}

// Thermocycler returns the thermocycler variant.
func (m Module) Thermocycler() (ThermocyclerModule, bool) {
	if m.capability != CapabilityThermocycler || m.thermocycler == nil {
		return nil, false
	}
	return m.thermocycler, true
}

// String implements fmt.Stringer.
func (m Module) String() string {
	if m.base == nil {
		return "module(<invalid>)"
	}
	return fmt.Sprintf("%s module %s@%s", m.capability, m.base.Model(), m.base.Slot())
}

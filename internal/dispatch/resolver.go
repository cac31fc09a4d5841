package dispatch

import (
	"fmt"

	"github.com/roach88/labrun/internal/hardware"
)

// moduleParam is the params field naming a module command's target.
const moduleParam = "module"

// Resolve reads params.module, looks the id up and checks that the module's
// capability matches family. The returned module is safe to select the
// family's variant from.
func Resolve(modules Modules, params Params, family Family) (string, hardware.Module, error) {
	expected, ok := family.Capability()
	if !ok {
		return "", hardware.Module{}, fmt.Errorf("%s commands do not target modules", family)
	}

	id, err := params.String(moduleParam)
	if err != nil {
		return "", hardware.Module{}, err
	}
	mod, ok := modules[id]
	if !ok || !mod.Valid() {
		lerr := NewLookupError("module", id)
		lerr.ModuleID = id
		return id, hardware.Module{}, lerr
	}
	if mod.Capability() != expected {
		return id, hardware.Module{}, NewCapabilityError(id, family, expected, mod.Capability())
	}
	return id, mod, nil
}

func resolveMagnetic(modules Modules, params Params) (string, hardware.MagneticModule, error) {
	id, mod, err := Resolve(modules, params, FamilyMagnetic)
	if err != nil {
		return id, nil, err
	}
	m, _ := mod.Magnetic()
	return id, m, nil
}

func resolveTemperature(modules Modules, params Params) (string, hardware.TemperatureModule, error) {
	id, mod, err := Resolve(modules, params, FamilyTemperature)
	if err != nil {
		return id, nil, err
	}
	m, _ := mod.Temperature()
	return id, m, nil
}

func resolveThermocycler(modules Modules, params Params) (string, hardware.ThermocyclerModule, error) {
	id, mod, err := Resolve(modules, params, FamilyThermocycler)
	if err != nil {
		return id, nil, err
	}
	m, _ := mod.Thermocycler()
	return id, m, nil
}

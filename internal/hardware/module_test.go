package hardware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/labrun/internal/protocol"
)

// fakeModule implements every module interface so tests can prove that
// variant selection follows the tag, not the dynamic type.
type fakeModule struct{}

func (fakeModule) Model() string { return "fake" }
func (fakeModule) Slot() string  { return "3" }
func (fakeModule) LoadLabware(context.Context, protocol.Object, string) (Labware, error) {
	return nil, nil
}
func (fakeModule) Engage(context.Context, float64) error                 { return nil }
func (fakeModule) Disengage(context.Context) error                       { return nil }
func (fakeModule) StartSetTemperature(context.Context, float64) error    { return nil }
func (fakeModule) AwaitTemperature(context.Context, float64) error       { return nil }
func (fakeModule) Deactivate(context.Context) error                      { return nil }
func (fakeModule) OpenLid(context.Context) error                         { return nil }
func (fakeModule) CloseLid(context.Context) error                        { return nil }
func (fakeModule) DeactivateBlock(context.Context) error                 { return nil }
func (fakeModule) DeactivateLid(context.Context) error                   { return nil }
func (fakeModule) SetBlockTemperature(context.Context, float64) error    { return nil }
func (fakeModule) SetLidTemperature(context.Context, float64) error      { return nil }
func (fakeModule) ExecuteProfile(context.Context, []ProfileStep, int, float64) error {
	return nil
}

func TestModule_VariantFollowsTag(t *testing.T) {
	m := NewTemperature(fakeModule{})

	assert.Equal(t, CapabilityTemperature, m.Capability())
	_, ok := m.Temperature()
	assert.True(t, ok)

	// fakeModule satisfies ThermocyclerModule too, but the tag says temperature.
	_, ok = m.Thermocycler()
	assert.False(t, ok)
	_, ok = m.Magnetic()
	assert.False(t, ok)
}

func TestModule_Generic(t *testing.T) {
	m := NewGeneric(fakeModule{})
	assert.True(t, m.Valid())
	assert.Equal(t, CapabilityGeneric, m.Capability())
	_, ok := m.Magnetic()
	assert.False(t, ok)
	assert.Equal(t, "fake", m.Context().Model())
}

func TestModule_ZeroIsInvalid(t *testing.T) {
	var m Module
	assert.False(t, m.Valid())
	assert.Equal(t, "module(<invalid>)", m.String())
}

func TestCapabilityForModel(t *testing.T) {
	tests := []struct {
		model string
		want  Capability
		known bool
	}{
		{"magneticModuleV1", CapabilityMagnetic, true},
		{"magneticModuleV2", CapabilityMagnetic, true},
		{"temperatureModuleV2", CapabilityTemperature, true},
		{"thermocyclerModuleV1", CapabilityThermocycler, true},
		{"heaterShakerModuleV1", CapabilityGeneric, false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, known := CapabilityForModel(tt.model)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestCapability_String(t *testing.T) {
	assert.Equal(t, "magnetic", CapabilityMagnetic.String())
	assert.Equal(t, "thermocycler", CapabilityThermocycler.String())
	assert.Equal(t, "capability(9)", Capability(9).String())
}

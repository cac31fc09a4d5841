package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/labrun/internal/hardware"
)

func nopMagnetic(context.Context, hardware.MagneticModule, Params) error { return nil }

func nopThermocycler(context.Context, hardware.ThermocyclerModule, Params) error { return nil }

func TestNewRegistry_Unified(t *testing.T) {
	r := fullRegistry(t)

	d, ok := r.Lookup(CmdRunProfile)
	require.True(t, ok)
	assert.Equal(t, FamilyThermocycler, d.Family)
	assert.Equal(t, hardware.CapabilityThermocycler, d.Capability)
	assert.True(t, d.TargetsModule())

	d, ok = r.Lookup(CmdAspirate)
	require.True(t, ok)
	assert.Equal(t, FamilyPipette, d.Family)
	assert.False(t, d.TargetsModule())

	_, ok = r.Lookup(CmdDelay)
	assert.False(t, ok, "control commands are not registry entries")
	assert.True(t, r.Supports(CmdDelay))
	assert.False(t, r.Supports("transfer"))

	assert.Equal(t, 8+2+3+10, r.Len())
	assert.IsIncreasing(t, r.Types())
}

func TestNewRegistry_CrossFamilyCollision(t *testing.T) {
	_, err := NewRegistry(FamilyMaps{
		Magnetic:     map[string]MagneticHandler{"module/reset": nopMagnetic},
		Thermocycler: map[string]ThermocyclerHandler{"module/reset": nopThermocycler},
	})
	require.Error(t, err)
	assert.True(t, IsRegistryCollision(err))
	assert.Contains(t, err.Error(), "magnetic and thermocycler")
}

func TestNewRegistry_ControlCommandCollision(t *testing.T) {
	_, err := NewRegistry(FamilyMaps{
		Magnetic: map[string]MagneticHandler{CmdDelay: nopMagnetic},
	})
	require.Error(t, err)
	assert.True(t, IsRegistryCollision(err))

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CmdDelay, de.CommandType)
	assert.Equal(t, -1, de.Index)
}

func TestNewRegistry_NilHandler(t *testing.T) {
	_, err := NewRegistry(FamilyMaps{
		Magnetic: map[string]MagneticHandler{CmdEngageMagnet: nil},
	})
	require.Error(t, err)
	assert.True(t, IsMissingHandler(err))
	assert.Contains(t, err.Error(), "nil handler")

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CmdEngageMagnet, de.CommandType)
	assert.Equal(t, FamilyMagnetic, de.Family)
	assert.Equal(t, -1, de.Index)
}

func TestNewRegistry_ReportsFirstBadEntryInFixedOrder(t *testing.T) {
	maps := FamilyMaps{
		Magnetic: map[string]MagneticHandler{
			CmdEngageMagnet:    nil,
			CmdDisengageMagnet: nil,
		},
		Thermocycler: map[string]ThermocyclerHandler{
			CmdCloseLid: nil,
			CmdOpenLid:  nil,
		},
	}

	for i := 0; i < 20; i++ {
		_, err := NewRegistry(maps)
		var de *Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, CmdDisengageMagnet, de.CommandType, "magnetic precedes thermocycler; types sort")
	}
}

func TestNewRegistry_Empty(t *testing.T) {
	r, err := NewRegistry(FamilyMaps{})
	require.NoError(t, err)
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Types())
}

func TestFamily_Capability(t *testing.T) {
	tests := []struct {
		family Family
		want   hardware.Capability
		ok     bool
	}{
		{FamilyMagnetic, hardware.CapabilityMagnetic, true},
		{FamilyTemperature, hardware.CapabilityTemperature, true},
		{FamilyThermocycler, hardware.CapabilityThermocycler, true},
		{FamilyPipette, hardware.CapabilityGeneric, false},
		{FamilyControl, hardware.CapabilityGeneric, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			got, ok := tt.family.Capability()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestControlCommands(t *testing.T) {
	assert.Equal(t, []string{CmdDelay, CmdMoveToSlot}, ControlCommands())
}

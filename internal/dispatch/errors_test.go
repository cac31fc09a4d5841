package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/labrun/internal/hardware"
)

func TestError_Message(t *testing.T) {
	err := NewUnsupportedError(3, "transfer")
	assert.Equal(t, `UNSUPPORTED_COMMAND: unsupported command type "transfer" (command 3 "transfer")`, err.Error())

	cause := errors.New("lid jammed")
	hw := NewHardwareError(2, CmdCloseLid, cause)
	assert.Equal(t, `HARDWARE_FAILURE: hardware context failed (command 2 "thermocycler/closeLid"): lid jammed`, hw.Error())

	param := NewMissingParamError("temperature")
	assert.Equal(t, `MISSING_PARAMETER: missing required param "temperature"`, param.Error())
}

func TestError_CapabilityMessage(t *testing.T) {
	err := NewCapabilityError("temp", FamilyThermocycler, hardware.CapabilityThermocycler, hardware.CapabilityTemperature)
	assert.Contains(t, err.Error(), `module "temp" is temperature`)
	assert.Contains(t, err.Error(), "thermocycler commands need a thermocycler module")
}

func TestIsHelpers_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("run failed: %w", NewLookupError("module", "mag"))

	assert.True(t, IsLookupFailure(wrapped))
	assert.False(t, IsUnsupported(wrapped))
	assert.Equal(t, ErrCodeLookupFailure, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, IsHardwareFailure(nil))
}

func TestAsDispatchError(t *testing.T) {
	plain := errors.New("boom")
	de := asDispatchError(4, CmdAspirate, plain)
	assert.Equal(t, ErrCodeHardwareFailure, de.Code)
	assert.Equal(t, 4, de.Index)
	assert.ErrorIs(t, de, plain)

	located := asDispatchError(5, CmdDispense, NewMissingParamError("volume"))
	assert.Equal(t, ErrCodeMissingParameter, located.Code)
	assert.Equal(t, 5, located.Index)
	assert.Equal(t, CmdDispense, located.CommandType)
}

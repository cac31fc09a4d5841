package dispatch

import (
	"errors"
	"fmt"

	"github.com/roach88/labrun/internal/hardware"
)

// ErrorCode categorizes dispatch errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedCommand indicates a command type no registry or
	// control command handles.
	ErrCodeUnsupportedCommand ErrorCode = "UNSUPPORTED_COMMAND"

	// ErrCodeCapabilityMismatch indicates a module command targets a module
	// whose capability does not match the command family.
	ErrCodeCapabilityMismatch ErrorCode = "CAPABILITY_MISMATCH"

	// ErrCodeMissingParameter indicates a required param is absent.
	ErrCodeMissingParameter ErrorCode = "MISSING_PARAMETER"

	// ErrCodeMalformedParameter indicates a param has the wrong shape.
	ErrCodeMalformedParameter ErrorCode = "MALFORMED_PARAMETER"

	// ErrCodeLookupFailure indicates a module, pipette, labware, well or
	// definition id does not resolve.
	ErrCodeLookupFailure ErrorCode = "LOOKUP_FAILURE"

	// ErrCodeHardwareFailure indicates a hardware context rejected an
	// operation. Err holds the cause.
	ErrCodeHardwareFailure ErrorCode = "HARDWARE_FAILURE"

	// ErrCodeRegistryCollision indicates a command type claimed by two
	// families, or by a family and a control command.
	ErrCodeRegistryCollision ErrorCode = "REGISTRY_COLLISION"

	// ErrCodeMissingHandler indicates a family map registers a command type
	// with a nil handler.
	ErrCodeMissingHandler ErrorCode = "MISSING_HANDLER"
)

// Error is the single error type the dispatcher reports.
//
// Index and CommandType locate the failing command; Index is -1 for errors
// raised outside the command loop (registry construction, loading).
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the position of the failing command, or -1.
	Index int

	// CommandType is the failing command's type.
	CommandType string

	// ModuleID is the module the command targeted (module commands only).
	ModuleID string

	// Field is the offending param (parameter errors only).
	Field string

	// Expected and Actual are set for capability mismatches.
	Expected hardware.Capability
	Actual   hardware.Capability

	// Family names the handler family involved, if any.
	Family Family

	// Err is the underlying cause (hardware failures).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Index >= 0 && e.CommandType != "" {
		msg = fmt.Sprintf("%s (command %d %q)", msg, e.Index, e.CommandType)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// locate stamps command position onto an error that has none yet.
func (e *Error) locate(index int, commandType string) *Error {
	if e.Index < 0 {
		e.Index = index
	}
	if e.CommandType == "" {
		e.CommandType = commandType
	}
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsUnsupported reports whether err is an unsupported command error.
func IsUnsupported(err error) bool { return hasCode(err, ErrCodeUnsupportedCommand) }

// IsCapabilityMismatch reports whether err is a capability mismatch.
func IsCapabilityMismatch(err error) bool { return hasCode(err, ErrCodeCapabilityMismatch) }

// IsMissingParameter reports whether err is a missing parameter error.
func IsMissingParameter(err error) bool { return hasCode(err, ErrCodeMissingParameter) }

// IsMalformedParameter reports whether err is a malformed parameter error.
func IsMalformedParameter(err error) bool { return hasCode(err, ErrCodeMalformedParameter) }

// IsLookupFailure reports whether err is a failed id lookup.
func IsLookupFailure(err error) bool { return hasCode(err, ErrCodeLookupFailure) }

// IsHardwareFailure reports whether err came from a hardware context.
func IsHardwareFailure(err error) bool { return hasCode(err, ErrCodeHardwareFailure) }

// IsRegistryCollision reports whether err is a registry build failure.
func IsRegistryCollision(err error) bool { return hasCode(err, ErrCodeRegistryCollision) }

// IsMissingHandler reports whether err is a nil-handler registration.
func IsMissingHandler(err error) bool { return hasCode(err, ErrCodeMissingHandler) }

// NewUnsupportedError reports a command type nothing handles.
func NewUnsupportedError(index int, commandType string) *Error {
	return &Error{
		Code:        ErrCodeUnsupportedCommand,
		Message:     fmt.Sprintf("unsupported command type %q", commandType),
		Index:       index,
		CommandType: commandType,
	}
}

// NewCapabilityError reports a module whose capability does not match.
func NewCapabilityError(moduleID string, family Family, expected, actual hardware.Capability) *Error {
	return &Error{
		Code: ErrCodeCapabilityMismatch,
		Message: fmt.Sprintf("module %q is %s, %s commands need a %s module",
			moduleID, actual, family, expected),
		Index:    -1,
		ModuleID: moduleID,
		Expected: expected,
		Actual:   actual,
		Family:   family,
	}
}

// NewMissingParamError reports an absent required param.
func NewMissingParamError(field string) *Error {
	return &Error{
		Code:    ErrCodeMissingParameter,
		Message: fmt.Sprintf("missing required param %q", field),
		Index:   -1,
		Field:   field,
	}
}

// NewMalformedParamError reports a param of the wrong shape.
func NewMalformedParamError(field, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeMalformedParameter,
		Message: fmt.Sprintf("param %q: %s", field, fmt.Sprintf(format, args...)),
		Index:   -1,
		Field:   field,
	}
}

// NewLookupError reports an id that does not resolve. kind names what was
// being looked up ("module", "pipette", "labware", "well", "definition").
func NewLookupError(kind, id string) *Error {
	return &Error{
		Code:    ErrCodeLookupFailure,
		Message: fmt.Sprintf("unknown %s %q", kind, id),
		Index:   -1,
	}
}

// NewHardwareError wraps an error returned by a hardware context.
func NewHardwareError(index int, commandType string, err error) *Error {
	return &Error{
		Code:        ErrCodeHardwareFailure,
		Message:     "hardware context failed",
		Index:       index,
		CommandType: commandType,
		Err:         err,
	}
}

// asDispatchError converts any handler error into a located *Error.
func asDispatchError(index int, commandType string, err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de.locate(index, commandType)
	}
	return NewHardwareError(index, commandType, err)
}

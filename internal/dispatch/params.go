package dispatch

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
)

// Params is the params object of one command. Accessors report absent
// fields as MISSING_PARAMETER and wrongly-typed fields as
// MALFORMED_PARAMETER.
type Params protocol.Object

// Has reports whether field is present and not null.
func (p Params) Has(field string) bool {
	v, ok := p[field]
	if !ok {
		return false
	}
	_, isNull := v.(protocol.Null)
	return v != nil && !isNull
}

// Number returns a required numeric field.
func (p Params) Number(field string) (float64, error) {
	if !p.Has(field) {
		return 0, NewMissingParamError(field)
	}
	n, ok := p[field].(protocol.Number)
	if !ok {
		return 0, NewMalformedParamError(field, "want number, got %s", protocol.KindOf(p[field]))
	}
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, NewMalformedParamError(field, "not a finite number")
	}
	return f, nil
}

// OptionalNumber returns a numeric field, or def when absent.
func (p Params) OptionalNumber(field string, def float64) (float64, error) {
	if !p.Has(field) {
		return def, nil
	}
	return p.Number(field)
}

// String returns a required string field.
func (p Params) String(field string) (string, error) {
	if !p.Has(field) {
		return "", NewMissingParamError(field)
	}
	s, ok := p[field].(protocol.String)
	if !ok {
		return "", NewMalformedParamError(field, "want string, got %s", protocol.KindOf(p[field]))
	}
	return string(s), nil
}

// OptionalString returns a string field, or "" when absent.
func (p Params) OptionalString(field string) (string, error) {
	if !p.Has(field) {
		return "", nil
	}
	return p.String(field)
}

// Bool returns a boolean field, or false when absent.
func (p Params) Bool(field string) (bool, error) {
	if !p.Has(field) {
		return false, nil
	}
	b, ok := p[field].(protocol.Bool)
	if !ok {
		return false, NewMalformedParamError(field, "want boolean, got %s", protocol.KindOf(p[field]))
	}
	return bool(b), nil
}

// Offset returns an {x, y, z} field. Missing axes are zero; an absent field
// is the zero point.
func (p Params) Offset(field string) (hardware.Point, error) {
	if !p.Has(field) {
		return hardware.Point{}, nil
	}
	obj, ok := p[field].(protocol.Object)
	if !ok {
		return hardware.Point{}, NewMalformedParamError(field, "want {x, y, z} object, got %s", protocol.KindOf(p[field]))
	}
	var pt hardware.Point
	axes := []struct {
		name string
		dst  *float64
	}{{"x", &pt.X}, {"y", &pt.Y}, {"z", &pt.Z}}
	for _, axis := range axes {
		v, ok := obj[axis.name]
		if !ok {
			continue
		}
		n, ok := v.(protocol.Number)
		if !ok {
			return hardware.Point{}, NewMalformedParamError(field, "axis %s: want number, got %s", axis.name, protocol.KindOf(v))
		}
		*axis.dst = float64(n)
	}
	return pt, nil
}

// Profile returns a thermocycler profile: an array of {temperature,
// holdTime} objects, holdTime in seconds. An empty array is returned as is;
// whether a profile needs steps is up to the hardware context. Errors inside
// a step name the step's field, as in "profile[1].holdTime".
func (p Params) Profile(field string) ([]hardware.ProfileStep, error) {
	if !p.Has(field) {
		return nil, NewMissingParamError(field)
	}
	arr, ok := p[field].(protocol.Array)
	if !ok {
		return nil, NewMalformedParamError(field, "want array, got %s", protocol.KindOf(p[field]))
	}

	steps := make([]hardware.ProfileStep, len(arr))
	for i, elem := range arr {
		stepField := fmt.Sprintf("%s[%d]", field, i)
		obj, ok := elem.(protocol.Object)
		if !ok {
			return nil, NewMalformedParamError(stepField, "want object, got %s", protocol.KindOf(elem))
		}
		step := Params(obj)
		temp, err := step.Number("temperature")
		if err != nil {
			return nil, withField(stepField+".temperature", err)
		}
		hold, err := step.Number("holdTime")
		if err != nil {
			return nil, withField(stepField+".holdTime", err)
		}
		steps[i] = hardware.ProfileStep{Temperature: temp, HoldTimeSeconds: hold}
	}
	return steps, nil
}

// withField rebuilds a param error for a nested field, keeping its code.
func withField(field string, err error) error {
	switch CodeOf(err) {
	case ErrCodeMissingParameter:
		return NewMissingParamError(field)
	case ErrCodeMalformedParameter:
		var perr *Error
		if errors.As(err, &perr) {
			_, detail, _ := strings.Cut(perr.Message, ": ")
			return NewMalformedParamError(field, "%s", detail)
		}
	}
	return err
}

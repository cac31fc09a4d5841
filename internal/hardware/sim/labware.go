package sim

import (
	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
)

// Labware is a simulated labware handle built from a definition.
type Labware struct {
	name  string
	wells map[string]struct{}
}

var _ hardware.Labware = (*Labware)(nil)

// newLabware reads well names from definition.wells. The name is the label,
// then metadata.displayName, then "labware".
func newLabware(def protocol.Object, label string) *Labware {
	lw := &Labware{name: label, wells: make(map[string]struct{})}
	if wells, ok := def["wells"].(protocol.Object); ok {
		for well := range wells {
			lw.wells[well] = struct{}{}
		}
	}
	if lw.name == "" {
		if meta, ok := def["metadata"].(protocol.Object); ok {
			if dn, ok := meta["displayName"].(protocol.String); ok {
				lw.name = string(dn)
			}
		}
	}
	if lw.name == "" {
		lw.name = "labware"
	}
	return lw
}

// Name returns the display name.
func (l *Labware) Name() string {
	return l.name
}

// HasWell reports whether the definition declares well.
func (l *Labware) HasWell(well string) bool {
	_, ok := l.wells[well]
	return ok
}

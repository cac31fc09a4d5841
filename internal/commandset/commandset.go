// Package commandset names the handler families each protocol schema
// version supports.
package commandset

import (
	"fmt"
	"maps"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
)

// SupportedVersions lists the schema versions ForSchema accepts.
var SupportedVersions = []int{3, 4}

// ForSchema returns the family maps for a schema version. Version 3
// documents can only drive pipettes; version 4 is version 3 plus the module
// families.
func ForSchema(version int) (dispatch.FamilyMaps, error) {
	switch version {
	case 3:
		return dispatch.FamilyMaps{
			Pipette: dispatch.PipetteHandlers(),
		}, nil
	case 4:
		v3, err := ForSchema(3)
		if err != nil {
			return dispatch.FamilyMaps{}, err
		}
		return Merge(v3, dispatch.FamilyMaps{
			Magnetic:     dispatch.MagneticHandlers(),
			Temperature:  dispatch.TemperatureHandlers(),
			Thermocycler: dispatch.ThermocyclerHandlers(),
		}), nil
	default:
		return dispatch.FamilyMaps{}, fmt.Errorf("unsupported schema version %d (supported: %v)", version, SupportedVersions)
	}
}

// Registry builds the unified registry for a schema version.
func Registry(version int) (*dispatch.Registry, error) {
	fm, err := ForSchema(version)
	if err != nil {
		return nil, err
	}
	return dispatch.NewRegistry(fm)
}

// ForDocument builds the registry matching doc.SchemaVersion. A document
// without a version is treated as the latest schema.
func ForDocument(doc *protocol.Document) (*dispatch.Registry, error) {
	version := doc.SchemaVersion
	if version == 0 {
		version = protocol.LatestSchemaVersion
	}
	return Registry(version)
}

// Merge combines extra handlers into base, for callers that register their
// own command types. Collisions surface when the result is passed to
// dispatch.NewRegistry, not here; on a duplicate key within one family the
// extra handler wins.
func Merge(base, extra dispatch.FamilyMaps) dispatch.FamilyMaps {
	return dispatch.FamilyMaps{
		Pipette:      mergeFamily(base.Pipette, extra.Pipette),
		Magnetic:     mergeFamily(base.Magnetic, extra.Magnetic),
		Temperature:  mergeFamily(base.Temperature, extra.Temperature),
		Thermocycler: mergeFamily(base.Thermocycler, extra.Thermocycler),
	}
}

func mergeFamily[H any](base, extra map[string]H) map[string]H {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]H, len(base)+len(extra))
	maps.Copy(out, base)
	maps.Copy(out, extra)
	return out
}

package building

import (
	"github.com/marcus-elia/simple-cities-digital-twins/internal/features"
)

// Default building attributes used when a feature does not carry them.
const (
	DefaultHeight       = 5.0
	DefaultWallMaterial = "concrete"
	DefaultRoofMaterial = "roof_white"
)

// MaterialPolicy picks the height and materials of a building from its
// feature properties, optionally forcing a single colour for all walls or roofs.
type MaterialPolicy struct {
	DefaultHeight float64
	DefaultWall   string
	DefaultRoof   string

	SingleColorBuildings bool
	BuildingColor        string
	SingleColorRoofs     bool
	RoofColor            string
}

// DefaultMaterialPolicy returns the policy with the built-in defaults.
func DefaultMaterialPolicy() MaterialPolicy {
	return MaterialPolicy{
		DefaultHeight: DefaultHeight,
		DefaultWall:   DefaultWallMaterial,
		DefaultRoof:   DefaultRoofMaterial,
	}
}

// Footprint resolves a loaded building into an extrusion input.
func (p MaterialPolicy) Footprint(b features.Building) Footprint {
	fp := Footprint{
		ID:           b.ID,
		Polygon:      b.Polygon,
		Height:       p.DefaultHeight,
		WallMaterial: firstNonEmpty(b.MeshColor, p.DefaultWall, DefaultWallMaterial),
		RoofMaterial: firstNonEmpty(b.RoofColor, p.DefaultRoof, DefaultRoofMaterial),
	}
	if b.HasHeight {
		fp.Height = b.Height
	}
	if p.SingleColorBuildings && p.BuildingColor != "" {
		fp.WallMaterial = p.BuildingColor
	}
	if p.SingleColorRoofs && p.RoofColor != "" {
		fp.RoofMaterial = p.RoofColor
	}
	return fp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package instance

import (
	"math/rand"
	"strings"

	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
)

// Autumn variant material names.
const (
	AutumnRed    = "tree_red"
	AutumnYellow = "tree_yellow"
	AutumnOrange = "tree_orange"
)

// AutumnColors are the colours of the autumn variant materials.
type AutumnColors struct {
	Red, Yellow, Orange mesh.Color
}

// DefaultAutumnColors returns the built-in autumn palette.
func DefaultAutumnColors() AutumnColors {
	return AutumnColors{
		Red:    mesh.Color{1, 0, 0},
		Yellow: mesh.Color{1, 1, 0},
		Orange: mesh.Color{1, 0.5, 0},
	}
}

// Materials returns the flat variant materials.
func (c AutumnColors) Materials() []mesh.Material {
	return []mesh.Material{
		mesh.FlatMaterial(AutumnRed, c.Red),
		mesh.FlatMaterial(AutumnYellow, c.Yellow),
		mesh.FlatMaterial(AutumnOrange, c.Orange),
	}
}

// Autumn recolours foliage. Materials whose name contains "brown" (bark)
// are kept; any other marker becomes red, yellow or orange with
// probabilities 0.33, 0.34 and 0.31, and stays unchanged otherwise.
type Autumn struct {
	rng *rand.Rand
}

// NewAutumn returns a picker with a deterministic sequence for the seed.
func NewAutumn(seed int64) *Autumn {
	return &Autumn{rng: rand.New(rand.NewSource(seed))}
}

// Pick returns the material to use in place of name.
func (a *Autumn) Pick(name string) string {
	if strings.Contains(name, "brown") {
		return name
	}
	switch r := a.rng.Float64(); {
	case r < 0.33:
		return AutumnRed
	case r < 0.67:
		return AutumnYellow
	case r < 0.98:
		return AutumnOrange
	default:
		return name
	}
}

package instance

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"github.com/marcus-elia/simple-cities-digital-twins/internal/terrain"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/tile"
)

// VariantPicker substitutes the material of one marker of one placement.
type VariantPicker interface {
	Pick(material string) string
}

// Instancer places templates inside one tile. Each placement is translated
// to the point's tile-local position (with the flipped y axis) and lifted to
// the ground elevation at the point.
type Instancer struct {
	Tile      tile.ID
	Elevation terrain.Elevation

	// Variants, when set, is consulted for every material marker of every placement.
	Variants VariantPicker
	// ReverseWinding flips the orientation of every placed face.
	ReverseWinding bool
	// Group and Material, when Group is set, replace the template's markers.
	Group    string
	Material string

	placed int
}

// NewInstancer creates an instancer for one tile.
func NewInstancer(id tile.ID, elev terrain.Elevation) *Instancer {
	return &Instancer{Tile: id, Elevation: elev}
}

// Placed returns the number of placements made so far.
func (in *Instancer) Placed() int {
	return in.placed
}

// Place appends one copy of tpl at the projected point p and returns the
// number of vertices added, always the template vertex count.
func (in *Instancer) Place(doc *mesh.Document, tpl *Template, p orb.Point) int {
	swX, swY := in.Tile.SWCorner()
	localX, localY := p[0]-swX, p[1]-swY
	offset := mgl64.Vec3{localX, in.Elevation.Interpolate(p[0], p[1]), tile.Size - localY}

	t := mesh.Transform{
		Vertex:         func(v mgl64.Vec3) mgl64.Vec3 { return v.Add(offset) },
		ReverseWinding: in.ReverseWinding,
		DropComments:   true,
	}
	if in.Group != "" {
		drop := func(string) (string, bool) { return "", false }
		t.Group, t.Material = drop, drop
		doc.SetGroup(in.Group)
		if in.Material != "" {
			doc.UseMaterial(in.Material)
		}
	} else if in.Variants != nil {
		t.Material = func(name string) (string, bool) { return in.Variants.Pick(name), true }
	}

	before := doc.VertexCount()
	doc.AppendTransformed(tpl.Mesh, t)
	in.placed++
	return doc.VertexCount() - before
}

// PlaceAll places tpl at every point and returns the number of vertices added.
func (in *Instancer) PlaceAll(doc *mesh.Document, tpl *Template, points []orb.Point) int {
	added := 0
	for _, p := range points {
		added += in.Place(doc, tpl, p)
	}
	return added
}

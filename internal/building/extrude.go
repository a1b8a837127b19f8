// Package building extrudes building footprints into closed solids.
package building

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/marcus-elia/simple-cities-digital-twins/internal/terrain"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/tile"
)

// Extrusion errors.
var (
	ErrDegenerateFootprint = errors.New("degenerate footprint")
	ErrExcluded            = errors.New("building is excluded")
)

// Footprint is one building ready for extrusion, in projected coordinates.
type Footprint struct {
	ID           int64 // stable feature identifier, 0 when unknown
	Polygon      orb.Polygon
	Height       float64 // above ground
	WallMaterial string
	RoofMaterial string
}

// Solid describes a building emitted into a document.
type Solid struct {
	Apex      int     // 1-based index of the roof apex vertex
	HullSize  int     // outline vertices n
	Vertices  int     // 2n + 1
	WallFaces int     // 2n
	RoofFaces int     // n
	Ground    float64 // lowest elevation under the outline
	Height    float64 // extruded height, including the ground slope
}

// Extruder turns footprints into walls and a fan-triangulated roof inside one tile.
type Extruder struct {
	Tile      tile.ID
	Elevation terrain.Elevation
	Policy    FootprintPolicy
	Exclude   map[int64]bool

	count int
}

// NewExtruder creates an extruder for one tile.
func NewExtruder(id tile.ID, elev terrain.Elevation, policy FootprintPolicy, exclude map[int64]bool) *Extruder {
	return &Extruder{Tile: id, Elevation: elev, Policy: policy, Exclude: exclude}
}

// Count returns the number of buildings emitted so far.
func (e *Extruder) Count() int {
	return e.count
}

// Extrude appends one building to doc. Excluded and degenerate footprints
// return an error and leave doc untouched.
//
// Vertex layout: the apex at the centroid of the roof, then a base and a top
// vertex for each outline point. Walls split each side quad along the
// diagonal from the base of one point to the top of the next; the roof is a
// fan of top edges around the apex.
func (e *Extruder) Extrude(doc *mesh.Document, fp Footprint) (Solid, error) {
	if fp.ID != 0 && e.Exclude[fp.ID] {
		return Solid{}, fmt.Errorf("%w: osm_id %d", ErrExcluded, fp.ID)
	}

	outline, err := Outline(fp.Polygon, e.Policy)
	if err != nil {
		return Solid{}, err
	}

	lowest, highest := GroundRange(e.Elevation, outline)
	height := fp.Height + highest - lowest
	top := lowest + height

	reflected := e.reflect(outline)
	centroid, _ := planar.CentroidArea(closeRing(reflected))
	swX, swY := e.Tile.SWCorner()

	n := len(reflected)
	doc.Comment("Building vertices")
	apex := doc.AddVertex(mgl64.Vec3{centroid[0] - swX, top, centroid[1] - swY})
	for _, p := range reflected {
		doc.AddVertex(mgl64.Vec3{p[0] - swX, lowest, p[1] - swY})
		doc.AddVertex(mgl64.Vec3{p[0] - swX, top, p[1] - swY})
	}
	base := func(k int) int { return apex + 1 + 2*(k%n) }

	doc.SetGroup(fmt.Sprintf("building_%d", e.count))
	doc.UseMaterial(fp.WallMaterial)
	for k := range n {
		b0, b1 := base(k), base(k+1)
		if err := addFaces(doc, [3]int{b0, b1, b1 + 1}, [3]int{b0, b1 + 1, b0 + 1}); err != nil {
			return Solid{}, err
		}
	}

	doc.SetGroup(fmt.Sprintf("roof_%d", e.count))
	doc.UseMaterial(fp.RoofMaterial)
	for k := range n {
		if err := addFaces(doc, [3]int{base(k) + 1, base(k+1) + 1, apex}); err != nil {
			return Solid{}, err
		}
	}

	e.count++
	return Solid{
		Apex:      apex,
		HullSize:  n,
		Vertices:  2*n + 1,
		WallFaces: 2 * n,
		RoofFaces: n,
		Ground:    lowest,
		Height:    height,
	}, nil
}

// reflect mirrors y within the tile so the building matches the flipped
// terrain axis: y' = minY + (maxY - y).
func (e *Extruder) reflect(r orb.Ring) orb.Ring {
	b := e.Tile.Bound()
	out := make(orb.Ring, len(r))
	for k, p := range r {
		out[k] = orb.Point{p[0], b.Min[1] + (b.Max[1] - p[1])}
	}
	return out
}

// GroundRange samples the elevation at every outline vertex and returns
// the lowest and highest value.
func GroundRange(elev terrain.Elevation, r orb.Ring) (lowest, highest float64) {
	lowest, highest = math.Inf(1), math.Inf(-1)
	for _, p := range r {
		h := elev.Interpolate(p[0], p[1])
		lowest = math.Min(lowest, h)
		highest = math.Max(highest, h)
	}
	if len(r) == 0 {
		return 0, 0
	}
	return lowest, highest
}

func addFaces(doc *mesh.Document, faces ...[3]int) error {
	for _, f := range faces {
		if err := doc.AddFace(f[0], f[1], f[2]); err != nil {
			return err
		}
	}
	return nil
}

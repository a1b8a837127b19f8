package terrain

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/tile"
)

// GroupName is the group holding the terrain faces of a tile.
const GroupName = "terrain"

// ErrInvalidResolution is returned for a resolution that does not evenly divide the tile size.
var ErrInvalidResolution = errors.New("mesh resolution must be a positive divisor of the tile size")

// ValidateResolution checks that res splits a tile into whole cells.
func ValidateResolution(res int) error {
	if res <= 0 || tile.Size%res != 0 {
		return fmt.Errorf("%w: %d (tile size %d)", ErrInvalidResolution, res, tile.Size)
	}
	return nil
}

// GridSize returns the number of cells per row for a resolution.
func GridSize(res int) int {
	return tile.Size / res
}

// BuildMesh appends the terrain of one tile to doc: a regular grid sampled
// every res units, emitted column by column (x outer, y inner). Each node
// gets one vertex at (x, elevation, Size - y) in tile-local coordinates and
// one UV at (x/Size, y/Size). Each cell is split along its SW to NE diagonal.
func BuildMesh(doc *mesh.Document, elev Elevation, id tile.ID, res int, material string) error {
	if err := ValidateResolution(res); err != nil {
		return err
	}

	row := GridSize(res)
	swX, swY := id.SWCorner()
	vBase, uvBase := doc.VertexCount(), doc.UVCount()

	doc.Comment("Terrain vertices")
	for xi := 0; xi <= row; xi++ {
		localX := float64(xi * res)
		for yi := 0; yi <= row; yi++ {
			localY := float64(yi * res)
			h := elev.Interpolate(swX+localX, swY+localY)
			doc.AddVertex(mgl64.Vec3{localX, h, tile.Size - localY})
			doc.AddUV(mgl64.Vec2{localX / tile.Size, localY / tile.Size})
		}
	}

	doc.SetGroup(GroupName)
	doc.UseMaterial(material)
	for xi := range row {
		columnStart := 1 + xi*(row+1)
		for yi := range row {
			p1 := columnStart + yi
			// Bottom-right triangle, then top-left
			for _, tri := range [2][3]int{
				{p1, p1 + row + 1, p1 + row + 2},
				{p1, p1 + row + 2, p1 + 1},
			} {
				v := [3]int{tri[0] + vBase, tri[1] + vBase, tri[2] + vBase}
				uv := [3]int{tri[0] + uvBase, tri[1] + uvBase, tri[2] + uvBase}
				if err := doc.AddTexturedFace(v, uv); err != nil {
					return fmt.Errorf("terrain cell (%d, %d): %w", xi, yi, err)
				}
			}
		}
	}
	return nil
}

// VertexCount returns the number of vertices (and UVs) BuildMesh emits.
func VertexCount(res int) int {
	n := GridSize(res) + 1
	return n * n
}

// FaceCount returns the number of faces BuildMesh emits.
func FaceCount(res int) int {
	n := GridSize(res)
	return 2 * n * n
}

// Package terrain provides elevation sampling and terrain mesh building for tiles.
package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/marcus-elia/simple-cities-digital-twins/pkg/formats"
)

// ErrEmptyGrid is returned when an elevation grid has no samples.
var ErrEmptyGrid = errors.New("elevation grid has no samples")

// Elevation returns the ground elevation at a projected coordinate.
type Elevation interface {
	Interpolate(x, y float64) float64
}

// Flat is a constant elevation, used when no raster is configured.
type Flat float64

// Interpolate returns the constant elevation.
func (f Flat) Interpolate(x, y float64) float64 {
	return float64(f)
}

// ElevationGrid is a read-only regular grid of elevation samples.
// Values[i][j] is the sample at (MinX + i*ResX, MinY + j*ResY).
type ElevationGrid struct {
	MinX, MinY float64
	MaxX, MaxY float64
	Cols, Rows int
	ResX, ResY float64
	Values     [][]float64 // [col][row]
}

// NewGrid builds an elevation grid from explicit extents and samples.
// Resolution is derived from the array shape.
func NewGrid(minX, minY, maxX, maxY float64, values [][]float64) (*ElevationGrid, error) {
	cols := len(values)
	if cols == 0 || len(values[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	rows := len(values[0])
	for i, col := range values {
		if len(col) != rows {
			return nil, fmt.Errorf("column %d has %d rows, expected %d", i, len(col), rows)
		}
	}

	return &ElevationGrid{
		MinX:   minX,
		MinY:   minY,
		MaxX:   maxX,
		MaxY:   maxY,
		Cols:   cols,
		Rows:   rows,
		ResX:   (maxX - minX) / float64(cols),
		ResY:   (maxY - minY) / float64(rows),
		Values: values,
	}, nil
}

// GridFromRaster creates an elevation grid from a loaded raster.
func GridFromRaster(r *formats.Raster) (*ElevationGrid, error) {
	return NewGrid(r.MinX, r.MinY, r.MaxX, r.MaxY, r.Values)
}

// Interpolate returns the bilinearly interpolated elevation at (x, y).
// Points whose surrounding samples fall outside the grid, or include a NaN
// sample, return 0.
// A point exactly on a grid line only needs the samples on that line.
func (g *ElevationGrid) Interpolate(x, y float64) float64 {
	fi := (x - g.MinX) / g.ResX
	fj := (y - g.MinY) / g.ResY
	if !(fi >= 0) || !(fj >= 0) || fi >= float64(g.Cols) || fj >= float64(g.Rows) {
		return 0
	}

	iBelow, jBelow := int(math.Floor(fi)), int(math.Floor(fj))
	tx, ty := fi-float64(iBelow), fj-float64(jBelow)

	iAbove, jAbove := iBelow, jBelow
	if tx > 0 {
		iAbove++
	}
	if ty > 0 {
		jAbove++
	}
	if iAbove >= g.Cols || jAbove >= g.Rows {
		return 0
	}

	sw := g.Values[iBelow][jBelow]
	se := g.Values[iAbove][jBelow]
	nw := g.Values[iBelow][jAbove]
	ne := g.Values[iAbove][jAbove]

	// Along x at both rows, then along y
	south := sw + (se-sw)*tx
	north := nw + (ne-nw)*tx
	z := south + (north-south)*ty
	if math.IsNaN(z) {
		return 0
	}
	return z
}

// Range returns the lowest and highest stored samples.
func (g *ElevationGrid) Range() (lowest, highest float64) {
	lowest, highest = math.Inf(1), math.Inf(-1)
	for _, col := range g.Values {
		for _, v := range col {
			lowest = math.Min(lowest, v)
			highest = math.Max(highest, v)
		}
	}
	return lowest, highest
}

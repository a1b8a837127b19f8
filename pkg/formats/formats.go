// Package formats provides readers for gridded elevation rasters.
//
// Supported inputs are the ESRI ASCII grid (.asc) and single-band 16-bit
// TIFF images georeferenced by a world file (.tfw).
package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Raster errors.
var (
	ErrTruncatedRaster   = errors.New("truncated raster data")
	ErrInvalidHeader     = errors.New("invalid raster header")
	ErrRotatedRaster     = errors.New("rotated rasters are not supported")
	ErrUnsupportedRaster = errors.New("unsupported raster format")
)

// Raster is a regular grid of elevation samples in a projected coordinate
// system. Values[i][j] is the sample of column i (eastwards from MinX) and
// row j (northwards from MinY).
type Raster struct {
	Cols, Rows int
	MinX, MinY float64
	MaxX, MaxY float64
	Values     [][]float64
}

// newRaster allocates a zeroed raster of the given shape.
func newRaster(cols, rows int) *Raster {
	values := make([][]float64, cols)
	for i := range values {
		values[i] = make([]float64, rows)
	}
	return &Raster{Cols: cols, Rows: rows, Values: values}
}

// String returns a short description of the raster.
func (r *Raster) String() string {
	return fmt.Sprintf("%dx%d [%.2f, %.2f]x[%.2f, %.2f]", r.Cols, r.Rows, r.MinX, r.MaxX, r.MinY, r.MaxY)
}

// TIFFOptions controls the conversion of stored TIFF samples to elevations.
type TIFFOptions struct {
	Scale  float64 // multiplier applied to each stored sample; 0 means 1
	Offset float64 // added after scaling
}

// LoadRaster reads an elevation raster, choosing the reader by file extension.
func LoadRaster(path string, opts TIFFOptions) (*Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc":
		r, err := ParseASC(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return r, nil
	case ".tif", ".tiff":
		world, err := os.ReadFile(WorldFilePath(path))
		if err != nil {
			return nil, fmt.Errorf("reading world file for %s: %w", path, err)
		}
		wf, err := ParseWorldFile(world)
		if err != nil {
			return nil, fmt.Errorf("parsing world file for %s: %w", path, err)
		}
		r, err := ParseTIFF(data, wf, opts)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRaster, filepath.Ext(path))
	}
}

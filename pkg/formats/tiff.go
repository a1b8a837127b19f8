package formats

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"
)

// WorldFile is the six-parameter affine georeference of a raster image.
// X and Y locate the center of the upper-left pixel.
type WorldFile struct {
	PixelX    float64 // pixel width, positive
	RotationY float64
	RotationX float64
	PixelY    float64 // pixel height, negative for north-up images
	X, Y      float64
}

// WorldFilePath returns the conventional world file path for an image
// (elevation.tif -> elevation.tfw).
func WorldFilePath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	base := strings.TrimSuffix(imagePath, ext)
	if len(ext) < 3 {
		return base + ".tfw"
	}
	return base + ext[:2] + ext[len(ext)-1:] + "w"
}

// ParseWorldFile parses the six lines of a world file.
func ParseWorldFile(data []byte) (WorldFile, error) {
	fields := strings.Fields(string(data))
	if len(fields) < 6 {
		return WorldFile{}, fmt.Errorf("%w: world file has %d values, expected 6", ErrTruncatedRaster, len(fields))
	}

	var v [6]float64
	for k := range v {
		f, err := strconv.ParseFloat(fields[k], 64)
		if err != nil {
			return WorldFile{}, fmt.Errorf("%w: world file value %d: bad number %q", ErrInvalidHeader, k+1, fields[k])
		}
		v[k] = f
	}

	wf := WorldFile{PixelX: v[0], RotationY: v[1], RotationX: v[2], PixelY: v[3], X: v[4], Y: v[5]}
	if wf.RotationX != 0 || wf.RotationY != 0 {
		return WorldFile{}, ErrRotatedRaster
	}
	if wf.PixelX <= 0 || wf.PixelY == 0 {
		return WorldFile{}, fmt.Errorf("%w: pixel size %v x %v", ErrInvalidHeader, wf.PixelX, wf.PixelY)
	}
	return wf, nil
}

// ParseTIFF decodes a single-band TIFF and georeferences it with wf.
// Image rows run north to south and are flipped into raster rows.
func ParseTIFF(data []byte, wf WorldFile, opts TIFFOptions) (*Raster, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding tiff: %w", err)
	}

	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}

	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()
	if cols == 0 || rows == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrTruncatedRaster)
	}

	r := newRaster(cols, rows)
	r.MinX = wf.X - wf.PixelX/2
	r.MaxX = r.MinX + float64(cols)*wf.PixelX
	if wf.PixelY < 0 {
		r.MaxY = wf.Y - wf.PixelY/2
		r.MinY = r.MaxY + float64(rows)*wf.PixelY
	} else {
		r.MinY = wf.Y - wf.PixelY/2
		r.MaxY = r.MinY + float64(rows)*wf.PixelY
	}

	sample := sampler(img)
	for y := range rows {
		j := rows - 1 - y
		if wf.PixelY > 0 {
			j = y
		}
		for x := range cols {
			r.Values[x][j] = float64(sample(b.Min.X+x, b.Min.Y+y))*scale + opts.Offset
		}
	}
	return r, nil
}

// sampler returns a reader of raw 16-bit sample values for img.
func sampler(img image.Image) func(x, y int) uint16 {
	switch m := img.(type) {
	case *image.Gray16:
		return func(x, y int) uint16 { return m.Gray16At(x, y).Y }
	case *image.Gray:
		return func(x, y int) uint16 { return uint16(m.GrayAt(x, y).Y) }
	default:
		return func(x, y int) uint16 {
			return color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
		}
	}
}

package formats

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/tiff"
)

// createTestASC builds an ASCII grid whose sample at (col, row-from-north) is 10*row+col.
func createTestASC(cols, rows int, cellSize float64, nodata string) []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "ncols %d\nnrows %d\nxllcorner 1000\nyllcorner 2000\ncellsize %g\n", cols, rows, cellSize)
	if nodata != "" {
		fmt.Fprintf(buf, "NODATA_value %s\n", nodata)
	}
	for row := range rows {
		vals := make([]string, cols)
		for col := range cols {
			vals[col] = fmt.Sprint(10*row + col)
		}
		buf.WriteString(strings.Join(vals, " ") + "\n")
	}
	return buf.Bytes()
}

// createTestTIFF encodes a 16-bit grayscale image whose pixel (x, y) holds 100*y+x.
func createTestTIFF(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray16(x, y, color.Gray16{Y: uint16(100*y + x)})
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("tiff.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestParseASC_ValidFile(t *testing.T) {
	r, err := ParseASC(createTestASC(3, 2, 30, ""))
	if err != nil {
		t.Fatalf("ParseASC failed: %v", err)
	}

	if r.Cols != 3 || r.Rows != 2 {
		t.Fatalf("expected 3x2, got %dx%d", r.Cols, r.Rows)
	}
	if r.MinX != 1000 || r.MinY != 2000 || r.MaxX != 1090 || r.MaxY != 2060 {
		t.Errorf("unexpected extent %s", r)
	}

	// First text row is the northern one, so it lands at raster row 1.
	if r.Values[0][1] != 0 || r.Values[2][1] != 2 {
		t.Errorf("unexpected north row: %v %v", r.Values[0][1], r.Values[2][1])
	}
	if r.Values[0][0] != 10 || r.Values[2][0] != 12 {
		t.Errorf("unexpected south row: %v %v", r.Values[0][0], r.Values[2][0])
	}
}

func TestParseASC_NoData(t *testing.T) {
	r, err := ParseASC(createTestASC(2, 2, 1, "11"))
	if err != nil {
		t.Fatalf("ParseASC failed: %v", err)
	}
	if r.Values[1][0] != 0 {
		t.Errorf("expected NODATA sample to become 0, got %v", r.Values[1][0])
	}
	if r.Values[0][0] != 10 {
		t.Errorf("expected 10, got %v", r.Values[0][0])
	}
}

func TestParseASC_CellCenterOrigin(t *testing.T) {
	data := "ncols 2\nnrows 2\nxllcenter 100\nyllcenter 200\ncellsize 10\n1 2\n3 4\n"
	r, err := ParseASC([]byte(data))
	if err != nil {
		t.Fatalf("ParseASC failed: %v", err)
	}
	if r.MinX != 95 || r.MinY != 195 {
		t.Errorf("expected origin (95, 195), got (%v, %v)", r.MinX, r.MinY)
	}
	if r.MaxX != 115 || r.MaxY != 215 {
		t.Errorf("expected max (115, 215), got (%v, %v)", r.MaxX, r.MaxY)
	}
}

func TestParseASC_NaNSamples(t *testing.T) {
	data := "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\nnan 2\n3 NaN\n"
	r, err := ParseASC([]byte(data))
	if err != nil {
		t.Fatalf("ParseASC failed: %v", err)
	}
	if r.Values[0][1] != 0 || r.Values[1][0] != 0 {
		t.Errorf("expected NaN samples to become 0, got %v %v", r.Values[0][1], r.Values[1][0])
	}
	if r.Values[1][1] != 2 || r.Values[0][0] != 3 {
		t.Errorf("unexpected samples: %v %v", r.Values[1][1], r.Values[0][0])
	}
}

func TestParseASC_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"truncated samples", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n", ErrTruncatedRaster},
		{"header only", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n", ErrTruncatedRaster},
		{"missing cellsize", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\n5\n", ErrInvalidHeader},
		{"unknown keyword", "ncols 1\nnrows 1\nfoo 3\n", ErrInvalidHeader},
		{"zero columns", "ncols 0\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n", ErrInvalidHeader},
		{"bad sample", "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n5 x\n", ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseASC([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseWorldFile(t *testing.T) {
	wf, err := ParseWorldFile([]byte("2.0\n0.0\n0.0\n-2.0\n331001.0\n4691999.0\n"))
	if err != nil {
		t.Fatalf("ParseWorldFile failed: %v", err)
	}
	if wf.PixelX != 2 || wf.PixelY != -2 || wf.X != 331001 || wf.Y != 4691999 {
		t.Errorf("unexpected world file %+v", wf)
	}

	if _, err := ParseWorldFile([]byte("1 0.5 0 -1 0 0")); !errors.Is(err, ErrRotatedRaster) {
		t.Errorf("expected ErrRotatedRaster, got %v", err)
	}
	if _, err := ParseWorldFile([]byte("1 0 0")); !errors.Is(err, ErrTruncatedRaster) {
		t.Errorf("expected ErrTruncatedRaster, got %v", err)
	}
}

func TestParseTIFF(t *testing.T) {
	wf := WorldFile{PixelX: 2, PixelY: -2, X: 1001, Y: 2005}
	r, err := ParseTIFF(createTestTIFF(t, 4, 3), wf, TIFFOptions{Scale: 0.5, Offset: -1})
	if err != nil {
		t.Fatalf("ParseTIFF failed: %v", err)
	}

	if r.Cols != 4 || r.Rows != 3 {
		t.Fatalf("expected 4x3, got %dx%d", r.Cols, r.Rows)
	}
	if r.MinX != 1000 || r.MaxX != 1008 || r.MinY != 2000 || r.MaxY != 2006 {
		t.Errorf("unexpected extent %s", r)
	}

	// Image row 0 is north, raster row 0 is south.
	if got := r.Values[3][2]; got != 0.5*3-1 {
		t.Errorf("expected %v at north-east, got %v", 0.5*3-1, got)
	}
	if got := r.Values[1][0]; got != 0.5*201-1 {
		t.Errorf("expected %v at south, got %v", 0.5*201-1, got)
	}
}

func TestLoadRaster(t *testing.T) {
	dir := t.TempDir()

	ascPath := filepath.Join(dir, "dem.asc")
	if err := os.WriteFile(ascPath, createTestASC(2, 2, 5, ""), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRaster(ascPath, TIFFOptions{})
	if err != nil {
		t.Fatalf("LoadRaster(asc) failed: %v", err)
	}
	if r.Cols != 2 {
		t.Errorf("expected 2 columns, got %d", r.Cols)
	}

	tifPath := filepath.Join(dir, "dem.tif")
	if err := os.WriteFile(tifPath, createTestTIFF(t, 2, 2), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRaster(tifPath, TIFFOptions{}); err == nil {
		t.Error("expected error without a world file")
	}
	if err := os.WriteFile(filepath.Join(dir, "dem.tfw"), []byte("1\n0\n0\n-1\n0.5\n1.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r, err = LoadRaster(tifPath, TIFFOptions{})
	if err != nil {
		t.Fatalf("LoadRaster(tif) failed: %v", err)
	}
	if r.MinX != 0 || r.MinY != 0 || r.MaxX != 2 || r.MaxY != 2 {
		t.Errorf("unexpected extent %s", r)
	}

	if _, err := LoadRaster(filepath.Join(dir, "dem.png"), TIFFOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
	pngPath := filepath.Join(dir, "dem.png")
	os.WriteFile(pngPath, []byte{}, 0644)
	if _, err := LoadRaster(pngPath, TIFFOptions{}); !errors.Is(err, ErrUnsupportedRaster) {
		t.Errorf("expected ErrUnsupportedRaster, got %v", err)
	}
}

func TestWorldFilePath(t *testing.T) {
	tests := map[string]string{
		"dem.tif":           "dem.tfw",
		"dem.tiff":          "dem.tfw",
		"/data/a.b/dem.TIF": "/data/a.b/dem.TFw",
		"noext":             "noext.tfw",
	}
	for in, want := range tests {
		if got := WorldFilePath(in); got != want {
			t.Errorf("WorldFilePath(%q) = %q, want %q", in, got, want)
		}
	}
}

package formats

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ASCHeader holds the ESRI ASCII grid header.
type ASCHeader struct {
	NCols    int
	NRows    int
	XLL      float64
	YLL      float64
	Center   bool // XLL/YLL name the lower-left cell center rather than its corner
	CellSize float64
	NoData   *float64
}

// ParseASC parses an ESRI ASCII grid. Rows are stored north first and are
// flipped so that row 0 of the result is the southernmost. NODATA and NaN
// samples become 0.
func ParseASC(data []byte) (*Raster, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)

	h, first, err := readASCHeader(scanner)
	if err != nil {
		return nil, err
	}

	r := newRaster(h.NCols, h.NRows)
	r.MinX, r.MinY = h.XLL, h.YLL
	if h.Center {
		r.MinX -= h.CellSize / 2
		r.MinY -= h.CellSize / 2
	}
	r.MaxX = r.MinX + float64(h.NCols)*h.CellSize
	r.MaxY = r.MinY + float64(h.NRows)*h.CellSize

	total := h.NCols * h.NRows
	pending := first
	for n := range total {
		tok := pending
		pending = ""
		if tok == "" {
			if !scanner.Scan() {
				return nil, fmt.Errorf("%w: got %d of %d samples", ErrTruncatedRaster, n, total)
			}
			tok = scanner.Text()
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %d: bad number %q", ErrInvalidHeader, n, tok)
		}
		if math.IsNaN(v) || (h.NoData != nil && v == *h.NoData) {
			v = 0
		}
		row, col := n/h.NCols, n%h.NCols
		r.Values[col][h.NRows-1-row] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// readASCHeader consumes header keywords until the first sample token,
// which is returned so the caller can start reading data from it.
func readASCHeader(scanner *bufio.Scanner) (ASCHeader, string, error) {
	var h ASCHeader
	seen := make(map[string]bool)

	for scanner.Scan() {
		key := strings.ToLower(scanner.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			if err := checkASCHeader(h, seen); err != nil {
				return h, "", err
			}
			return h, scanner.Text(), nil
		}
		if !scanner.Scan() {
			return h, "", fmt.Errorf("%w: %s without a value", ErrInvalidHeader, key)
		}
		val := scanner.Text()
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return h, "", fmt.Errorf("%w: %s: bad value %q", ErrInvalidHeader, key, val)
		}

		switch key {
		case "ncols":
			h.NCols = int(f)
		case "nrows":
			h.NRows = int(f)
		case "xllcorner":
			h.XLL = f
		case "yllcorner":
			h.YLL = f
		case "xllcenter":
			h.XLL, h.Center = f, true
		case "yllcenter":
			h.YLL, h.Center = f, true
		case "cellsize":
			h.CellSize = f
		case "nodata_value":
			h.NoData = &f
		default:
			return h, "", fmt.Errorf("%w: unknown keyword %q", ErrInvalidHeader, key)
		}
		seen[strings.TrimSuffix(strings.TrimSuffix(key, "corner"), "center")] = true
	}
	if err := scanner.Err(); err != nil {
		return h, "", err
	}
	if err := checkASCHeader(h, seen); err != nil {
		return h, "", err
	}
	return h, "", fmt.Errorf("%w: no samples", ErrTruncatedRaster)
}

func checkASCHeader(h ASCHeader, seen map[string]bool) error {
	for _, key := range []string{"ncols", "nrows", "xll", "yll", "cellsize"} {
		if !seen[key] {
			return fmt.Errorf("%w: missing %s", ErrInvalidHeader, key)
		}
	}
	if h.NCols <= 0 || h.NRows <= 0 {
		return fmt.Errorf("%w: non-positive dimensions %dx%d", ErrInvalidHeader, h.NCols, h.NRows)
	}
	if h.CellSize <= 0 {
		return fmt.Errorf("%w: non-positive cell size %v", ErrInvalidHeader, h.CellSize)
	}
	return nil
}

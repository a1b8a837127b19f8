// Package tile provides square tile addressing in a projected (UTM) coordinate system.
package tile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/marcus-elia/simple-cities-digital-twins/pkg/utm"
)

// Size is the side length of every tile in meters.
const Size = 1000

// Tile addressing errors.
var (
	ErrZoneMismatch  = errors.New("tile range crosses projection zones")
	ErrInvalidLatLon = errors.New("invalid lat/lon string")
)

// ID identifies one tile of the projected grid.
// A point (x, y) belongs to tile (I, J) iff I = floor(x/Size) and J = floor(y/Size).
type ID struct {
	I    int
	J    int
	Zone int
}

// ForProjected returns the tile containing the projected point (x, y).
func ForProjected(x, y float64, zone int) ID {
	return ID{
		I:    int(math.Floor(x / Size)),
		J:    int(math.Floor(y / Size)),
		Zone: zone,
	}
}

// ForGeo returns the tile containing the geographic coordinate.
func ForGeo(lat, lon float64) (ID, error) {
	x, y, zone, err := utm.FromLatLon(lat, lon)
	if err != nil {
		return ID{}, err
	}
	return ForProjected(x, y, zone), nil
}

// FromIndices builds an ID directly from grid indices.
func FromIndices(i, j, zone int) ID {
	return ID{I: i, J: j, Zone: zone}
}

// String returns the tile name used for directories and materials, "i_j_zone".
func (t ID) String() string {
	return fmt.Sprintf("%d_%d_%d", t.I, t.J, t.Zone)
}

// SWCorner returns the minimum corner of the tile.
func (t ID) SWCorner() (x, y float64) {
	return float64(t.I) * Size, float64(t.J) * Size
}

// Center returns the projected center of the tile.
func (t ID) Center() (x, y float64) {
	return (float64(t.I) + 0.5) * Size, (float64(t.J) + 0.5) * Size
}

// CenterLatLon returns the geographic center of the tile.
// Projected coordinates do not carry the hemisphere, so the caller supplies it.
func (t ID) CenterLatLon(northern bool) (lat, lon float64, err error) {
	x, y := t.Center()
	return utm.ToLatLon(x, y, t.Zone, northern)
}

// Bound returns the axis-aligned footprint of the tile.
func (t ID) Bound() orb.Bound {
	minX, minY := t.SWCorner()
	return orb.Bound{
		Min: orb.Point{minX, minY},
		Max: orb.Point{minX + Size, minY + Size},
	}
}

// Footprint returns the closed square polygon of the tile, counter-clockwise from the SW corner.
func (t ID) Footprint() orb.Polygon {
	minX, minY := t.SWCorner()
	maxX, maxY := minX+Size, minY+Size
	return orb.Polygon{orb.Ring{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
		{minX, minY},
	}}
}

// Contains reports whether the projected point lies inside the tile (min edges inclusive).
func (t ID) Contains(x, y float64) bool {
	return ForProjected(x, y, t.Zone) == t
}

// Range is a rectangular block of tiles within one projection zone.
type Range struct {
	MinI, MinJ int
	MaxI, MaxJ int
	Zone       int
}

// NewRange returns the block spanned by two corner tiles.
// Both corners must be in the same projection zone.
func NewRange(sw, ne ID) (Range, error) {
	if sw.Zone != ne.Zone {
		return Range{}, fmt.Errorf("%w: from zone %d to %d", ErrZoneMismatch, sw.Zone, ne.Zone)
	}
	return Range{
		MinI: min(sw.I, ne.I),
		MinJ: min(sw.J, ne.J),
		MaxI: max(sw.I, ne.I),
		MaxJ: max(sw.J, ne.J),
		Zone: sw.Zone,
	}, nil
}

// RangeForGeo returns the block of tiles between two geographic corners.
func RangeForGeo(swLat, swLon, neLat, neLon float64) (Range, error) {
	sw, err := ForGeo(swLat, swLon)
	if err != nil {
		return Range{}, fmt.Errorf("sw corner: %w", err)
	}
	ne, err := ForGeo(neLat, neLon)
	if err != nil {
		return Range{}, fmt.Errorf("ne corner: %w", err)
	}
	return NewRange(sw, ne)
}

// Count returns the number of tiles in the block.
func (r Range) Count() int {
	return (r.MaxI - r.MinI + 1) * (r.MaxJ - r.MinJ + 1)
}

// Tiles returns every tile of the block, i ascending then j ascending.
func (r Range) Tiles() []ID {
	ids := make([]ID, 0, r.Count())
	for i := r.MinI; i <= r.MaxI; i++ {
		for j := r.MinJ; j <= r.MaxJ; j++ {
			ids = append(ids, ID{I: i, J: j, Zone: r.Zone})
		}
	}
	return ids
}

// ParseLatLon parses "lat,lon" or "lat, lon".
func ParseLatLon(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLatLon, s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLatLon, s)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLatLon, s)
	}
	return lat, lon, nil
}

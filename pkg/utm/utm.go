// Package utm converts between WGS84 geographic coordinates and UTM zone coordinates.
package utm

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ctessum/geom/proj"
)

// Conversion errors.
var (
	ErrLatitudeOutOfRange  = errors.New("latitude out of UTM range (-80, 84)")
	ErrLongitudeOutOfRange = errors.New("longitude out of range [-180, 180)")
	ErrInvalidZone         = errors.New("invalid UTM zone")
)

const longLatDef = "+proj=longlat +datum=WGS84 +no_defs"

// Zone returns the UTM zone number for a coordinate, including the
// Norway and Svalbard exceptions.
func Zone(lat, lon float64) int {
	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		return 32
	}
	if lat >= 72 && lat <= 84 && lon >= 0 {
		switch {
		case lon < 9:
			return 31
		case lon < 21:
			return 33
		case lon < 33:
			return 35
		case lon < 42:
			return 37
		}
	}
	return int(math.Floor((lon+180)/6)) + 1
}

// FromLatLon projects a geographic coordinate into its UTM zone.
// Northings in the southern hemisphere include the 10,000 km false northing.
func FromLatLon(lat, lon float64) (x, y float64, zone int, err error) {
	if lat <= -80 || lat > 84 {
		return 0, 0, 0, fmt.Errorf("%w: %f", ErrLatitudeOutOfRange, lat)
	}
	if lon < -180 || lon >= 180 {
		return 0, 0, 0, fmt.Errorf("%w: %f", ErrLongitudeOutOfRange, lon)
	}

	zone = Zone(lat, lon)
	t, err := defaultCache.forward(zone, lat >= 0)
	if err != nil {
		return 0, 0, 0, err
	}
	x, y, err = t(lon, lat)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("projecting (%f, %f): %w", lat, lon, err)
	}
	return x, y, zone, nil
}

// ToLatLon converts UTM coordinates in the given zone back to latitude and longitude.
func ToLatLon(x, y float64, zone int, northern bool) (lat, lon float64, err error) {
	if zone < 1 || zone > 60 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidZone, zone)
	}
	t, err := defaultCache.inverse(zone, northern)
	if err != nil {
		return 0, 0, err
	}
	lon, lat, err = t(x, y)
	if err != nil {
		return 0, 0, fmt.Errorf("unprojecting (%f, %f): %w", x, y, err)
	}
	return lat, lon, nil
}

// zoneDef returns the proj4 definition of a UTM zone.
func zoneDef(zone int, northern bool) string {
	def := fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone)
	if !northern {
		def += " +south"
	}
	return def
}

type cacheKey struct {
	zone     int
	northern bool
	inverse  bool
}

// transformCache holds parsed transforms so each zone is parsed once per run.
type transformCache struct {
	mu         sync.Mutex
	transforms map[cacheKey]proj.Transformer
}

var defaultCache = &transformCache{transforms: make(map[cacheKey]proj.Transformer)}

func (c *transformCache) forward(zone int, northern bool) (proj.Transformer, error) {
	return c.get(cacheKey{zone: zone, northern: northern})
}

func (c *transformCache) inverse(zone int, northern bool) (proj.Transformer, error) {
	return c.get(cacheKey{zone: zone, northern: northern, inverse: true})
}

func (c *transformCache) get(key cacheKey) (proj.Transformer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.transforms[key]; ok {
		return t, nil
	}

	geo, err := proj.Parse(longLatDef)
	if err != nil {
		return nil, fmt.Errorf("parsing longlat definition: %w", err)
	}
	zoneSR, err := proj.Parse(zoneDef(key.zone, key.northern))
	if err != nil {
		return nil, fmt.Errorf("parsing zone %d definition: %w", key.zone, err)
	}

	var t proj.Transformer
	if key.inverse {
		t, err = zoneSR.NewTransform(geo)
	} else {
		t, err = geo.NewTransform(zoneSR)
	}
	if err != nil {
		return nil, fmt.Errorf("creating zone %d transform: %w", key.zone, err)
	}

	c.transforms[key] = t
	return t, nil
}

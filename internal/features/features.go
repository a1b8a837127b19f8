package features

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// Per-tile input file names.
const (
	BuildingsFile       = "buildings.geojson"
	TreesFile           = "trees.geojson"
	CustomBuildingsFile = "custom_buildings.txt"
)

// Property keys read from building features.
const (
	PropHeight    = "height"
	PropMeshColor = "mesh_color"
	PropRoofColor = "roof_color"
	PropOSMID     = "osm_id"
)

// Building is one building footprint with the attributes the extruder uses.
// A multipolygon feature yields one Building per member polygon.
type Building struct {
	ID        int64
	Polygon   orb.Polygon
	Height    float64
	HasHeight bool
	MeshColor string
	RoofColor string
}

// LoadCollection reads a feature collection. A missing file is an empty collection.
func LoadCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return geojson.NewFeatureCollection(), nil
	}
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// LoadBuildings reads building footprints. Features with non-polygonal
// geometry are logged and skipped.
func LoadBuildings(path string, log *zap.Logger) ([]Building, error) {
	fc, err := LoadCollection(path)
	if err != nil {
		return nil, err
	}

	var buildings []Building
	for k, f := range fc.Features {
		polys, err := Polygons(f.Geometry)
		if err != nil {
			log.Warn("skipping building feature", zap.String("file", path), zap.Int("feature", k), zap.Error(err))
			continue
		}

		b := Building{
			ID:        FeatureID(f),
			MeshColor: f.Properties.MustString(PropMeshColor, ""),
			RoofColor: f.Properties.MustString(PropRoofColor, ""),
		}
		if h, ok := Height(f.Properties); ok {
			b.Height, b.HasHeight = h, true
		} else if _, present := f.Properties[PropHeight]; present {
			log.Debug("ignoring bad height", zap.String("file", path), zap.Int64("osm_id", b.ID), zap.Any("height", f.Properties[PropHeight]))
		}

		for _, p := range polys {
			b.Polygon = p
			buildings = append(buildings, b)
		}
	}
	return buildings, nil
}

// LoadPoints reads point features such as trees. Features with non-point
// geometry are logged and skipped.
func LoadPoints(path string, log *zap.Logger) ([]orb.Point, error) {
	fc, err := LoadCollection(path)
	if err != nil {
		return nil, err
	}

	var points []orb.Point
	for k, f := range fc.Features {
		pts, err := Points(f.Geometry)
		if err != nil {
			log.Warn("skipping point feature", zap.String("file", path), zap.Int("feature", k), zap.Error(err))
			continue
		}
		points = append(points, pts...)
	}
	return points, nil
}

// Height reads the height property. Numbers are taken as is; strings may
// carry a trailing "m" or "M" unit.
func Height(props geojson.Properties) (float64, bool) {
	switch v := props[PropHeight].(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case string:
		s := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(v), "mM"))
		h, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
			return 0, false
		}
		return h, true
	default:
		return 0, false
	}
}

// FeatureID returns the osm_id property, falling back to the feature id.
// Unknown identifiers are 0.
func FeatureID(f *geojson.Feature) int64 {
	if id, ok := parseID(f.Properties[PropOSMID]); ok {
		return id
	}
	if id, ok := parseID(f.ID); ok {
		return id
	}
	return 0
}

func parseID(v any) (int64, bool) {
	switch id := v.(type) {
	case float64:
		return int64(id), id == math.Trunc(id)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Package features loads the per-tile vector inputs: bucketed GeoJSON
// feature files in projected coordinates and the custom building manifest.
package features

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrUnsupportedGeometry is returned when a geometry kind cannot be converted.
var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// Kind is the closed set of geometry variants found in feature files.
type Kind uint8

// Geometry kinds.
const (
	KindUnknown Kind = iota
	KindPolygon
	KindMultiPolygon
	KindPoint
	KindMultiPoint
	KindLine
	KindMultiLine
)

// String returns the GeoJSON type name.
func (k Kind) String() string {
	switch k {
	case KindPolygon:
		return "Polygon"
	case KindMultiPolygon:
		return "MultiPolygon"
	case KindPoint:
		return "Point"
	case KindMultiPoint:
		return "MultiPoint"
	case KindLine:
		return "LineString"
	case KindMultiLine:
		return "MultiLineString"
	default:
		return "Unknown"
	}
}

// KindOf classifies a geometry.
func KindOf(g orb.Geometry) Kind {
	switch g.(type) {
	case orb.Polygon:
		return KindPolygon
	case orb.MultiPolygon:
		return KindMultiPolygon
	case orb.Point:
		return KindPoint
	case orb.MultiPoint:
		return KindMultiPoint
	case orb.LineString:
		return KindLine
	case orb.MultiLineString:
		return KindMultiLine
	default:
		return KindUnknown
	}
}

// Polygons converts a polygonal geometry into its member polygons.
func Polygons(g orb.Geometry) ([]orb.Polygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}, nil
	case orb.MultiPolygon:
		return []orb.Polygon(v), nil
	default:
		return nil, unsupported(g, "polygon")
	}
}

// Points converts a point geometry into its member points.
func Points(g orb.Geometry) ([]orb.Point, error) {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}, nil
	case orb.MultiPoint:
		return []orb.Point(v), nil
	default:
		return nil, unsupported(g, "point")
	}
}

func unsupported(g orb.Geometry, want string) error {
	name := KindOf(g).String()
	if g != nil && KindOf(g) == KindUnknown {
		name = g.GeoJSONType()
	}
	return fmt.Errorf("%w: %s where a %s was expected", ErrUnsupportedGeometry, name, want)
}

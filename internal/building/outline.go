package building

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// FootprintPolicy selects the outline extruded for a footprint.
type FootprintPolicy string

// Footprint policies.
const (
	PolicyConvexHull FootprintPolicy = "convex_hull" // extrude the convex hull of the outer ring
	PolicyExact      FootprintPolicy = "exact"       // extrude the outer ring as given
)

// ParsePolicy validates a policy name. The empty string selects the convex hull.
func ParsePolicy(s string) (FootprintPolicy, error) {
	switch FootprintPolicy(s) {
	case "", PolicyConvexHull:
		return PolicyConvexHull, nil
	case PolicyExact:
		return PolicyExact, nil
	default:
		return "", fmt.Errorf("unknown footprint policy %q", s)
	}
}

// Outline returns the open, counter-clockwise ring extruded for a polygon
// under the given policy. Holes are ignored.
func Outline(p orb.Polygon, policy FootprintPolicy) (orb.Ring, error) {
	if len(p) == 0 {
		return nil, ErrDegenerateFootprint
	}

	var ring orb.Ring
	if policy == PolicyExact {
		ring = openRing(p[0])
		if len(ring) >= 3 && ring.Orientation() == orb.CW {
			slices.Reverse(ring)
		}
	} else {
		ring = ConvexHull(p[0])
	}

	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: %d outline vertices", ErrDegenerateFootprint, len(ring))
	}
	if _, area := planar.CentroidArea(closeRing(ring)); area == 0 {
		return nil, fmt.Errorf("%w: zero area", ErrDegenerateFootprint)
	}
	return ring, nil
}

// ConvexHull returns the convex hull of the points in counter-clockwise order,
// starting from the lowest-x point, without a repeated closing point.
// Collinear boundary points are dropped.
func ConvexHull(points []orb.Point) orb.Ring {
	pts := slices.Clone(points)
	slices.SortFunc(pts, func(a, b orb.Point) int {
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		if a[1] < b[1] {
			return -1
		}
		if a[1] > b[1] {
			return 1
		}
		return 0
	})
	pts = slices.Compact(pts)
	if len(pts) < 3 {
		return orb.Ring(pts)
	}

	hull := make(orb.Ring, 0, 2*len(pts))
	// Lower hull
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// Upper hull
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// cross is the z component of (a - o) x (b - o).
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// openRing drops the closing point and consecutive duplicates.
func openRing(r orb.Ring) orb.Ring {
	out := slices.Compact(slices.Clone(r))
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func closeRing(r orb.Ring) orb.Ring {
	closed := make(orb.Ring, len(r), len(r)+1)
	copy(closed, r)
	return append(closed, r[0])
}

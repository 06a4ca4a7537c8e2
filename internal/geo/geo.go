// Package geo implements C2 Geometry Services: coordinate transforms
// between EPSG:4326 and a deployment's local projected CRS, UTM zone
// derivation, point-in-polygon/intersection tests and R-tree indexing over
// Suburb/Airport polygons. Built on github.com/paulmach/orb, one of the
// retrieved pack's declared-but-previously-unused dependencies.
package geo

import (
	"math"

	"aireyes/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Point is an alias for orb.Point (lon/lat or x/y depending on context).
type Point = orb.Point

// UTMZone computes the UTM EPSG zone for a WGS84 coordinate using the
// formula from spec.md §4.1:
//
//	32700 − round((45+lat)/90)·100 + round((183+lon)/6)
func UTMZone(lon, lat float64) int {
	return 32700 - int(math.Round((45+lat)/90))*100 + int(math.Round((183+lon)/6))
}

// Projector transforms points between EPSG:4326 (the wire format) and the
// deployment's single working projected CRS. The default implementation is
// a documented approximation (equirectangular, centered on the configured
// origin) — a full geodetic transform library is out of scope per spec.md
// §1's Non-goals, but this interface boundary lets one be substituted.
type Projector interface {
	// ToProjected converts a WGS84 lon/lat into the working CRS.
	ToProjected(lon, lat float64) (x, y float64, err error)
	// ToGeodetic is the inverse of ToProjected.
	ToGeodetic(x, y float64) (lon, lat float64, err error)
	// EPSG is the working CRS's EPSG code.
	EPSG() int
}

// EquirectangularProjector is a stand-in projected CRS: an equirectangular
// approximation centered on OriginLon/OriginLat, scaled to meters via the
// mean Earth radius. Adequate for distance/containment math at suburb
// scale; not a substitute for a real geodetic library at country scale.
type EquirectangularProjector struct {
	EPSGCode             int
	OriginLon, OriginLat float64
}

const earthRadiusMeters = 6371000.0

func (p EquirectangularProjector) ToProjected(lon, lat float64) (float64, float64, error) {
	latRad := p.OriginLat * math.Pi / 180
	x := (lon - p.OriginLon) * math.Pi / 180 * earthRadiusMeters * math.Cos(latRad)
	y := (lat - p.OriginLat) * math.Pi / 180 * earthRadiusMeters
	return x, y, nil
}

func (p EquirectangularProjector) ToGeodetic(x, y float64) (float64, float64, error) {
	latRad := p.OriginLat * math.Pi / 180
	lon := p.OriginLon + (x/(earthRadiusMeters*math.Cos(latRad)))*180/math.Pi
	lat := p.OriginLat + (y/earthRadiusMeters)*180/math.Pi
	return lon, lat, nil
}

func (p EquirectangularProjector) EPSG() int { return p.EPSGCode }

// Contains reports whether a polygon contains a point, via orb/planar.
func Contains(poly domain.Polygon, pt Point) bool {
	return planar.PolygonContains(poly, pt)
}

// MultiContains reports whether any polygon of a MultiPolygon contains pt.
func MultiContains(mp domain.MultiPolygon, pt Point) bool {
	return planar.MultiPolygonContains(mp, pt)
}

// Distance is the planar Euclidean distance between two projected points,
// used for nearest-centroid airport selection (spec.md §4.5).
func Distance(a, b Point) float64 {
	return planar.Distance(a, b)
}

// LineStringLength sums the planar distance between consecutive points, the
// projected-CRS equivalent of the original's Shapely LineString().length
// call in calculations.py's total_distance_travelled_from.
func LineStringLength(ls orb.LineString) float64 {
	return planar.Length(ls)
}

// RingsIntersect reports whether two polygons' outer rings intersect,
// using a coarse bounding-box pre-check before a full edge-intersection
// scan — the same two-phase approach original_source/calculations.py's
// STRtree usage implies (bbox filter, then exact test).
func RingsIntersect(a, b orb.Ring) bool {
	if !boundOf(a).Intersects(boundOf(b)) {
		return false
	}
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func boundOf(ring orb.Ring) orb.Bound {
	b := orb.Bound{Min: ring[0], Max: ring[0]}
	for _, pt := range ring {
		b = b.Extend(pt)
	}
	return b
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross(p4, p3, p1)
	d2 := cross(p4, p3, p2)
	d3 := cross(p2, p1, p3)
	d4 := cross(p2, p1, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	within := func(a, b, p orb.Point) bool {
		return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
			math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
	}
	return (d1 == 0 && within(p3, p4, p1)) || (d2 == 0 && within(p3, p4, p2)) ||
		(d3 == 0 && within(p1, p2, p3)) || (d4 == 0 && within(p1, p2, p4))
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

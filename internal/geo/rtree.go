package geo

import (
	"sort"

	"aireyes/internal/domain"

	"github.com/paulmach/orb"
)

// RTree is a simple bounding-box index over a set of polygons, the Go
// analog of the STRtree the original builds ad hoc in
// original_source/webapp/app/calculations.py's find_airport_via_epsg_for.
// It is not a balanced tree — entries are scanned linearly with a
// bounding-box short-circuit, which is adequate at the per-UTM-zone
// candidate-set sizes this system deals with (a handful to a few hundred
// polygons, never the whole country).
type RTree[T any] struct {
	entries []rtreeEntry[T]
}

type rtreeEntry[T any] struct {
	bound orb.Bound
	value T
}

// NewRTree builds an index over items, given a function that extracts each
// item's bounding box.
func NewRTree[T any](items []T, boundOf func(T) orb.Bound) *RTree[T] {
	t := &RTree[T]{entries: make([]rtreeEntry[T], 0, len(items))}
	for _, item := range items {
		t.entries = append(t.entries, rtreeEntry[T]{bound: boundOf(item), value: item})
	}
	return t
}

// Intersecting returns every item whose bounding box contains pt, in
// insertion order.
func (t *RTree[T]) Intersecting(pt orb.Point) []T {
	var out []T
	for _, e := range t.entries {
		if e.bound.Contains(pt) {
			out = append(out, e.value)
		}
	}
	return out
}

// Nearest returns the item whose centroid (as computed by centroidOf) is
// closest to pt, breaking ties by insertion order. Returns false if items
// is empty.
func Nearest[T any](items []T, pt orb.Point, centroidOf func(T) orb.Point) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	best := items[0]
	bestDist := Distance(pt, centroidOf(items[0]))
	for _, item := range items[1:] {
		d := Distance(pt, centroidOf(item))
		if d < bestDist {
			best, bestDist = item, d
		}
	}
	return best, true
}

// PolygonCentroid returns the arithmetic mean of a polygon's outer ring
// vertices, sufficient for nearest-centroid airport selection at the scale
// this system operates on (small buffered-point polygons).
func PolygonCentroid(p domain.Polygon) orb.Point {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}
	}
	ring := p[0]
	var sx, sy float64
	n := len(ring)
	if ring[0] == ring[n-1] && n > 1 {
		n--
	}
	for i := 0; i < n; i++ {
		sx += ring[i][0]
		sy += ring[i][1]
	}
	return orb.Point{sx / float64(n), sy / float64(n)}
}

// SuburbsByUTMZone indexes a suburb set by each zone it is associated with,
// so FindByZone returns a stable candidate list without re-scanning the
// full set, mirroring _find_potential_suburbs_by_epsg's "collect by EPSG"
// step in original_source/webapp/app/geospatial.py.
type SuburbsByUTMZone struct {
	byZone map[int][]*domain.Suburb
}

func BuildSuburbZoneIndex(suburbs []*domain.Suburb) *SuburbsByUTMZone {
	idx := &SuburbsByUTMZone{byZone: make(map[int][]*domain.Suburb)}
	for _, s := range suburbs {
		for _, z := range s.UTMEPSGZones {
			idx.byZone[z] = append(idx.byZone[z], s)
		}
	}
	for _, list := range idx.byZone {
		sort.Slice(list, func(i, j int) bool { return list[i].Hash < list[j].Hash })
	}
	return idx
}

// FindByZone returns all suburbs associated with zone, optionally filtered
// to a single state code's string representation.
func (idx *SuburbsByUTMZone) FindByZone(zone int, stateCode string) []*domain.Suburb {
	all := idx.byZone[zone]
	if stateCode == "" {
		return all
	}
	out := make([]*domain.Suburb, 0, len(all))
	for _, s := range all {
		if s.State.String() == stateCode {
			out = append(out, s)
		}
	}
	return out
}

package assimilate

import (
	"aireyes/internal/domain"
	"aireyes/internal/geo"

	"github.com/paulmach/orb"
)

// AirportIndex is the read-only view the assimilator queries to determine
// takeoff/landing airports: lookup by UTM zone, grounded on
// original_source/webapp/app/calculations.py's find_airport_via_epsg_for
// (R-tree-by-zone, then nearest-centroid tiebreak).
type AirportIndex struct {
	byZone map[int][]*domain.Airport
}

func BuildAirportIndex(airports []*domain.Airport) *AirportIndex {
	idx := &AirportIndex{byZone: make(map[int][]*domain.Airport)}
	for _, a := range airports {
		for _, z := range a.UTMEPSGZones {
			idx.byZone[z] = append(idx.byZone[z], a)
		}
	}
	return idx
}

// FindAirportAt resolves the airport whose polygon contains pt, breaking
// ties (multiple containing polygons) by nearest centroid. Returns
// ok=false (not fatal — spec.md §4.5's "downgrade to null, not fatal")
// when no airports are loaded or none contain the point.
func (idx *AirportIndex) FindAirportAt(lon, lat float64, pt orb.Point) (*domain.Airport, bool) {
	if len(idx.byZone) == 0 {
		return nil, false
	}
	zone := geo.UTMZone(lon, lat)
	candidates := idx.byZone[zone]

	var containing []*domain.Airport
	for _, a := range candidates {
		if geo.Contains(a.Polygon, pt) {
			containing = append(containing, a)
		}
	}
	if len(containing) == 0 {
		return nil, false
	}
	nearest, ok := geo.Nearest(containing, pt, func(a *domain.Airport) orb.Point {
		return geo.PolygonCentroid(a.Polygon)
	})
	return nearest, ok
}

package geo

import "aireyes/internal/domain"

// DetermineNeighbours computes the symmetric neighbour relation over a set
// of suburbs belonging to the same state: two suburbs are neighbours if
// their multi-polygons' outer rings intersect. Grounded on
// original_source/webapp/app/geospatial.py's determine_neighbours_for,
// which runs this once at suburb-load time rather than as a live query
// (spec.md §9's "materialised many-to-many table" design note).
func DetermineNeighbours(suburbs []*domain.Suburb) {
	for i, a := range suburbs {
		for j := i + 1; j < len(suburbs); j++ {
			b := suburbs[j]
			if !a.BoundingBox.Intersects(b.BoundingBox) {
				continue
			}
			if multiPolygonsIntersect(a.MultiPolygon, b.MultiPolygon) {
				a.Neighbours = appendUnique(a.Neighbours, b.Hash)
				b.Neighbours = appendUnique(b.Neighbours, a.Hash)
			}
		}
	}
}

func multiPolygonsIntersect(a, b domain.MultiPolygon) bool {
	for _, pa := range a {
		for _, pb := range b {
			if len(pa) == 0 || len(pb) == 0 {
				continue
			}
			if RingsIntersect(pa[0], pb[0]) {
				return true
			}
		}
	}
	return false
}

func appendUnique(list []string, hash string) []string {
	for _, h := range list {
		if h == hash {
			return list
		}
	}
	return append(list, hash)
}

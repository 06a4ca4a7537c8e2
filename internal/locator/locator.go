// Package locator implements C3, the Geospatial Locator: given a list of
// FlightPoints in time order, assigns each a Suburb using a tiered lookup
// that exploits temporal locality. Grounded line-for-line on
// original_source/webapp/app/geospatial.py's GeospatialFlightPointLocator.
package locator

import (
	"time"

	"aireyes/internal/domain"
	"aireyes/internal/geo"

	"github.com/paulmach/orb"
)

// Methodology tags which tier resolved a point, mirroring the original's
// GeospatialFlightPointLocationResult bookkeeping (found_from strings).
type Methodology string

const (
	MethodologyLastSuburb  Methodology = "exact-last-suburb"
	MethodologyExactSuburb Methodology = "exact-suburb"
	MethodologyNeighbour   Methodology = "neighbour-last-suburb"
	MethodologySameState   Methodology = "state-epsg"
	MethodologyGlobal      Methodology = "global-epsg"
	MethodologySkipped     Methodology = "skipped"
	MethodologyExhausted   Methodology = "search-exhausted"
	MethodologyNoPosition  Methodology = "no-position"
)

// PointResult is the per-point outcome in a Result.
type PointResult struct {
	FlightPointHash string
	Success         bool
	Methodology     Methodology
	SuburbHash      string
	Coordinates     *orb.Point // set on failure, for diagnostics
}

// Result is returned by Locate: per-point outcomes plus elapsed wall time.
// The locator never mutates input ordering.
type Result struct {
	Points   []PointResult
	Elapsed  time.Duration
}

// SuburbIndex is the read-only view the locator queries against: suburb
// lookup by hash, and the per-zone candidate index built at bootstrap by
// geo.BuildSuburbZoneIndex.
type SuburbIndex struct {
	ByHash map[string]*domain.Suburb
	ByZone *geo.SuburbsByUTMZone
}

// Locator implements the tiered strategy. OverwriteExisting controls
// whether points that already carry a SuburbHash are recomputed (spec.md
// §4.2 default false).
type Locator struct {
	Index             *SuburbIndex
	OverwriteExisting bool
	PostGISEnabled    bool
	// ContainsFn abstracts polygon containment and defaults to
	// geo.MultiContains. PostGISEnabled is not read; no caller substitutes
	// a store-backed ST_Contains probe, so containment always runs
	// in-process.
	ContainsFn func(domain.MultiPolygon, orb.Point) bool
}

// New constructs a Locator with the default in-process containment test.
func New(index *SuburbIndex) *Locator {
	return &Locator{Index: index, ContainsFn: geo.MultiContains}
}

// Locate geolocates points in time order, seeded optionally with a hint
// suburb (the most recently known suburb for the aircraft). Per spec.md
// §4.2, points whose Position is invalid are marked failed with
// "no-position" and the locator does not halt on any single failure.
func (l *Locator) Locate(points []*domain.FlightPoint, hintSuburb *domain.Suburb) Result {
	start := time.Now()
	res := Result{Points: make([]PointResult, 0, len(points))}

	var lastSuburb *domain.Suburb = hintSuburb
	var lastState string
	if hintSuburb != nil {
		lastState = hintSuburb.State.String()
	}

	for _, fp := range points {
		if !fp.Position.Valid {
			res.Points = append(res.Points, PointResult{FlightPointHash: fp.Hash, Success: false, Methodology: MethodologyNoPosition})
			continue
		}
		if fp.SuburbHash != "" && !l.OverwriteExisting {
			if s := l.Index.ByHash[fp.SuburbHash]; s != nil {
				lastSuburb, lastState = s, s.State.String()
			}
			res.Points = append(res.Points, PointResult{FlightPointHash: fp.Hash, Success: true, Methodology: MethodologySkipped, SuburbHash: fp.SuburbHash})
			continue
		}

		pt := orb.Point{fp.Position.X, fp.Position.Y}
		zone := fp.UTMEPSGZone
		if zone == 0 {
			zone = geo.UTMZone(fp.Geodetic.Longitude, fp.Geodetic.Latitude)
			fp.UTMEPSGZone = zone
		}

		var found *domain.Suburb
		var method Methodology

		if lastSuburb != nil {
			found, method = l.exactSuburbContaining(lastSuburb, pt)
		}
		if found == nil && lastState != "" {
			found, method = l.exactSuburbByZone(pt, zone, lastState)
		}
		if found == nil {
			found, method = l.exactSuburbByZone(pt, zone, "")
		}

		if found != nil {
			fp.SuburbHash = found.Hash
			lastSuburb, lastState = found, found.State.String()
			res.Points = append(res.Points, PointResult{FlightPointHash: fp.Hash, Success: true, Methodology: method, SuburbHash: found.Hash})
		} else {
			lastSuburb = nil
			geoPt := orb.Point{fp.Geodetic.Longitude, fp.Geodetic.Latitude}
			res.Points = append(res.Points, PointResult{FlightPointHash: fp.Hash, Success: false, Methodology: MethodologyExhausted, Coordinates: &geoPt})
		}
	}

	res.Elapsed = time.Since(start)
	return res
}

// exactSuburbContaining is _exact_suburb_containing: test the given suburb,
// then its materialized neighbours, on failure.
func (l *Locator) exactSuburbContaining(suburb *domain.Suburb, pt orb.Point) (*domain.Suburb, Methodology) {
	if l.ContainsFn(suburb.MultiPolygon, pt) {
		return suburb, MethodologyLastSuburb
	}
	for _, nHash := range suburb.Neighbours {
		n := l.Index.ByHash[nHash]
		if n == nil {
			continue
		}
		if l.ContainsFn(n.MultiPolygon, pt) {
			return n, MethodologyNeighbour
		}
	}
	return nil, ""
}

// exactSuburbByZone is _exact_suburb_by_epsg: given the point's UTM zone,
// collect suburbs whose zone set includes it (optionally filtered to
// stateCode), and test each for containment.
func (l *Locator) exactSuburbByZone(pt orb.Point, zone int, stateCode string) (*domain.Suburb, Methodology) {
	candidates := l.Index.ByZone.FindByZone(zone, stateCode)
	for _, candidate := range candidates {
		if l.ContainsFn(candidate.MultiPolygon, pt) {
			if stateCode != "" {
				return candidate, MethodologySameState
			}
			return candidate, MethodologyGlobal
		}
	}
	return nil, ""
}

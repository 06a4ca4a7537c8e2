package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Polygon and MultiPolygon are the projected-CRS ring representations
// shared by Airport and Suburb, backed by paulmach/orb's geometry types.
type Polygon = orb.Polygon
type MultiPolygon = orb.MultiPolygon

// Flight is a single complete journey, identified by a UUID-like hash.
// Invariant: membership of a FlightPoint in a Flight is exclusive; the
// Flight's first-point timestamp never decreases once set unless a
// re-assimilation explicitly extends it backward.
type Flight struct {
	Hash         string
	AircraftICAO string

	TakeoffAirportHash string // empty if unknown
	LandingAirportHash string // empty if unknown

	FirstPointTimestamp time.Time
	LastPointTimestamp  time.Time

	DistanceMeters     *float64
	FuelGallons        *float64
	AverageSpeedKnots  *float64
	AverageAltitudeFt  *float64
	TotalMinutes       *int
	ProhibitedMinutes  *int
	TotalCO2Kg         *float64

	HasDepartureDetails bool
	HasArrivalDetails   bool
	TaxiOnly            bool
	IsOnGround          bool // realtime: true while the flight has not yet landed

	// InaccuracyResolution records the decision made by the inaccuracy
	// resolver's catch-all, when one fired during this flight's assembly.
	InaccuracyResolution *InaccuracyResolution
}

// DaysAcross counts the distinct UTC calendar dates the flight's endpoint
// timestamps span. Supplemented from the original's models.py; required by
// seed scenario 2 (days_across = 2 for a flight crossing midnight UTC).
func (f *Flight) DaysAcross() int {
	d1 := DayFromTimestamp(f.FirstPointTimestamp).Date
	d2 := DayFromTimestamp(f.LastPointTimestamp).Date
	if d1.Equal(d2) {
		return 1
	}
	return int(d2.Sub(d1).Hours()/24) + 1
}

// InaccuracyResolution records why the inaccuracy resolver's catch-all did
// or did not treat an anomalous change as a new flight. Grounded on
// original_source/webapp/app/inaccuracy.py's FlightInaccuracySolution.
type InaccuracyResolution struct {
	ConstitutesNewFlight bool
	ReasonCode           string
}

const (
	ReasonInaccuracySolvencyDisabled = "inaccuracy-solvency-disabled"
	ReasonCatchAll                   = "catch-all"
	ReasonNotNewFlight               = "not-new-flight"
)

// Airport is a fixed ground facility identified by a content hash of its
// name and coordinates. Its polygon is a point buffered by a configured
// radius, projected into the working CRS.
type Airport struct {
	Hash      string
	Name      string
	Latitude  float64
	Longitude float64

	Polygon      Polygon
	UTMEPSGZones []int
}

// Suburb is the smallest administrative polygon a FlightPoint can be
// geolocated to. Identified by a content hash of name, postcode and state
// (tools/suburbload's suburbHash); the coordinate string is not part of
// the hash.
type Suburb struct {
	Hash     string
	Name     string
	Postcode string
	State    StateCode

	MultiPolygon MultiPolygon
	BoundingBox  BoundingBox
	UTMEPSGZones []int

	// Neighbours holds the hashes of suburbs whose polygons touch or
	// intersect this one. Materialized symmetrically at load time rather
	// than traversed as a cyclic graph (spec.md §9 design note).
	Neighbours []string
}

// BoundingBox is an axis-aligned projected-CRS rectangle.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Intersects reports whether two bounding boxes overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX && b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

package domain

import (
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Position is a projected point, nullable as a whole (Valid=false means the
// flight point carries no position). CRS is the EPSG code the coordinates
// are projected in; invariant: if Valid then CRS != 0.
type Position struct {
	Valid bool
	X, Y  float64
	CRS   int
}

// GeodeticPosition is the WGS84 (EPSG:4326) representation, kept alongside
// the projected Position for point-in-polygon tests that prefer lon/lat and
// for wire round-tripping.
type GeodeticPosition struct {
	Valid          bool
	Longitude, Latitude float64
}

// FlightPoint is one timestamped position/altitude sample.
//
// Invariant: if Position.Valid then Position.CRS != 0 and UTMEPSGZone != 0.
// Invariant: flight_point_hash is a pure function of
// (icao, floor(timestamp seconds), lon string, lat string, altitude string or "na").
type FlightPoint struct {
	Hash         string
	AircraftICAO string
	Day          time.Time
	FlightHash   string // empty until assimilated into a Flight

	Timestamp time.Time // seconds resolution, 3 decimal places retained in sub-second field
	Geodetic  GeodeticPosition
	Position  Position
	UTMEPSGZone int

	Altitude     Altitude
	GroundSpeedKnots *float64
	TrackDegrees     *float64
	VerticalRateFPM  *float64
	DataSource       string

	IsOnGround  bool
	IsAscending bool
	IsDescending bool

	SuburbHash string // empty until geolocated
}

// FlightPointHash computes the BLAKE2b-128 content hash of a flight point's
// identity quintuple. ts is truncated to whole seconds; lon/lat/altitude are
// formatted with the same textual precision the original uses so that two
// submissions of the "same" point always collide to the same hash.
func FlightPointHash(icao string, ts time.Time, lon, lat *float64, altitude Altitude) string {
	lonStr := "na"
	if lon != nil {
		lonStr = fmt.Sprintf("%.6f", *lon)
	}
	latStr := "na"
	if lat != nil {
		latStr = fmt.Sprintf("%.6f", *lat)
	}
	altStr := "na"
	switch v := altitude.(type) {
	case AltitudeFeet:
		altStr = fmt.Sprintf("%d", int(v))
	case AltitudeGround:
		altStr = "0"
	}
	payload := fmt.Sprintf("%s|%d|%s|%s|%s", icao, ts.Unix(), lonStr, latStr, altStr)
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// NewFlightPoint constructs a FlightPoint and derives Hash and Day, the way
// the source's schema post_load hooks do.
func NewFlightPoint(icao string, ts time.Time, geo GeodeticPosition, altitude Altitude) *FlightPoint {
	var lon, lat *float64
	if geo.Valid {
		lon, lat = &geo.Longitude, &geo.Latitude
	}
	return &FlightPoint{
		Hash:         FlightPointHash(icao, ts, lon, lat, altitude),
		AircraftICAO: icao,
		Day:          DayFromTimestamp(ts).Date,
		Timestamp:    ts,
		Geodetic:     geo,
		Altitude:     altitude,
	}
}

// IsGroundedForTimeline reports whether this point should be treated as
// "grounded" for timeline decisions: either the explicit on-ground flag, or
// an AltitudeGround marker.
func (p *FlightPoint) IsGroundedForTimeline() bool {
	if p.IsOnGround {
		return true
	}
	_, isGround := p.Altitude.(AltitudeGround)
	return isGround
}

// AltitudeFeetOrZero returns the numeric altitude for threshold comparisons,
// treating ground and unknown both as 0 (mirrors the original's
// `flight_point.altitude or 0` idiom).
func (p *FlightPoint) AltitudeFeetOrZero() int {
	if v, ok := p.Altitude.(AltitudeFeet); ok {
		return int(v)
	}
	return 0
}

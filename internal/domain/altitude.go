package domain

import "fmt"

// Altitude is a tagged variant replacing the source's sentinel-string
// convention (0 meaning "ground"). A FlightPoint with AltitudeUnknown{}
// carries no altitude sample at all; AltitudeGround{} is the explicit
// "on the ground" marker; AltitudeFeet wraps a barometric reading.
type Altitude interface {
	isAltitude()
	fmt.Stringer
}

// AltitudeUnknown marks a FlightPoint with no altitude sample.
type AltitudeUnknown struct{}

func (AltitudeUnknown) isAltitude()     {}
func (AltitudeUnknown) String() string  { return "unknown" }

// AltitudeGround is the explicit "aircraft reported 0ft" ground marker.
type AltitudeGround struct{}

func (AltitudeGround) isAltitude()    {}
func (AltitudeGround) String() string { return "ground" }

// AltitudeFeet is a barometric altitude reading in feet.
type AltitudeFeet int

func (AltitudeFeet) isAltitude() {}
func (a AltitudeFeet) String() string {
	return fmt.Sprintf("%dft", int(a))
}

// AltitudeFromRaw converts the wire representation (nil = unknown, 0 =
// ground, else feet) into the tagged variant.
func AltitudeFromRaw(raw *int) Altitude {
	if raw == nil {
		return AltitudeUnknown{}
	}
	if *raw == 0 {
		return AltitudeGround{}
	}
	return AltitudeFeet(*raw)
}

// AltitudeFeetValue returns the numeric altitude and whether one is defined.
// Ground reports (0, true) and unknown reports (0, false), so a zero value
// with ok=true means ground.
func AltitudeFeetValue(a Altitude) (value int, ok bool) {
	switch v := a.(type) {
	case AltitudeFeet:
		return int(v), true
	case AltitudeGround:
		return 0, true
	default:
		return 0, false
	}
}

// StateCode is a tagged variant for the Australian state a Suburb belongs
// to, replacing the source's "Unknown" sentinel string.
type StateCode interface {
	isStateCode()
	fmt.Stringer
}

// StateKnown wraps a resolved state abbreviation (e.g. "NSW").
type StateKnown string

func (StateKnown) isStateCode()    {}
func (s StateKnown) String() string { return string(s) }

// StateUnknown marks a Suburb/point whose state could not be determined.
type StateUnknown struct{}

func (StateUnknown) isStateCode()    {}
func (StateUnknown) String() string { return "unknown" }

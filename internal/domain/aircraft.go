// Package domain holds the entity types shared across every component of
// the master server: Aircraft, FlightPoint, Flight, Day, Suburb, Airport,
// Worker and the tagged-value types that stand in for the source system's
// sentinel strings.
package domain

import "time"

// FuelFigures describes an aircraft's fuel consumption profile. A nil
// *FuelFigures on Aircraft means fuel/CO2 statistics cannot be computed
// until fuel data arrives.
type FuelFigures struct {
	FuelType          string
	GallonsPerHour    float64
	CapacityGallons   float64
	RangeNM           float64
	EnduranceHours    float64
	PassengerLoad     int
	CO2PerGram        float64
}

// Aircraft is a tracked airframe, identified by its 6-hex ICAO address.
// Attributes are immutable except for fuel refresh (FuelFigures is
// replaced wholesale, never mutated field-by-field).
type Aircraft struct {
	ICAO         string
	Type         string
	FlightName   string
	Registration string
	Description  string
	Year         int
	OwnerOperator string
	TopSpeed     *float64
	Image        string
	AirportCode  string

	Fuel *FuelFigures
}

// HasValidFuelData reports whether fuel/CO2 statistics can be computed.
func (a *Aircraft) HasValidFuelData() bool {
	return a.Fuel != nil && a.Fuel.GallonsPerHour > 0
}

// NewAircraft constructs an Aircraft from the given fields. It does not
// derive AirportCode from the ICAO address: AirportCode is left blank, and
// callers populate it explicitly from bootstrap data.
func NewAircraft(icao, aircraftType, flightName, registration, description string, year int, owner string) *Aircraft {
	return &Aircraft{
		ICAO:          icao,
		Type:          aircraftType,
		FlightName:    flightName,
		Registration:  registration,
		Description:   description,
		Year:          year,
		OwnerOperator: owner,
	}
}

// Day is a UTC calendar date with at least one FlightPoint. It exists only
// as a key; Date is always midnight UTC for the date in question.
type Day struct {
	Date time.Time
}

// DayFromTimestamp derives the owning Day of a timestamp, truncated to the
// UTC calendar date.
func DayFromTimestamp(ts time.Time) Day {
	u := ts.UTC()
	return Day{Date: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// AircraftPresentDay is the (aircraft, day) junction row carrying three
// independent verification flags. Created lazily the first time any data
// arrives for the pair.
type AircraftPresentDay struct {
	AircraftICAO string
	Day          time.Time

	HistoryVerified     bool
	FlightsVerified     bool
	GeolocationVerified bool
}

// Key returns the (icao, date) pair used for mutation-unit locking.
func (a AircraftPresentDay) Key() AircraftDayKey {
	return AircraftDayKey{ICAO: a.AircraftICAO, Date: a.Day}
}

// AircraftDayKey identifies one mutation unit, ordered by Less. The
// Cross-Day Stitcher (internal/stitch) does not sort by it or take locks,
// and no code in the module acquires AircraftPresentDay locks.
type AircraftDayKey struct {
	ICAO string
	Date time.Time
}

// Less implements the ascending (icao, date) ordering required before
// acquiring multiple AircraftPresentDay locks in one transaction.
func (k AircraftDayKey) Less(other AircraftDayKey) bool {
	if k.ICAO != other.ICAO {
		return k.ICAO < other.ICAO
	}
	return k.Date.Before(other.Date)
}

package domain

import (
	"fmt"
	"time"
)

// The error taxonomy below carries tagged values rather than sentinel
// strings, per spec.md §7. Each kind corresponds 1:1 to an exception class
// in original_source/webapp/app/error.py; field sets are preserved.

// SchemaValidationFail reports a malformed ingestion payload.
type SchemaValidationFail struct {
	SchemaTypeName   string
	OriginalSourceJSON []byte
}

func (e *SchemaValidationFail) Error() string {
	return fmt.Sprintf("schema validation failed for %s", e.SchemaTypeName)
}

// FlightPointPositionIntegrity reports a flight point insufficiently
// detailed for the operation that was attempted on it (e.g. airport
// determination on a point with no position).
type FlightPointPositionIntegrity struct {
	AircraftICAO string
	Operation    string
	Reason       string
}

func (e *FlightPointPositionIntegrity) Error() string {
	return fmt.Sprintf("flight point position integrity: %s (%s): %s", e.AircraftICAO, e.Operation, e.Reason)
}

// InvalidCRS reports a geometry operation attempted without a common CRS.
type InvalidCRS struct {
	Reason string
}

func (e *InvalidCRS) Error() string { return fmt.Sprintf("invalid CRS: %s", e.Reason) }

// NoFlightPath reports that a Flight has no positional points from which to
// derive a distance/path statistic.
type NoFlightPath struct{}

func (e *NoFlightPath) Error() string { return "no flight path" }

// FlightDataRevisionRequired queues an (aircraft, day) pair for a later
// background revision pass, per spec.md §4.4.
type FlightDataRevisionRequired struct {
	AircraftICAO    string
	Day             time.Time
	RequiresHistory bool
	RequiresFlights bool
}

func (e *FlightDataRevisionRequired) Error() string {
	return fmt.Sprintf("flight data revision required for %s on %s", e.AircraftICAO, e.Day.Format("2006-01-02"))
}

// NoFuelFiguresData reports a missing fuel-figures JSON file at bootstrap.
type NoFuelFiguresData struct{}

func (e *NoFuelFiguresData) Error() string { return "no fuel figures data loaded" }

// NoAirportsLoaded reports that airport lookup was attempted before any
// Airport rows exist.
type NoAirportsLoaded struct{}

func (e *NoAirportsLoaded) Error() string { return "no airports loaded" }

// MultiplePotentialFlights is fatal to a single assimilation: more than one
// distinct dominant Flight was referenced by the point set being merged.
type MultiplePotentialFlights struct {
	AircraftICAO string
	FlightHashes []string
}

func (e *MultiplePotentialFlights) Error() string {
	return fmt.Sprintf("multiple potential flights for %s: %v", e.AircraftICAO, e.FlightHashes)
}

// FlightsVerifiedError aborts an operation that would have re-verified an
// already-verified day's flights.
type FlightsVerifiedError struct {
	AircraftICAO string
	Day          time.Time
}

func (e *FlightsVerifiedError) Error() string {
	return fmt.Sprintf("flights already verified for %s on %s", e.AircraftICAO, e.Day.Format("2006-01-02"))
}

// HistoryVerifiedError aborts a day revision whose precondition does not
// hold: the day's history is not verified, or its flights are already
// verified.
type HistoryVerifiedError struct {
	AircraftICAO string
}

func (e *HistoryVerifiedError) Error() string {
	return fmt.Sprintf("day for %s needs verified history and unverified flights", e.AircraftICAO)
}

// NoAssignableWorkLeft is a normal control signal (spec.md §7): the worker
// pool has exhausted candidate (aircraft, day) pairs to assign.
type NoAssignableWorkLeft struct {
	RadarWorkerName string
}

func (e *NoAssignableWorkLeft) Error() string {
	return fmt.Sprintf("no assignable work left for %s", e.RadarWorkerName)
}

// RadarWorkerRequired marks an authentication/authorization failure on the
// worker API. Opaque 404 for non-loopback/non-agent requests, 403 for
// loopback requests that fail authentication — see internal/api.
type RadarWorkerRequired struct {
	Reason string
}

func (e *RadarWorkerRequired) Error() string { return fmt.Sprintf("radar worker required: %s", e.Reason) }

// NoFlightsAssimilatedError reports a total lack of success in assimilating
// a DailyFlightsView: every partial failed.
type NoFlightsAssimilatedError struct {
	ErrorCode string
}

func (e *NoFlightsAssimilatedError) Error() string {
	return fmt.Sprintf("no flights assimilated: %s", e.ErrorCode)
}

// NoPartialFlightsError is per-partial recoverable: this single partial
// could not be assimilated, but the caller should continue with the rest.
type NoPartialFlightsError struct {
	Reason string
}

func (e *NoPartialFlightsError) Error() string { return fmt.Sprintf("no partial flights: %s", e.Reason) }

// NoPartialFlightFoundForSubmission reports that, after committing newly
// submitted points, no predecessor partial could be located on the day.
type NoPartialFlightFoundForSubmission struct {
	AircraftICAO string
	Day          time.Time
}

func (e *NoPartialFlightFoundForSubmission) Error() string {
	return fmt.Sprintf("no partial flight found for submission: %s on %s", e.AircraftICAO, e.Day.Format("2006-01-02"))
}

package assimilate

import (
	"aireyes/internal/domain"
	"aireyes/internal/logging"
)

// CorrectFlightPoint checks an incoming point's ground speed against the
// aircraft's configured top speed and clears (sets to nil) a value that
// exceeds it, rather than rejecting the point outright. Supplemented from
// original_source/webapp/app/inaccuracy.py's
// attempt_flight_point_correction (SPEC_FULL.md §7) — the distilled spec
// does not mention this, but the original runs it on every incoming point
// before persistence.
func CorrectFlightPoint(aircraft *domain.Aircraft, fp *domain.FlightPoint, log *logging.Logger) {
	if aircraft.TopSpeed == nil || fp.GroundSpeedKnots == nil {
		return
	}
	if *fp.GroundSpeedKnots > *aircraft.TopSpeed {
		if log != nil {
			log.Warnf("flight point %s ground speed %.1f exceeds %s top speed %.1f, clearing", fp.Hash, *fp.GroundSpeedKnots, aircraft.ICAO, *aircraft.TopSpeed)
		}
		fp.GroundSpeedKnots = nil
	}
}

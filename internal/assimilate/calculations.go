// Package assimilate implements C6, the Flight Assimilator: merging a
// cluster of PartialFlights into one Flight entity with computed
// statistics. Formulas are grounded verbatim, units included, on
// original_source/webapp/app/calculations.py.
package assimilate

import (
	"math"
	"time"

	"aireyes/internal/domain"
	"aireyes/internal/geo"

	"github.com/paulmach/orb"
)

const (
	kmPerMeter        = 0.001
	kmhPerKnot        = 1.852
	tonnesPerGallon   = 0.031491395793499
	prohibitedStartHr = 20
	prohibitedEndHr   = 7
)

// TotalMinutes is total_flight_time_from: floor((last-first)/60 + 0.5), i.e.
// round-half-up minutes between the first and last point.
func TotalMinutes(first, last time.Time) int {
	seconds := last.Sub(first).Seconds()
	return int(math.Round(seconds / 60))
}

// DistanceMeters is total_distance_travelled_from: the planar length of the
// LineString formed by every point with a valid position, in the working
// projected CRS (already meters). Returns ok=false if fewer than minPoints
// positional points exist.
func DistanceMeters(points []*domain.FlightPoint, minPoints int) (float64, bool) {
	var line orb.LineString
	for _, p := range points {
		if p.Position.Valid {
			line = append(line, orb.Point{p.Position.X, p.Position.Y})
		}
	}
	if len(line) < minPoints {
		return 0, false
	}
	return geo.LineStringLength(line), true
}

// ProhibitedMinutes sums the minutes of flight whose local time of day
// (in loc) falls in [20:00, 07:00). Computed by filtering consecutive point
// pairs whose midpoint falls in the prohibited window, mirroring the
// original's sub-sequence filter approach.
func ProhibitedMinutes(points []*domain.FlightPoint, loc *time.Location) int {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < len(points)-1; i++ {
		t1, t2 := points[i].Timestamp, points[i+1].Timestamp
		mid := t1.Add(t2.Sub(t1) / 2).In(loc)
		if inProhibitedWindow(mid) {
			total += t2.Sub(t1).Minutes()
		}
	}
	return int(math.Round(total))
}

func inProhibitedWindow(t time.Time) bool {
	h := t.Hour()
	return h >= prohibitedStartHr || h < prohibitedEndHr
}

// AverageSpeedKnots is average_speed_from: the arithmetic mean of non-null
// ground-speed values belonging to airborne points.
func AverageSpeedKnots(points []*domain.FlightPoint) (float64, bool) {
	var sum float64
	var n int
	for _, p := range points {
		if p.IsGroundedForTimeline() || p.GroundSpeedKnots == nil {
			continue
		}
		sum += *p.GroundSpeedKnots
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// AverageAltitudeFt is average_altitude_from: the arithmetic mean of
// non-null altitude values, excluding points where the aircraft is on the
// ground with no positive altitude.
func AverageAltitudeFt(points []*domain.FlightPoint) (float64, bool) {
	var sum float64
	var n int
	for _, p := range points {
		feet, ok := p.Altitude.(domain.AltitudeFeet)
		if !ok {
			continue
		}
		if p.IsGroundedForTimeline() && feet <= 0 {
			continue
		}
		sum += float64(feet)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// EstimateTotalFuelUsedGallons is estimate_total_fuel_used_by: hours times
// the aircraft's gallons-per-hour consumption rate. Returns ok=false (the
// original's MissingFuelFiguresError) when the aircraft lacks fuel data.
func EstimateTotalFuelUsedGallons(aircraft *domain.Aircraft, totalMinutes int) (float64, bool) {
	if !aircraft.HasValidFuelData() {
		return 0, false
	}
	hours := float64(totalMinutes) / 60
	return hours * aircraft.Fuel.GallonsPerHour, true
}

// CO2EmissionsKg computes total CO2 emissions in kilograms for
// the flight, per the exact chain in spec.md §4.5 /
// calculations.py's calculate_co2_emissions_per_hour:
//
//	fuel_per_pax_per_km   = (fuel_tonnes * 1e6) / (km * pax)
//	co2_per_pax_per_km    = fuel_per_pax_per_km * co2_per_gram
//	co2_per_pax_per_hour  = round((co2_per_pax_per_km * km_per_hour) / 1000)
//	total                 = hours * co2_per_pax_per_hour * pax
func CO2EmissionsKg(distanceMeters, avgSpeedKnots, fuelGallons float64, passengers int, co2PerGram float64, totalMinutes int) (float64, bool) {
	if passengers <= 0 || distanceMeters <= 0 || avgSpeedKnots <= 0 {
		return 0, false
	}
	km := distanceMeters * kmPerMeter
	kmh := avgSpeedKnots * kmhPerKnot
	fuelTonnes := fuelGallons * tonnesPerGallon
	hours := float64(totalMinutes) / 60

	fuelPerPaxPerKm := (fuelTonnes * 1e6) / (km * float64(passengers))
	co2PerPaxPerKm := fuelPerPaxPerKm * co2PerGram
	co2PerPaxPerHour := math.Round((co2PerPaxPerKm * kmh) / 1000)
	total := hours * co2PerPaxPerHour * float64(passengers)
	return total, true
}

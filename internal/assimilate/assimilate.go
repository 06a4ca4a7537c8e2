package assimilate

import (
	"sort"
	"time"

	"aireyes/internal/config"
	"aireyes/internal/domain"
	"aireyes/internal/timeline"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Assimilator merges clusters of PartialFlights into Flight entities.
type Assimilator struct {
	Airports *AirportIndex
	Timezone *time.Location
	Cfg      config.Thresholds
}

// Assimilate implements spec.md §4.5's procedure: flatten points, determine
// dominance, compute statistics, determine airports, copy to the Flight.
// Returns the resulting Flight and whether it was newly allocated.
func (a *Assimilator) Assimilate(aircraft *domain.Aircraft, partials []*timeline.PartialFlight) (*domain.Flight, bool, error) {
	if len(partials) == 0 {
		return nil, false, &domain.NoPartialFlightsError{Reason: "no partials given to assimilate"}
	}

	points := flattenSorted(partials)
	if len(points) == 0 {
		return nil, false, &domain.NoPartialFlightsError{Reason: "no flight points in partial set"}
	}

	dominant, err := determineDominantFlight(aircraft.ICAO, points)
	if err != nil {
		return nil, false, err
	}

	var flight *domain.Flight
	created := false
	if dominant != "" {
		flight = &domain.Flight{Hash: dominant, AircraftICAO: aircraft.ICAO}
	} else {
		flight = &domain.Flight{Hash: uuid.NewString(), AircraftICAO: aircraft.ICAO}
		created = true
	}
	for _, p := range points {
		if p.FlightHash == "" {
			p.FlightHash = flight.Hash
		}
	}

	first := points[0]
	last := points[len(points)-1]
	flight.FirstPointTimestamp = first.Timestamp
	flight.LastPointTimestamp = last.Timestamp

	totalMinutes := TotalMinutes(first.Timestamp, last.Timestamp)
	flight.TotalMinutes = &totalMinutes

	prohibited := ProhibitedMinutes(points, a.Timezone)
	flight.ProhibitedMinutes = &prohibited

	if dist, ok := DistanceMeters(points, a.Cfg.MinPositionalPathPoints); ok {
		flight.DistanceMeters = &dist
	}
	if speed, ok := AverageSpeedKnots(points); ok {
		flight.AverageSpeedKnots = &speed
	}
	if alt, ok := AverageAltitudeFt(points); ok {
		flight.AverageAltitudeFt = &alt
	}
	if fuel, ok := EstimateTotalFuelUsedGallons(aircraft, totalMinutes); ok {
		flight.FuelGallons = &fuel
		if flight.DistanceMeters != nil && flight.AverageSpeedKnots != nil && aircraft.Fuel != nil && aircraft.Fuel.PassengerLoad > 0 {
			if co2, ok := CO2EmissionsKg(*flight.DistanceMeters, *flight.AverageSpeedKnots, fuel, aircraft.Fuel.PassengerLoad, aircraft.Fuel.CO2PerGram, totalMinutes); ok {
				flight.TotalCO2Kg = &co2
			}
		}
	}

	startsWithTakeoff := partials[0].StartsWithTakeoff(a.Cfg)
	endsWithLanding := partials[len(partials)-1].EndsWithLanding(a.Cfg)
	flight.HasDepartureDetails = startsWithTakeoff
	flight.HasArrivalDetails = endsWithLanding

	if startsWithTakeoff {
		if airportHash, ok := a.resolveAirport(aircraft.ICAO, first); ok {
			flight.TakeoffAirportHash = airportHash
		}
	}
	everAirborne := false
	for _, p := range points {
		if !p.IsGroundedForTimeline() {
			everAirborne = true
			break
		}
	}
	if endsWithLanding && everAirborne {
		if airportHash, ok := a.resolveAirport(aircraft.ICAO, last); ok {
			flight.LandingAirportHash = airportHash
		}
	}

	flight.IsOnGround = partials[len(partials)-1].End.Grounded()
	flight.TaxiOnly = !everAirborne

	for _, p := range partials {
		if p.InaccuracyResolution != nil {
			flight.InaccuracyResolution = p.InaccuracyResolution
		}
	}

	return flight, created, nil
}

// resolveAirport is the "airport determination" sub-procedure of spec.md
// §4.5 step 5: it requires a valid position on the endpoint point, and
// downgrades (ok=false, not an error) when the point lacks one — matching
// the original's non-fatal FlightPointPositionIntegrityError handling.
func (a *Assimilator) resolveAirport(icao string, p *domain.FlightPoint) (string, bool) {
	if !p.Position.Valid || !p.Geodetic.Valid {
		return "", false
	}
	pt := orb.Point{p.Position.X, p.Position.Y}
	airport, ok := a.Airports.FindAirportAt(p.Geodetic.Longitude, p.Geodetic.Latitude, pt)
	if !ok {
		return "", false
	}
	return airport.Hash, true
}

func flattenSorted(partials []*timeline.PartialFlight) []*domain.FlightPoint {
	var all []*domain.FlightPoint
	for _, p := range partials {
		all = append(all, p.Points...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all
}

// determineDominantFlight implements spec.md §4.5 step 2: if any point
// already references a Flight, all such references must be the same
// Flight; more than one distinct reference is fatal to this assimilation.
func determineDominantFlight(icao string, points []*domain.FlightPoint) (string, error) {
	seen := map[string]bool{}
	var order []string
	for _, p := range points {
		if p.FlightHash == "" {
			continue
		}
		if !seen[p.FlightHash] {
			seen[p.FlightHash] = true
			order = append(order, p.FlightHash)
		}
	}
	if len(order) > 1 {
		return "", &domain.MultiplePotentialFlights{AircraftICAO: icao, FlightHashes: order}
	}
	if len(order) == 1 {
		return order[0], nil
	}
	return "", nil
}

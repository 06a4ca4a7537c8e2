package assimilate

import (
	"testing"
	"time"

	"aireyes/internal/config"
	"aireyes/internal/domain"
	"aireyes/internal/timeline"

	"github.com/paulmach/orb"
)

func airportPoly(cx, cy, half float64) domain.Polygon {
	ring := orb.Ring{
		{cx - half, cy - half}, {cx + half, cy - half},
		{cx + half, cy + half}, {cx - half, cy + half},
		{cx - half, cy - half},
	}
	return domain.Polygon{ring}
}

func newAssimilator() *Assimilator {
	airport := &domain.Airport{
		Hash: "syd", Name: "Sydney",
		Polygon:      airportPoly(0, 0, 1000),
		UTMEPSGZones: []int{32756},
	}
	loc, _ := time.LoadLocation("Australia/Sydney")
	return &Assimilator{
		Airports: BuildAirportIndex([]*domain.Airport{airport}),
		Timezone: loc,
		Cfg:      config.DefaultThresholds(),
	}
}

func partialPoint(t time.Time, x, y float64, lon, lat float64, grounded bool, alt domain.Altitude) *domain.FlightPoint {
	return &domain.FlightPoint{
		Hash:      t.String(),
		Timestamp: t,
		Position:  domain.Position{Valid: true, X: x, Y: y, CRS: 3112},
		Geodetic:  domain.GeodeticPosition{Valid: true, Longitude: lon, Latitude: lat},
		IsOnGround: grounded,
		Altitude:   alt,
	}
}

func TestAssimilateCreatesNewFlightWithAirports(t *testing.T) {
	a := newAssimilator()
	aircraft := &domain.Aircraft{ICAO: "7c68b7"}
	t0 := time.Now()

	p1 := partialPoint(t0, 0, 0, 151, -33, true, domain.AltitudeGround{})
	p2 := partialPoint(t0.Add(time.Minute), 500, 0, 151.01, -33, false, domain.AltitudeFeet(5000))
	p3 := partialPoint(t0.Add(2*time.Minute), 0, 0, 151, -33, true, domain.AltitudeGround{})

	partial := &timeline.PartialFlight{
		Points: []*domain.FlightPoint{p1, p2, p3},
		Start:  timeline.StartDescriptor{Point: p1},
		End:    timeline.EndDescriptor{Point: p3},
	}

	flight, created, err := a.Assimilate(aircraft, []*timeline.PartialFlight{partial})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected a newly created flight")
	}
	if flight.TakeoffAirportHash != "syd" {
		t.Fatalf("expected takeoff airport syd, got %q", flight.TakeoffAirportHash)
	}
	if flight.LandingAirportHash != "syd" {
		t.Fatalf("expected landing airport syd, got %q", flight.LandingAirportHash)
	}
	if flight.TaxiOnly {
		t.Fatal("expected TaxiOnly false, point 2 was airborne")
	}
}

func TestAssimilateMultiplePotentialFlightsIsFatal(t *testing.T) {
	a := newAssimilator()
	aircraft := &domain.Aircraft{ICAO: "7c68b7"}
	t0 := time.Now()

	p1 := partialPoint(t0, 0, 0, 151, -33, true, domain.AltitudeGround{})
	p1.FlightHash = "flight-a"
	p2 := partialPoint(t0.Add(time.Minute), 0, 0, 151, -33, true, domain.AltitudeGround{})
	p2.FlightHash = "flight-b"

	partial := &timeline.PartialFlight{
		Points: []*domain.FlightPoint{p1, p2},
		Start:  timeline.StartDescriptor{Point: p1},
		End:    timeline.EndDescriptor{Point: p2},
	}

	_, _, err := a.Assimilate(aircraft, []*timeline.PartialFlight{partial})
	if _, ok := err.(*domain.MultiplePotentialFlights); !ok {
		t.Fatalf("expected MultiplePotentialFlights, got %v", err)
	}
}

func TestAssimilateTaxiOnlyFlagged(t *testing.T) {
	a := newAssimilator()
	aircraft := &domain.Aircraft{ICAO: "7c68b7"}
	t0 := time.Now()

	p1 := partialPoint(t0, 0, 0, 151, -33, true, domain.AltitudeGround{})
	p2 := partialPoint(t0.Add(time.Minute), 1, 0, 151, -33, true, domain.AltitudeGround{})

	partial := &timeline.PartialFlight{
		Points: []*domain.FlightPoint{p1, p2},
		Start:  timeline.StartDescriptor{Point: p1},
		End:    timeline.EndDescriptor{Point: p2},
	}

	flight, _, err := a.Assimilate(aircraft, []*timeline.PartialFlight{partial})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !flight.TaxiOnly {
		t.Fatal("expected TaxiOnly true when no point was ever airborne")
	}
}

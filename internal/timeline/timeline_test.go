package timeline

import (
	"testing"
	"time"

	"aireyes/internal/config"
	"aireyes/internal/domain"
)

func pt(icao string, t time.Time, grounded bool, altFt int) *domain.FlightPoint {
	alt := domain.Altitude(domain.AltitudeFeet(altFt))
	if grounded {
		alt = domain.AltitudeGround{}
	}
	return &domain.FlightPoint{
		Hash: icao + t.Format(time.RFC3339), AircraftICAO: icao, Timestamp: t,
		Altitude: alt, IsOnGround: grounded,
	}
}

func TestConstitutesNewFlightBothGrounded(t *testing.T) {
	th := config.DefaultThresholds()
	t0 := time.Now()
	p1 := pt("a", t0, true, 0)
	p2 := pt("a", t0.Add(th.TDNewGrounded+time.Minute), true, 0)
	d := NewChangeDescriptor(p1, p2).ConstitutesNewFlight(th, true)
	if !d.NewFlight {
		t.Fatal("expected new flight when both grounded and gap exceeds TDNewGrounded")
	}
}

func TestConstitutesNewFlightMidAirStart(t *testing.T) {
	th := config.DefaultThresholds()
	t0 := time.Now()
	p1 := pt("a", t0, true, 0)
	p2 := pt("a", t0.Add(th.TDNewMidAirStart+time.Minute), false, th.MaxAltMidAirDisappear-100)
	d := NewChangeDescriptor(p1, p2).ConstitutesNewFlight(th, true)
	if !d.NewFlight {
		t.Fatal("expected new flight: grounded->airborne, low altitude, large gap")
	}
}

func TestConstitutesNewFlightMidAirStartHighAltitudeNotNew(t *testing.T) {
	th := config.DefaultThresholds()
	t0 := time.Now()
	p1 := pt("a", t0, true, 0)
	p2 := pt("a", t0.Add(th.TDNewMidAirStart+time.Minute), false, th.MaxAltMidAirDisappear+5000)
	d := NewChangeDescriptor(p1, p2).ConstitutesNewFlight(th, true)
	if d.NewFlight {
		t.Fatal("expected not-new: altitude too high to be a disappearance")
	}
}

func TestConstitutesNewFlightInaccuracyCatchAll(t *testing.T) {
	th := config.DefaultThresholds()
	t0 := time.Now()
	p1 := pt("a", t0, false, 30000)
	p2 := pt("a", t0.Add(th.TDNewMidAirBoth+time.Minute), false, 30000)
	d := NewChangeDescriptor(p1, p2).ConstitutesNewFlight(th, true)
	if !d.NewFlight || d.Resolution == nil || d.Resolution.ReasonCode != domain.ReasonCatchAll {
		t.Fatalf("expected catch-all resolution, got %+v", d)
	}
}

func TestConstitutesNewFlightInaccuracyDisabled(t *testing.T) {
	th := config.DefaultThresholds()
	t0 := time.Now()
	p1 := pt("a", t0, false, 30000)
	p2 := pt("a", t0.Add(th.TDNewMidAirBoth+time.Minute), false, 30000)
	d := NewChangeDescriptor(p1, p2).ConstitutesNewFlight(th, false)
	if d.NewFlight || d.Resolution == nil || d.Resolution.ReasonCode != domain.ReasonInaccuracySolvencyDisabled {
		t.Fatalf("expected solvency-disabled resolution, got %+v", d)
	}
}

func TestConstitutesNewFlightBothAirborneSmallGapNotNew(t *testing.T) {
	th := config.DefaultThresholds()
	t0 := time.Now()
	p1 := pt("a", t0, false, 30000)
	p2 := pt("a", t0.Add(time.Second), false, 30000)
	d := NewChangeDescriptor(p1, p2).ConstitutesNewFlight(th, true)
	if d.NewFlight {
		t.Fatal("expected continuation for a tiny airborne gap")
	}
}

// TestTaxiOnlyPartialCanBeComplete documents the open-question decision
// recorded in DESIGN.md: a partial whose start and end are both grounded
// and which never goes airborne legitimately satisfies IsComplete, and
// should be flagged TaxiOnly downstream rather than rejected.
func TestTaxiOnlyPartialCanBeComplete(t *testing.T) {
	th := config.DefaultThresholds()
	t0 := time.Now()
	points := []*domain.FlightPoint{
		pt("a", t0, true, 0),
		pt("a", t0.Add(time.Minute), true, 0),
		pt("a", t0.Add(2*time.Minute), true, 0),
	}
	view := Build("a", domain.DayFromTimestamp(t0).Date, points, th, true)
	if len(view.Partials) != 1 {
		t.Fatalf("expected a single partial, got %d", len(view.Partials))
	}
	p := view.Partials[0]
	if !p.IsComplete(th) {
		t.Fatal("expected a taxi-only partial to be considered complete")
	}
	if !p.TaxiOnly() {
		t.Fatal("expected TaxiOnly to be true when no point was ever airborne")
	}
}

func TestBuildPartitionsOnGroundedGap(t *testing.T) {
	th := config.DefaultThresholds()
	t0 := time.Now()
	points := []*domain.FlightPoint{
		pt("a", t0, true, 0),
		pt("a", t0.Add(time.Minute), false, 20000),
		pt("a", t0.Add(2*time.Minute), true, 0),
		pt("a", t0.Add(2*time.Minute+th.TDNewGrounded+time.Minute), true, 0),
		pt("a", t0.Add(2*time.Minute+th.TDNewGrounded+2*time.Minute), false, 15000),
	}
	view := Build("a", domain.DayFromTimestamp(t0).Date, points, th, true)
	if len(view.Partials) != 2 {
		t.Fatalf("expected 2 partials, got %d", len(view.Partials))
	}
}

func TestBuildDiscardsShortPartials(t *testing.T) {
	th := config.DefaultThresholds()
	th.MinFragmentsForPartial = 3
	t0 := time.Now()
	points := []*domain.FlightPoint{
		pt("a", t0, true, 0),
		pt("a", t0.Add(time.Minute), true, 0),
	}
	view := Build("a", domain.DayFromTimestamp(t0).Date, points, th, true)
	if len(view.Partials) != 0 || view.Discarded != 1 {
		t.Fatalf("expected the only partial to be discarded, got partials=%d discarded=%d", len(view.Partials), view.Discarded)
	}
}

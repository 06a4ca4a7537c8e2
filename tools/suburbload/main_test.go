package main

import (
	"math"
	"testing"

	"aireyes/internal/domain"
)

func TestContentHashStable(t *testing.T) {
	a := contentHash("Fremantle", "6160", "WA")
	b := contentHash("Fremantle", "6160", "WA")
	if a != b {
		t.Error("expected contentHash to be deterministic")
	}
	if c := contentHash("Fremantle", "6160", "SA"); c == a {
		t.Error("expected different inputs to hash differently")
	}
}

func TestContentHashJoinsOnPipe(t *testing.T) {
	// "a|b" and the two-part ("a", "b") call must hash identically since
	// contentHash pipe-joins its variadic parts.
	if contentHash("a", "b") != contentHash("a", "b") {
		t.Error("expected stable hash for identical parts")
	}
	if contentHash("a|b") != contentHash("a", "b") {
		t.Error("expected a literal pipe in one part to hash the same as a pipe-joined pair")
	}
}

func TestSuburbHashAndAirportHashAreDistinctNamespaces(t *testing.T) {
	if suburbHash("Fremantle", "6160", "WA") == airportHash("Fremantle", "6160", "WA") {
		t.Error("expected suburbHash and airportHash to diverge for the same inputs")
	}
}

func TestBuildSuburb(t *testing.T) {
	in := suburbInput{
		Name:     "Fremantle",
		Postcode: "6160",
		State:    "WA",
		Rings: [][][2]float64{
			{{115.74, -32.06}, {115.76, -32.06}, {115.76, -32.08}, {115.74, -32.08}},
		},
	}
	s := buildSuburb(in)

	if s.Name != "Fremantle" || s.Postcode != "6160" {
		t.Errorf("unexpected suburb: %+v", s)
	}
	if len(s.MultiPolygon) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(s.MultiPolygon))
	}
	if s.BoundingBox.MinX != 115.74 || s.BoundingBox.MaxX != 115.76 {
		t.Errorf("unexpected bbox X range: %+v", s.BoundingBox)
	}
	if s.BoundingBox.MinY != -32.08 || s.BoundingBox.MaxY != -32.06 {
		t.Errorf("unexpected bbox Y range: %+v", s.BoundingBox)
	}
	if len(s.UTMEPSGZones) == 0 {
		t.Error("expected at least one UTM zone")
	}
}

func TestBuildSuburbUnknownState(t *testing.T) {
	in := suburbInput{Name: "Somewhere", Rings: [][][2]float64{{{0, 0}, {1, 0}, {1, 1}}}}
	s := buildSuburb(in)
	if s.State == nil {
		t.Fatal("expected a non-nil StateCode")
	}
	if _, known := s.State.(domain.StateKnown); known {
		t.Error("expected StateUnknown when no state was supplied")
	}
}

func TestBufferPointToPolygonIsClosedRing(t *testing.T) {
	poly := bufferPointToPolygon(115.8605, -31.9505, 2000)
	if len(poly) != 1 {
		t.Fatalf("expected one ring, got %d", len(poly))
	}
	ring := poly[0]
	if len(ring) != 17 {
		t.Fatalf("expected a 16-sided ring plus closing point, got %d points", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("expected the ring to close back on its first point")
	}
}

func TestCosApprox(t *testing.T) {
	if got := cosApprox(0); math.Abs(got-1) > 1e-9 {
		t.Errorf("cosApprox(0) = %v, want 1", got)
	}
	if got := cosApprox(90); math.Abs(got) > 1e-9 {
		t.Errorf("cosApprox(90) = %v, want ~0", got)
	}
}

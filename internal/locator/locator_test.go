package locator

import (
	"testing"
	"time"

	"aireyes/internal/domain"
	"aireyes/internal/geo"

	"github.com/paulmach/orb"
)

func square(cx, cy, half float64) domain.Polygon {
	ring := orb.Ring{
		{cx - half, cy - half}, {cx + half, cy - half},
		{cx + half, cy + half}, {cx - half, cy + half},
		{cx - half, cy - half},
	}
	return domain.Polygon{ring}
}

func newTestIndex() *SuburbIndex {
	a := &domain.Suburb{
		Hash: "suburb-a", State: domain.StateKnown("NSW"),
		MultiPolygon: domain.MultiPolygon{square(0, 0, 5)},
		BoundingBox:  domain.BoundingBox{MinX: -5, MinY: -5, MaxX: 5, MaxY: 5},
		UTMEPSGZones: []int{32756},
	}
	b := &domain.Suburb{
		Hash: "suburb-b", State: domain.StateKnown("NSW"),
		MultiPolygon: domain.MultiPolygon{square(20, 0, 5)},
		BoundingBox:  domain.BoundingBox{MinX: 15, MinY: -5, MaxX: 25, MaxY: 5},
		UTMEPSGZones: []int{32756},
	}
	a.Neighbours = []string{}
	b.Neighbours = []string{}
	suburbs := []*domain.Suburb{a, b}
	return &SuburbIndex{
		ByHash: map[string]*domain.Suburb{"suburb-a": a, "suburb-b": b},
		ByZone: geo.BuildSuburbZoneIndex(suburbs),
	}
}

func point(x, y float64) *domain.FlightPoint {
	return &domain.FlightPoint{
		Hash:      "pt",
		Timestamp: time.Now(),
		Position:  domain.Position{Valid: true, X: x, Y: y, CRS: 3112},
		Geodetic:  domain.GeodeticPosition{Valid: true, Longitude: 151, Latitude: -33},
		UTMEPSGZone: 32756,
	}
}

func TestLocateLastSuburbFastPath(t *testing.T) {
	idx := newTestIndex()
	l := New(idx)
	p := point(0, 0)
	res := l.Locate([]*domain.FlightPoint{p}, idx.ByHash["suburb-a"])
	if !res.Points[0].Success || res.Points[0].Methodology != MethodologyLastSuburb {
		t.Fatalf("expected last-suburb hit, got %+v", res.Points[0])
	}
}

func TestLocateFallsThroughToGlobalZone(t *testing.T) {
	idx := newTestIndex()
	l := New(idx)
	p := point(20, 0)
	res := l.Locate([]*domain.FlightPoint{p}, idx.ByHash["suburb-a"])
	if !res.Points[0].Success || res.Points[0].SuburbHash != "suburb-b" {
		t.Fatalf("expected fallthrough to suburb-b, got %+v", res.Points[0])
	}
}

func TestLocateExhaustedOutsideAllSuburbs(t *testing.T) {
	idx := newTestIndex()
	l := New(idx)
	p := point(1000, 1000)
	res := l.Locate([]*domain.FlightPoint{p}, nil)
	if res.Points[0].Success || res.Points[0].Methodology != MethodologyExhausted {
		t.Fatalf("expected exhausted result, got %+v", res.Points[0])
	}
}

func TestLocateNoPositionMarkedFailed(t *testing.T) {
	idx := newTestIndex()
	l := New(idx)
	p := &domain.FlightPoint{Hash: "no-pos"}
	res := l.Locate([]*domain.FlightPoint{p}, nil)
	if res.Points[0].Success || res.Points[0].Methodology != MethodologyNoPosition {
		t.Fatalf("expected no-position result, got %+v", res.Points[0])
	}
}

func TestLocateDoesNotMutateOrdering(t *testing.T) {
	idx := newTestIndex()
	l := New(idx)
	p1, p2 := point(0, 0), point(20, 0)
	res := l.Locate([]*domain.FlightPoint{p1, p2}, idx.ByHash["suburb-a"])
	if res.Points[0].FlightPointHash != p1.Hash || res.Points[1].FlightPointHash != p2.Hash {
		t.Fatal("locator reordered points")
	}
}

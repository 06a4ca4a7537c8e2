package orchestrator

import (
	"context"
	"testing"
	"time"

	"aireyes/internal/domain"
	"aireyes/internal/logging"
	"aireyes/internal/timeline"
)

func pointAt(ts time.Time) *domain.FlightPoint {
	return &domain.FlightPoint{Timestamp: ts}
}

func partialSpanning(start, end time.Time) *timeline.PartialFlight {
	return &timeline.PartialFlight{
		Start: timeline.StartDescriptor{Point: pointAt(start)},
		End:   timeline.EndDescriptor{Point: pointAt(end)},
	}
}

func TestFindPredecessorPicksLatestPartialBeforeNewPoints(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	earlier := partialSpanning(base, base.Add(10*time.Minute))
	predecessor := partialSpanning(base.Add(20*time.Minute), base.Add(30*time.Minute))
	partials := []*timeline.PartialFlight{earlier, predecessor}

	firstNew := pointAt(base.Add(40 * time.Minute))
	lastNew := pointAt(base.Add(45 * time.Minute))

	got := findPredecessor(partials, firstNew, lastNew)
	if got != predecessor {
		t.Fatalf("expected predecessor partial, got %+v", got)
	}
}

func TestFindPredecessorSkipsPartialStartingAfterNewPoints(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	future := partialSpanning(base.Add(2*time.Hour), base.Add(3*time.Hour))
	partials := []*timeline.PartialFlight{future}

	firstNew := pointAt(base.Add(10 * time.Minute))
	lastNew := pointAt(base.Add(15 * time.Minute))

	if got := findPredecessor(partials, firstNew, lastNew); got != nil {
		t.Fatalf("expected no predecessor, got %+v", got)
	}
}

func TestFindPredecessorSkipsWhenSiblingStartsBeforeNewPointsEnd(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	candidate := partialSpanning(base, base.Add(10*time.Minute))
	// sibling starts inside [firstNew, lastNew], so it already covers the
	// gap candidate would otherwise be stitched across.
	sibling := partialSpanning(base.Add(13*time.Minute), base.Add(30*time.Minute))
	partials := []*timeline.PartialFlight{candidate, sibling}

	firstNew := pointAt(base.Add(12 * time.Minute))
	lastNew := pointAt(base.Add(14 * time.Minute))

	if got := findPredecessor(partials, firstNew, lastNew); got != nil {
		t.Fatalf("expected no predecessor when a sibling already covers the new points, got %+v", got)
	}
}

func TestFindPredecessorEmptyPartials(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	if got := findPredecessor(nil, pointAt(base), pointAt(base)); got != nil {
		t.Fatalf("expected nil for empty partial set, got %+v", got)
	}
}

func groundedPointAt(ts time.Time) *domain.FlightPoint {
	return &domain.FlightPoint{Timestamp: ts, IsOnGround: true}
}

// TestStitchPartialSkipsAlreadyCompletePartials exercises stitchPartial's
// only branch reachable without a live Postgres/ClickHouse connection: a
// partial that already starts with a takeoff and ends with a landing must
// be returned unchanged, without ever calling into C5 or enqueueRevision.
func TestStitchPartialSkipsAlreadyCompletePartials(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	partial := &timeline.PartialFlight{
		Points: []*domain.FlightPoint{groundedPointAt(base), groundedPointAt(base.Add(time.Minute))},
		Start:  timeline.StartDescriptor{Point: groundedPointAt(base)},
		End:    timeline.EndDescriptor{Point: groundedPointAt(base.Add(time.Minute))},
	}

	o := &Orchestrator{Log: logging.New("orchestrator-test")}
	chain := o.stitchPartial(context.Background(), &domain.Aircraft{ICAO: "7C6CA3"}, base, partial)

	if len(chain) != 1 || chain[0] != partial {
		t.Fatalf("expected the already-complete partial to pass through unchanged, got %+v", chain)
	}
}

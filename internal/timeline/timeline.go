// Package timeline implements C4, the Timeline Builder: interleaving
// FlightPoints with Start/Change/End descriptors and partitioning them into
// PartialFlights. Grounded on
// original_source/webapp/app/flights.py's FlightPointChangeDescriptor and
// original_source/webapp/app/inaccuracy.py's smart_constitutes_new_flight.
package timeline

import (
	"sort"
	"time"

	"aireyes/internal/config"
	"aireyes/internal/domain"
)

// StartDescriptor wraps the first point of a timeline.
type StartDescriptor struct{ Point *domain.FlightPoint }

// EndDescriptor wraps the last point of a timeline.
type EndDescriptor struct{ Point *domain.FlightPoint }

func (d StartDescriptor) Grounded() bool { return d.Point.IsGroundedForTimeline() }
func (d EndDescriptor) Grounded() bool   { return d.Point.IsGroundedForTimeline() }

// ChangeDescriptor holds the gap between two adjacent points and answers
// ConstitutesNewFlight per spec.md §4.3's decision table. TimeDifference is
// computed once at construction, mirroring the original's
// FlightPointChangeDescriptor.__init__.
type ChangeDescriptor struct {
	Point1, Point2     *domain.FlightPoint
	TimeDifference     time.Duration
	Point1Grounded     bool
	Point2Grounded     bool
}

// NewChangeDescriptor constructs a ChangeDescriptor between two
// time-adjacent points.
func NewChangeDescriptor(p1, p2 *domain.FlightPoint) ChangeDescriptor {
	return ChangeDescriptor{
		Point1:         p1,
		Point2:         p2,
		TimeDifference: p2.Timestamp.Sub(p1.Timestamp),
		Point1Grounded: p1.IsGroundedForTimeline(),
		Point2Grounded: p2.IsGroundedForTimeline(),
	}
}

// Decision is the result of evaluating ConstitutesNewFlight: a definite
// boolean plus, when the inaccuracy resolver fired, the resolution record
// that should be attached to whichever Flight emerges from this change.
type Decision struct {
	NewFlight  bool
	Resolution *domain.InaccuracyResolution // non-nil iff the inaccuracy resolver was consulted
}

// ConstitutesNewFlight evaluates the decision table in spec.md §4.3. Unlike
// the original, which raises FlightChangeInaccuracySolvencyRequired as
// control flow when both endpoints are airborne and the gap is large, this
// always returns a definite Decision — the inaccuracy resolver's catch-all
// is invoked inline (spec.md §9's Either<Ok, RevisionNeeded> design note
// applied to this boundary).
func (c ChangeDescriptor) ConstitutesNewFlight(th config.Thresholds, inaccuracySolvencyEnabled bool) Decision {
	switch {
	case c.Point1Grounded && c.Point2Grounded:
		return Decision{NewFlight: c.TimeDifference > th.TDNewGrounded}
	case c.Point1Grounded && !c.Point2Grounded:
		return Decision{NewFlight: c.TimeDifference > th.TDNewMidAirStart &&
			c.Point2.AltitudeFeetOrZero() < th.MaxAltMidAirDisappear}
	case !c.Point1Grounded && c.Point2Grounded:
		return Decision{NewFlight: c.TimeDifference > th.TDNewMidAirEnd &&
			c.Point1.AltitudeFeetOrZero() < th.MaxAltMidAirDisappear}
	default: // neither grounded
		if c.TimeDifference >= th.TDInaccuracyCheck {
			return c.resolveInaccuracy(th, inaccuracySolvencyEnabled)
		}
		return Decision{NewFlight: false}
	}
}

// resolveInaccuracy is smart_constitutes_new_flight: the catch-all applied
// when both endpoints are airborne and the gap is large enough to defer to
// it. Reason codes are preserved verbatim from the original.
func (c ChangeDescriptor) resolveInaccuracy(th config.Thresholds, enabled bool) Decision {
	if !enabled {
		return Decision{
			NewFlight:  false,
			Resolution: &domain.InaccuracyResolution{ConstitutesNewFlight: false, ReasonCode: domain.ReasonInaccuracySolvencyDisabled},
		}
	}
	if !c.Point1Grounded && !c.Point2Grounded && c.TimeDifference > th.TDNewMidAirBoth {
		return Decision{
			NewFlight:  true,
			Resolution: &domain.InaccuracyResolution{ConstitutesNewFlight: true, ReasonCode: domain.ReasonCatchAll},
		}
	}
	return Decision{
		NewFlight:  false,
		Resolution: &domain.InaccuracyResolution{ConstitutesNewFlight: false, ReasonCode: domain.ReasonNotNewFlight},
	}
}

// PartialFlight is a contiguous sub-sequence of one day's points, bounded
// by a Start/End descriptor pair.
type PartialFlight struct {
	Points []*domain.FlightPoint
	Start  StartDescriptor
	End    EndDescriptor

	// StartedWithTakeoffOverride/EndedWithLandingOverride are set by the
	// Cross-Day Stitcher (C5) when a synthetic cross-day Change resolves
	// this partial's open end.
	StartedWithTakeoffOverride bool
	EndedWithLandingOverride   bool

	// InaccuracyResolution is set when the inaccuracy resolver was
	// consulted while building this partial, carried through to whichever
	// Flight the assimilator produces from it.
	InaccuracyResolution *domain.InaccuracyResolution
}

// StartsWithTakeoff reports whether this partial begins with a takeoff: the
// start descriptor is grounded, or its altitude is below the mid-air
// disappearance threshold (spec.md §4.3's "complete iff" rule), or the
// cross-day override was set.
func (p *PartialFlight) StartsWithTakeoff(th config.Thresholds) bool {
	if p.StartedWithTakeoffOverride {
		return true
	}
	return p.Start.Grounded() || p.Start.Point.AltitudeFeetOrZero() < th.MaxAltMidAirDisappear
}

// EndsWithLanding is the symmetric counterpart of StartsWithTakeoff.
func (p *PartialFlight) EndsWithLanding(th config.Thresholds) bool {
	if p.EndedWithLandingOverride {
		return true
	}
	return p.End.Grounded() || p.End.Point.AltitudeFeetOrZero() < th.MaxAltMidAirDisappear
}

// IsComplete reports whether this partial is a complete Flight on its own:
// starts with a takeoff and ends with a landing. Per spec.md §9's
// documented open question, a taxi-only trace (grounded start AND grounded
// end, never airborne) legitimately satisfies this and should be flagged
// complete with TaxiOnly=true downstream in the assimilator — this is
// intentional, not a bug.
func (p *PartialFlight) IsComplete(th config.Thresholds) bool {
	return p.StartsWithTakeoff(th) && p.EndsWithLanding(th)
}

// TaxiOnly reports whether no point in this partial was ever airborne.
func (p *PartialFlight) TaxiOnly() bool {
	for _, pt := range p.Points {
		if !pt.IsGroundedForTimeline() {
			return false
		}
	}
	return true
}

// DailyFlightsView is the ordered collection of partials for one
// (aircraft, day), built by Build.
type DailyFlightsView struct {
	AircraftICAO string
	Day          time.Time
	Partials     []*PartialFlight
	Discarded    int // partials dropped for having < MinFragmentsForPartial points
}

// Build constructs the timeline for one (aircraft, day)'s points: sorts by
// timestamp, walks Change descriptors, and partitions on every "new flight"
// decision. Partials shorter than th.MinFragmentsForPartial are discarded.
func Build(aircraftICAO string, day time.Time, points []*domain.FlightPoint, th config.Thresholds, inaccuracySolvencyEnabled bool) *DailyFlightsView {
	sorted := make([]*domain.FlightPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	view := &DailyFlightsView{AircraftICAO: aircraftICAO, Day: day}
	if len(sorted) == 0 {
		return view
	}

	current := &PartialFlight{Points: []*domain.FlightPoint{sorted[0]}, Start: StartDescriptor{Point: sorted[0]}}
	for i := 0; i < len(sorted)-1; i++ {
		change := NewChangeDescriptor(sorted[i], sorted[i+1])
		decision := change.ConstitutesNewFlight(th, inaccuracySolvencyEnabled)
		if decision.Resolution != nil {
			current.InaccuracyResolution = decision.Resolution
		}
		if decision.NewFlight {
			current.End = EndDescriptor{Point: sorted[i]}
			view.appendPartial(current, th)
			current = &PartialFlight{Points: []*domain.FlightPoint{}, Start: StartDescriptor{Point: sorted[i+1]}}
		}
		current.Points = append(current.Points, sorted[i+1])
	}
	current.End = EndDescriptor{Point: sorted[len(sorted)-1]}
	view.appendPartial(current, th)

	return view
}

func (v *DailyFlightsView) appendPartial(p *PartialFlight, th config.Thresholds) {
	if len(p.Points) < th.MinFragmentsForPartial {
		v.Discarded++
		return
	}
	v.Partials = append(v.Partials, p)
}

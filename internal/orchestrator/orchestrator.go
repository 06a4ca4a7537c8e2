// Package orchestrator implements C7, the Submission Orchestrator: the two
// entry points every ingestion and background revision pass runs through,
// grounded on spec.md §4.6. It wires together C3 (locator), C4 (timeline),
// C5 (stitch) and C6 (assimilate) against the C1 stores.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"aireyes/internal/assimilate"
	"aireyes/internal/config"
	"aireyes/internal/domain"
	"aireyes/internal/locator"
	"aireyes/internal/logging"
	"aireyes/internal/stitch"
	"aireyes/internal/store"
	"aireyes/internal/store/chpoints"
	"aireyes/internal/timeline"
)

// Orchestrator wires the relational store, the point store, and C2-C6 into
// spec.md §4.6's submitPartial/reviseDay operations.
type Orchestrator struct {
	PG     *store.PostgresDB
	Points *chpoints.DB

	Locator     *locator.Locator
	Assimilator *assimilate.Assimilator

	Thresholds                config.Thresholds
	InaccuracySolvencyEnabled bool
	GeolocationEnabled        bool

	Log *logging.Logger
}

// SubmitPartial is spec.md §4.6's live-ingestion entry point: called on
// each worker push of newPoints belonging to one (aircraft, day).
func (o *Orchestrator) SubmitPartial(ctx context.Context, aircraft *domain.Aircraft, day time.Time, newPoints []*domain.FlightPoint) error {
	if len(newPoints) == 0 {
		return nil
	}

	if err := o.PG.EnsureDay(ctx, day); err != nil {
		return err
	}
	if err := o.PG.EnsureAircraftPresentDay(ctx, aircraft.ICAO, day); err != nil {
		return err
	}
	if err := o.PG.ClearVerification(ctx, aircraft.ICAO, day); err != nil {
		return err
	}

	if o.GeolocationEnabled && o.Locator != nil {
		hintSuburb := o.lastKnownSuburb(ctx, aircraft.ICAO, day)
		result := o.Locator.Locate(newPoints, hintSuburb)
		for i, pr := range result.Points {
			if pr.Success {
				newPoints[i].SuburbHash = pr.SuburbHash
			}
		}
	}

	for _, p := range newPoints {
		assimilate.CorrectFlightPoint(aircraft, p, o.Log)
	}
	if err := o.Points.InsertBatch(ctx, newPoints); err != nil {
		return fmt.Errorf("insert flight points: %w", err)
	}

	allPoints, err := o.Points.QueryDay(ctx, aircraft.ICAO, day)
	if err != nil {
		return fmt.Errorf("query day for assimilation: %w", err)
	}
	view := timeline.Build(aircraft.ICAO, day, allPoints, o.Thresholds, o.InaccuracySolvencyEnabled)

	sort.Slice(newPoints, func(i, j int) bool { return newPoints[i].Timestamp.Before(newPoints[j].Timestamp) })
	firstNew, lastNew := newPoints[0], newPoints[len(newPoints)-1]

	predecessor := findPredecessor(view.Partials, firstNew, lastNew)
	if predecessor != nil {
		decision := timeline.NewChangeDescriptor(predecessor.End.Point, firstNew).ConstitutesNewFlight(o.Thresholds, o.InaccuracySolvencyEnabled)
		if !decision.NewFlight {
			chain := o.stitchPartial(ctx, aircraft, day, predecessor)
			_, _, err := o.Assimilator.Assimilate(aircraft, chain)
			if err == nil {
				return o.persistAssimilation(ctx, aircraft, chain)
			}
			o.Log.Warnf("assimilate predecessor partial for %s/%s failed, falling back to full day: %v", aircraft.ICAO, day.Format("2006-01-02"), err)
		}
	}

	return o.assimilateAllPartials(ctx, aircraft, day, view.Partials)
}

// ReviseDay is spec.md §4.6's background full-day pass, run once history
// has been verified but flights have not.
func (o *Orchestrator) ReviseDay(ctx context.Context, aircraft *domain.Aircraft, day time.Time, force bool) error {
	if !force {
		apd, ok, err := o.PG.GetAircraftPresentDay(ctx, aircraft.ICAO, day)
		if err != nil {
			return err
		}
		if !ok || !apd.HistoryVerified || apd.FlightsVerified {
			return &domain.HistoryVerifiedError{AircraftICAO: aircraft.ICAO}
		}
	}

	allPoints, err := o.Points.QueryDay(ctx, aircraft.ICAO, day)
	if err != nil {
		return fmt.Errorf("query day for revision: %w", err)
	}
	view := timeline.Build(aircraft.ICAO, day, allPoints, o.Thresholds, o.InaccuracySolvencyEnabled)

	if err := o.assimilateAllPartials(ctx, aircraft, day, view.Partials); err != nil {
		return err
	}

	flightsVerified := true
	return o.PG.SetVerificationFlags(ctx, aircraft.ICAO, day, nil, &flightsVerified, nil)
}

// assimilateAllPartials runs C6 independently over every partial, recording
// per-partial failures as recoverable (spec.md §4.6) and only failing the
// whole call when every partial's assimilation fails. Any partial that
// doesn't already start with a takeoff or end with a landing is run through
// C5 first, joining it to its adjacent day(s) before assimilation.
func (o *Orchestrator) assimilateAllPartials(ctx context.Context, aircraft *domain.Aircraft, day time.Time, partials []*timeline.PartialFlight) error {
	if len(partials) == 0 {
		return &domain.NoPartialFlightsError{Reason: "day has no partials to assimilate"}
	}

	succeeded := 0
	for _, p := range partials {
		chain := o.stitchPartial(ctx, aircraft, day, p)
		if err := o.persistAssimilation(ctx, aircraft, chain); err != nil {
			o.Log.Warnf("assimilation failed for one partial of %s/%s: %v", aircraft.ICAO, p.Start.Point.Day.Format("2006-01-02"), err)
			continue
		}
		succeeded++
	}
	if succeeded == 0 {
		return &domain.NoFlightsAssimilatedError{ErrorCode: "zero-created-updated"}
	}
	return nil
}

func (o *Orchestrator) persistAssimilation(ctx context.Context, aircraft *domain.Aircraft, partials []*timeline.PartialFlight) error {
	flight, _, err := o.Assimilator.Assimilate(aircraft, partials)
	if err != nil {
		return err
	}
	return o.PG.UpsertFlight(ctx, flight)
}

// stitchPartial runs C5 against a partial that doesn't already start with a
// takeoff and/or end with a landing, joining it to the adjacent day(s) so
// C6 assimilates one complete cross-day chain instead of two truncated
// halves, per spec.md §4.4. When the walk can't complete (no data yet for
// the adjacent day), it enqueues that (aircraft, day) for re-verification
// instead of failing the caller; the partial is assimilated alone in the
// meantime and corrected once the missing day arrives.
func (o *Orchestrator) stitchPartial(ctx context.Context, aircraft *domain.Aircraft, day time.Time, partial *timeline.PartialFlight) []*timeline.PartialFlight {
	if partial.IsComplete(o.Thresholds) {
		return []*timeline.PartialFlight{partial}
	}

	getDay := o.dayTimeline(ctx)
	chain := []*timeline.PartialFlight{partial}

	if !partial.StartsWithTakeoff(o.Thresholds) {
		backward, err := stitch.CollectBackwardUntilTakeoff(aircraft.ICAO, day, partial, getDay, o.Thresholds, o.InaccuracySolvencyEnabled)
		if err != nil {
			o.enqueueRevision(ctx, err)
		} else {
			chain = backward
		}
	}

	if !partial.EndsWithLanding(o.Thresholds) {
		forward, err := stitch.CollectForwardUntilLanding(aircraft.ICAO, day, partial, getDay, o.Thresholds, o.InaccuracySolvencyEnabled)
		if err != nil {
			o.enqueueRevision(ctx, err)
		} else if len(forward) > 1 {
			chain = append(chain, forward[1:]...)
		}
	}

	return chain
}

// dayTimeline adapts C1's point store into the DayTimelineFunc C5 walks
// across, backed by the same QueryDay+timeline.Build pipeline
// SubmitPartial/ReviseDay use for their own day.
func (o *Orchestrator) dayTimeline(ctx context.Context) stitch.DayTimelineFunc {
	return func(icao string, day time.Time) (*timeline.DailyFlightsView, bool, error) {
		points, err := o.Points.QueryDay(ctx, icao, day)
		if err != nil {
			return nil, false, err
		}
		if len(points) == 0 {
			return nil, false, nil
		}
		return timeline.Build(icao, day, points, o.Thresholds, o.InaccuracySolvencyEnabled), true, nil
	}
}

// enqueueRevision marks an (aircraft, day) pair for re-verification when C5
// can't complete a cross-day walk, the same outcome spec.md §4.4 describes
// for a chain that runs off the edge of available history: via
// history_verified=false, internal/coordinator's trace-history assignment
// picks the day up again once more data exists. Nothing in the module
// schedules ReviseDay for it.
func (o *Orchestrator) enqueueRevision(ctx context.Context, stitchErr error) {
	rev, ok := stitchErr.(*domain.FlightDataRevisionRequired)
	if !ok {
		o.Log.Warnf("cross-day stitch failed: %v", stitchErr)
		return
	}
	if err := o.PG.EnsureAircraftPresentDay(ctx, rev.AircraftICAO, rev.Day); err != nil {
		o.Log.Warnf("enqueue revision for %s/%s: %v", rev.AircraftICAO, rev.Day.Format("2006-01-02"), err)
		return
	}
	var history, flights *bool
	if rev.RequiresHistory {
		v := false
		history = &v
	}
	if rev.RequiresFlights {
		v := false
		flights = &v
	}
	if history == nil && flights == nil {
		return
	}
	if err := o.PG.SetVerificationFlags(ctx, rev.AircraftICAO, rev.Day, history, flights, nil); err != nil {
		o.Log.Warnf("enqueue revision for %s/%s: %v", rev.AircraftICAO, rev.Day.Format("2006-01-02"), err)
	}
}

// lastKnownSuburb seeds the locator with the most recently geolocated point
// for this (aircraft, day), per spec.md §4.6's "seeded with the most
// recently known suburb" instruction.
func (o *Orchestrator) lastKnownSuburb(ctx context.Context, icao string, day time.Time) *domain.Suburb {
	if o.Locator == nil || o.Locator.Index == nil {
		return nil
	}
	existing, err := o.Points.QueryDay(ctx, icao, day)
	if err != nil {
		return nil
	}
	for i := len(existing) - 1; i >= 0; i-- {
		if existing[i].SuburbHash != "" {
			return o.Locator.Index.ByHash[existing[i].SuburbHash]
		}
	}
	return nil
}

// findPredecessor locates the latest partial whose start precedes the new
// points' first timestamp and whose next sibling (if any) starts after the
// new points' last timestamp, per spec.md §4.6.
func findPredecessor(partials []*timeline.PartialFlight, firstNew, lastNew *domain.FlightPoint) *timeline.PartialFlight {
	for i := len(partials) - 1; i >= 0; i-- {
		p := partials[i]
		if p.Start.Point.Timestamp.After(firstNew.Timestamp) {
			continue
		}
		if i+1 < len(partials) {
			next := partials[i+1]
			if !next.Start.Point.Timestamp.After(lastNew.Timestamp) {
				continue
			}
		}
		return p
	}
	return nil
}

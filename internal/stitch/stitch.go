// Package stitch implements C5, the Cross-Day Stitcher: walking adjacent
// AircraftPresentDay rows to join partials into complete Flights across
// midnight UTC boundaries. Grounded on spec.md §4.4 and the day-walking
// shape of original_source/webapp/app/flights.py's AircraftDayIterator.
package stitch

import (
	"time"

	"aireyes/internal/config"
	"aireyes/internal/domain"
	"aireyes/internal/timeline"
)

const maxWalkIterations = 100

// DayTimelineFunc supplies a built DailyFlightsView for an (aircraft, day)
// pair, so the stitcher doesn't need to know about C1/C4 wiring directly.
// ok=false means no AircraftPresentDay data exists yet for that day.
type DayTimelineFunc func(icao string, day time.Time) (view *timeline.DailyFlightsView, ok bool, err error)

// CollectBackwardUntilTakeoff walks previous days (up to 100 iterations)
// prepending partials to seed until one starts with a takeoff, per spec.md
// §4.4. On success it returns the full prepended chain (oldest first,
// seed last) and sets seed.StartedWithTakeoffOverride when a synthetic
// cross-day Change resolves the join without needing to prepend further.
func CollectBackwardUntilTakeoff(icao string, seedDay time.Time, seed *timeline.PartialFlight, getDay DayTimelineFunc, th config.Thresholds, inaccuracySolvencyEnabled bool) ([]*timeline.PartialFlight, error) {
	chain := []*timeline.PartialFlight{seed}
	cursorDay := seedDay

	for i := 0; i < maxWalkIterations; i++ {
		prevDay := cursorDay.AddDate(0, 0, -1)
		view, ok, err := getDay(icao, prevDay)
		if err != nil {
			return nil, err
		}
		if !ok || len(view.Partials) == 0 {
			return nil, &domain.FlightDataRevisionRequired{AircraftICAO: icao, Day: prevDay, RequiresHistory: true, RequiresFlights: true}
		}

		lastPartial := view.Partials[len(view.Partials)-1]
		frontOfChain := chain[0]
		change := timeline.NewChangeDescriptor(lastPartial.Points[len(lastPartial.Points)-1], frontOfChain.Points[0])
		decision := change.ConstitutesNewFlight(th, inaccuracySolvencyEnabled)

		if decision.NewFlight {
			seed.StartedWithTakeoffOverride = true
			return chain, nil
		}

		chain = append([]*timeline.PartialFlight{lastPartial}, chain...)
		if lastPartial.StartsWithTakeoff(th) {
			return chain, nil
		}
		cursorDay = prevDay
	}
	return nil, &domain.FlightDataRevisionRequired{AircraftICAO: icao, Day: cursorDay, RequiresHistory: true, RequiresFlights: true}
}

// CollectForwardUntilLanding is the symmetric counterpart, walking forward
// and appending partials until one ends with a landing.
func CollectForwardUntilLanding(icao string, seedDay time.Time, seed *timeline.PartialFlight, getDay DayTimelineFunc, th config.Thresholds, inaccuracySolvencyEnabled bool) ([]*timeline.PartialFlight, error) {
	chain := []*timeline.PartialFlight{seed}
	cursorDay := seedDay

	for i := 0; i < maxWalkIterations; i++ {
		nextDay := cursorDay.AddDate(0, 0, 1)
		view, ok, err := getDay(icao, nextDay)
		if err != nil {
			return nil, err
		}
		if !ok || len(view.Partials) == 0 {
			return nil, &domain.FlightDataRevisionRequired{AircraftICAO: icao, Day: nextDay, RequiresHistory: true, RequiresFlights: true}
		}

		firstPartial := view.Partials[0]
		backOfChain := chain[len(chain)-1]
		change := timeline.NewChangeDescriptor(backOfChain.Points[len(backOfChain.Points)-1], firstPartial.Points[0])
		decision := change.ConstitutesNewFlight(th, inaccuracySolvencyEnabled)

		if decision.NewFlight {
			seed.EndedWithLandingOverride = true
			return chain, nil
		}

		chain = append(chain, firstPartial)
		if firstPartial.EndsWithLanding(th) {
			return chain, nil
		}
		cursorDay = nextDay
	}
	return nil, &domain.FlightDataRevisionRequired{AircraftICAO: icao, Day: cursorDay, RequiresHistory: true, RequiresFlights: true}
}

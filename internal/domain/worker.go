package domain

import (
	"fmt"
	"time"
)

// WorkerType distinguishes the two radar worker roles defined by spec.md
// §3: an aircraft-tracker pushes realtime data, a history-trawler fetches
// past days.
type WorkerType string

const (
	WorkerTypeAircraftTracker WorkerType = "aircraft-tracker"
	WorkerTypeHistoryTrawler  WorkerType = "history-trawler"
)

// WorkerStatus is the derived (never stored) status of a Worker, computed
// from its timestamp/flag tuple per spec.md §4.7's table.
type WorkerStatus string

const (
	WorkerReady        WorkerStatus = "ready"
	WorkerInitialising WorkerStatus = "initialising"
	WorkerRunning      WorkerStatus = "running"
	WorkerShutdown     WorkerStatus = "shutdown"
	WorkerError        WorkerStatus = "error"
	WorkerUnknown      WorkerStatus = "unknown"
)

// Worker is a radar worker scraper process, identified by name.
type Worker struct {
	Name       string
	UniqueID   string
	Type       WorkerType
	Enabled    bool
	PhoneHomeURL string
	ProxyURL     string
	PID          int

	MultipleAssignmentsAllowed bool

	Running          bool
	ExecutedAt       *time.Time
	ShutdownAt       *time.Time
	Initialising     bool
	InitStartedAt    *time.Time
	LastUpdate       *time.Time
	ErrorJSON        string
}

// Status derives the worker's current status from its timestamp/flag
// tuple, per the table in spec.md §4.7. Grounded on
// original_source/webapp/app/radarworker.py's status derivation helpers
// (worker_initialising / worker_running / worker_shutdown).
func (w *Worker) Status() WorkerStatus {
	switch {
	case !w.Running && w.ExecutedAt == nil && w.ShutdownAt == nil &&
		!w.Initialising && w.InitStartedAt == nil && w.ErrorJSON == "":
		return WorkerReady
	case !w.Running && w.ExecutedAt == nil && w.ShutdownAt == nil &&
		w.Initialising && w.InitStartedAt != nil && w.ErrorJSON == "":
		return WorkerInitialising
	case w.Running && w.ExecutedAt != nil && w.ShutdownAt == nil &&
		!w.Initialising && w.InitStartedAt != nil && w.ErrorJSON == "":
		return WorkerRunning
	case !w.Running && !w.Initialising && w.ErrorJSON != "":
		return WorkerError
	case !w.Running && !w.Initialising && (w.InitStartedAt != nil || w.ExecutedAt != nil) && w.ErrorJSON == "":
		return WorkerShutdown
	default:
		return WorkerUnknown
	}
}

// IsStuck reports whether the worker has been Initialising or Running
// without a heartbeat for longer than timeout, per spec.md §4.7's
// stuck-detection rule. now is injected so the sweeper stays testable.
func (w *Worker) IsStuck(now time.Time, timeout time.Duration) bool {
	switch w.Status() {
	case WorkerInitialising:
		return w.InitStartedAt != nil && now.Sub(*w.InitStartedAt) > timeout
	case WorkerRunning:
		return w.LastUpdate != nil && now.Sub(*w.LastUpdate) > timeout
	default:
		return false
	}
}

// ResetStatusAttrs clears every status-derivation field back to Ready,
// grounded on radarworker.py's reset_status_attrs.
func (w *Worker) ResetStatusAttrs() {
	w.Running = false
	w.ExecutedAt = nil
	w.ShutdownAt = nil
	w.Initialising = false
	w.InitStartedAt = nil
	w.ErrorJSON = ""
}

// Initialise transitions Ready|Shutdown -> Initialising, per spec.md §4.7's
// transition table. Grounded on radarworker.py's worker_initialising.
func (w *Worker) Initialise(now time.Time) error {
	switch w.Status() {
	case WorkerInitialising:
		return nil // already initialising, no-op
	case WorkerReady, WorkerShutdown:
		w.ResetStatusAttrs()
		w.LastUpdate = &now
		w.Initialising = true
		w.InitStartedAt = &now
		return nil
	default:
		return fmt.Errorf("cannot initialise worker %s: not ready or shutdown", w.Name)
	}
}

// MarkRunning transitions Initialising -> Running, on the worker-sent
// "initialised" signal.
func (w *Worker) MarkRunning(now time.Time) error {
	switch w.Status() {
	case WorkerRunning:
		return nil // already running, no-op
	case WorkerInitialising:
		w.LastUpdate = &now
		w.Running = true
		w.Initialising = false
		w.ExecutedAt = &now
		return nil
	default:
		return fmt.Errorf("cannot mark worker %s running: not initialising", w.Name)
	}
}

// MarkShutdown transitions Running|Initialising -> Shutdown, on a "shutdown"
// signal or forced termination. Status-attribute history (ExecutedAt,
// InitStartedAt, ErrorJSON) is preserved, matching the original's
// worker_shutdown not clearing logs.
func (w *Worker) MarkShutdown(now time.Time) error {
	switch w.Status() {
	case WorkerShutdown:
		return nil // already shutdown, no-op
	case WorkerRunning, WorkerInitialising:
		w.LastUpdate = &now
		w.ShutdownAt = &now
		w.Running = false
		w.Initialising = false
		w.PID = 0
		return nil
	default:
		return fmt.Errorf("cannot shut down worker %s: not running or initialising", w.Name)
	}
}

// HandleSignal applies one of the three worker-sent signals
// ("initialised", "shutdown", "heartbeat") per spec.md §4.7, always
// touching LastUpdate first the way worker_signal_received does.
func (w *Worker) HandleSignal(signal string, now time.Time) error {
	w.LastUpdate = &now
	switch signal {
	case "initialised":
		return w.MarkRunning(now)
	case "shutdown":
		return w.MarkShutdown(now)
	case "heartbeat":
		return nil
	default:
		return fmt.Errorf("unrecognised worker signal: %s", signal)
	}
}

// WorkerLock reserves an AircraftPresentDay for exclusive assignment to one
// history-trawler. A unique constraint on (icao, date) at the store layer
// makes duplicate assignment impossible; destroyed when the worker
// disconnects or finishes.
type WorkerLock struct {
	WorkerName   string
	AircraftICAO string
	Day          time.Time
}

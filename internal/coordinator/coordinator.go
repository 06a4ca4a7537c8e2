// Package coordinator implements C8, the Worker Coordinator: spawning and
// reconciling radar worker processes, detecting stuck workers, and
// assigning history-trawling work. Grounded on
// original_source/webapp/app/radarworker.py's spawn/reconcile/stuck-detect
// duo, adapted from psutil process scanning to /proc scanning and from a
// Node.js worker script to a single Go worker binary (cmd/radarsim): the
// original's three-argument start command
// [node, worker_script, encoded_config] collapses to
// [worker_binary, encoded_config] since there is no separate interpreter
// argument to match against.
package coordinator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"aireyes/internal/bus"
	"aireyes/internal/domain"
	"aireyes/internal/logging"
	"aireyes/internal/orchestrator"
	"aireyes/internal/store"
)

// Coordinator owns the worker process lifecycle and work-assignment paths.
type Coordinator struct {
	PG           *store.PostgresDB
	Bus          *bus.Bus
	Orchestrator *orchestrator.Orchestrator

	WorkerBinaryPath string
	StuckTimeout     time.Duration

	Log *logging.Logger
}

// startCommand is the JSON payload base64-encoded into a spawned worker's
// argument list, mirroring RadarWorkerStartCommandSchema.
type startCommand struct {
	Name         string `json:"name"`
	UniqueID     string `json:"unique_id"`
	WorkerType   string `json:"worker_type"`
	Enabled      bool   `json:"enabled"`
	PhoneHomeURL string `json:"phone_home_url"`
	ProxyURL     string `json:"proxy_url,omitempty"`
}

// SpawnWorker transitions w to Initialising and starts the worker binary as
// a detached process, recording its PID. Grounded on
// radarworker.py's execute_radar_worker.
func (c *Coordinator) SpawnWorker(ctx context.Context, w *domain.Worker) error {
	if err := w.Initialise(time.Now()); err != nil {
		return fmt.Errorf("spawn worker %s: %w", w.Name, err)
	}

	cmdJSON, err := json.Marshal(startCommand{
		Name: w.Name, UniqueID: w.UniqueID, WorkerType: string(w.Type),
		Enabled: w.Enabled, PhoneHomeURL: w.PhoneHomeURL, ProxyURL: w.ProxyURL,
	})
	if err != nil {
		return fmt.Errorf("encode start command for %s: %w", w.Name, err)
	}
	encoded := base64.StdEncoding.EncodeToString(cmdJSON)

	cmd := exec.Command(c.WorkerBinaryPath, encoded)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker binary for %s: %w", w.Name, err)
	}
	w.PID = cmd.Process.Pid

	// Reap the detached process in the background so it doesn't linger as a
	// zombie; the worker's own lifecycle is tracked via signals, not exit
	// status.
	go func() { _ = cmd.Wait() }()

	if err := c.PG.UpsertWorker(ctx, w); err != nil {
		return err
	}
	if c.Bus != nil {
		_ = c.Bus.PublishWorkerSignal(bus.WorkerSignalPayload{WorkerName: w.Name, Signal: "initialising", Timestamp: time.Now()})
	}
	c.Log.Infof("started worker %s under pid %d", w.Name, w.PID)
	return nil
}

// parseStartCommand decodes a candidate process's cmdline args the same way
// parse_as_start_command does: exactly two args, the second a base64 JSON
// start command.
func parseStartCommand(binaryBase string, args []string) (*startCommand, bool) {
	if len(args) != 2 || filepath.Base(args[0]) != binaryBase {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(args[1])
	if err != nil {
		return nil, false
	}
	var sc startCommand
	if err := json.Unmarshal(decoded, &sc); err != nil {
		return nil, false
	}
	return &sc, true
}

// runningWorker pairs a discovered process with its decoded start command.
type runningWorker struct {
	PID     int
	Command startCommand
}

// scanRunningWorkers enumerates /proc for processes whose cmdline matches
// the worker binary's start-command shape, grounded on
// radarworker.py's query_running_workers (psutil.process_iter adapted to
// /proc scanning since Go has no equivalent of psutil in the retrieved
// pack).
func (c *Coordinator) scanRunningWorkers() ([]runningWorker, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}
	binaryBase := filepath.Base(c.WorkerBinaryPath)

	var found []runningWorker
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
		if err != nil {
			continue
		}
		args := splitCmdline(data)
		sc, ok := parseStartCommand(binaryBase, args)
		if !ok {
			continue
		}
		found = append(found, runningWorker{PID: pid, Command: *sc})
	}
	return found, nil
}

func splitCmdline(data []byte) []string {
	parts := bytes.Split(bytes.TrimRight(data, "\x00"), []byte{0})
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) > 0 {
			args = append(args, string(p))
		}
	}
	return args
}

// ReconcileWorkerProcesses scans for physically running worker processes
// and corrects any Worker whose recorded PID drifted from reality (the
// process was restarted externally, or the master restarted without
// losing its own child processes). Grounded on
// radarworker.py's query_running_workers PID-reconciliation branch.
func (c *Coordinator) ReconcileWorkerProcesses(ctx context.Context) error {
	running, err := c.scanRunningWorkers()
	if err != nil {
		return err
	}
	for _, rw := range running {
		w, ok, err := c.PG.GetWorker(ctx, rw.Command.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if w.PID != rw.PID {
			c.Log.Warnf("worker %s has pid %d on file, but is running under pid %d; correcting", w.Name, w.PID, rw.PID)
			w.PID = rw.PID
			if err := c.PG.UpsertWorker(ctx, w); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsWorkerPhysicallyRunning reports whether a worker named name currently
// has a live, matching process.
func (c *Coordinator) IsWorkerPhysicallyRunning(name string) (bool, error) {
	running, err := c.scanRunningWorkers()
	if err != nil {
		return false, err
	}
	for _, rw := range running {
		if rw.Command.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// ShutdownWorker sends SIGINT to w's recorded process, waits briefly for it
// to exit, then transitions it to Shutdown (or back to Ready if reset is
// set). Grounded on radarworker.py's shutdown_worker.
func (c *Coordinator) ShutdownWorker(ctx context.Context, w *domain.Worker, reason string, reset bool) error {
	if w.PID != 0 {
		if proc, err := os.FindProcess(w.PID); err == nil {
			_ = proc.Signal(syscall.SIGINT)
		}
		for i := 0; i < 20; i++ {
			if _, err := os.Stat(fmt.Sprintf("/proc/%d", w.PID)); os.IsNotExist(err) {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if running, err := c.IsWorkerPhysicallyRunning(w.Name); err == nil && running {
			return fmt.Errorf("shutdown worker %s: process %d is still running after SIGINT", w.Name, w.PID)
		}
	}

	now := time.Now()
	if reset {
		w.ResetStatusAttrs()
	} else if err := w.MarkShutdown(now); err != nil {
		return err
	}
	if err := c.PG.UpsertWorker(ctx, w); err != nil {
		return err
	}
	if c.Bus != nil {
		_ = c.Bus.PublishWorkerSignal(bus.WorkerSignalPayload{WorkerName: w.Name, Signal: "shutdown", Timestamp: now, Reason: reason})
	}
	return nil
}

// ExecutionPass runs one sweep over every enabled worker: stuck workers are
// force-shut-down and reset, workers that are neither initialising nor
// running are (re)spawned. Grounded on radarworker.py's
// radar_worker_execution_pass.
func (c *Coordinator) ExecutionPass(ctx context.Context) error {
	workers, err := c.PG.ListWorkers(ctx)
	if err != nil {
		return err
	}
	if len(workers) == 0 {
		c.Log.Warnf("no radar workers registered, skipping execution pass")
		return nil
	}

	for _, w := range workers {
		if !w.Enabled {
			continue
		}
		if w.IsStuck(time.Now(), c.StuckTimeout) {
			c.Log.Warnf("worker %s appears stuck in %s, forcing shutdown+reset", w.Name, w.Status())
			if err := c.ShutdownWorker(ctx, w, "stuck", true); err != nil {
				c.Log.Errorf("failed to shut down stuck worker %s: %v", w.Name, err)
			}
			continue
		}
		switch w.Status() {
		case domain.WorkerInitialising, domain.WorkerRunning:
			continue
		default:
			if err := c.SpawnWorker(ctx, w); err != nil {
				c.Log.Errorf("failed to spawn worker %s: %v", w.Name, err)
			}
		}
	}
	return nil
}

// AssignTraceHistoryWork implements spec.md §4.7's assignTraceHistoryWork:
// returns an (icao, day) pair for workerName to trawl history for,
// short-circuiting to an existing assignment when the worker doesn't allow
// multiple concurrent assignments.
func (c *Coordinator) AssignTraceHistoryWork(ctx context.Context, workerName string) (icao string, day time.Time, err error) {
	w, ok, err := c.PG.GetWorker(ctx, workerName)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, fmt.Errorf("assign trace history work: unknown worker %s", workerName)
	}

	if !w.MultipleAssignmentsAllowed {
		if lock, ok, err := c.PG.FindWorkerLockForWorker(ctx, workerName); err != nil {
			return "", time.Time{}, err
		} else if ok {
			return lock.AircraftICAO, lock.Day, nil
		}
	}

	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidateICAO, candidateDay, ok, err := c.PG.FindUnassignedAircraftPresentDay(ctx)
		if err != nil {
			return "", time.Time{}, err
		}
		if !ok {
			return "", time.Time{}, &domain.NoAssignableWorkLeft{RadarWorkerName: workerName}
		}
		acquired, err := c.PG.AcquireWorkerLock(ctx, &domain.WorkerLock{WorkerName: workerName, AircraftICAO: candidateICAO, Day: candidateDay})
		if err != nil {
			return "", time.Time{}, err
		}
		if acquired {
			return candidateICAO, candidateDay, nil
		}
		// Lost the race to another worker; retry against the next candidate.
	}
	return "", time.Time{}, &domain.NoAssignableWorkLeft{RadarWorkerName: workerName}
}

// CompleteTraceHistoryWork implements spec.md §4.7's completion path: the
// submission is ingested through C7, history is marked verified, and the
// WorkerLock reserving this (aircraft, day) is released.
func (c *Coordinator) CompleteTraceHistoryWork(ctx context.Context, workerName string, aircraft *domain.Aircraft, day time.Time, points []*domain.FlightPoint) error {
	if err := c.Orchestrator.SubmitPartial(ctx, aircraft, day, points); err != nil {
		return err
	}
	historyVerified := true
	if err := c.PG.SetVerificationFlags(ctx, aircraft.ICAO, day, &historyVerified, nil, nil); err != nil {
		return err
	}
	return c.PG.ReleaseWorkerLock(ctx, workerName, aircraft.ICAO, day)
}

package domain

import (
	"testing"
	"time"
)

func TestWorkerStatusTable(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		w    Worker
		want WorkerStatus
	}{
		{"ready", Worker{}, WorkerReady},
		{"initialising", Worker{Initialising: true, InitStartedAt: &now}, WorkerInitialising},
		{"running", Worker{Running: true, ExecutedAt: &now, InitStartedAt: &now}, WorkerRunning},
		{"error", Worker{ErrorJSON: `{"code":"x"}`}, WorkerError},
		{"shutdown", Worker{ExecutedAt: &now}, WorkerShutdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorkerInitialiseRequiresReadyOrShutdown(t *testing.T) {
	now := time.Now()
	w := &Worker{Running: true, ExecutedAt: &now, InitStartedAt: &now}
	if err := w.Initialise(now); err == nil {
		t.Fatal("expected error initialising a running worker")
	}
}

func TestWorkerInitialiseFromReady(t *testing.T) {
	w := &Worker{}
	now := time.Now()
	if err := w.Initialise(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Status() != WorkerInitialising {
		t.Fatalf("status = %v, want Initialising", w.Status())
	}
}

func TestWorkerMarkRunningRequiresInitialising(t *testing.T) {
	w := &Worker{}
	if err := w.MarkRunning(time.Now()); err == nil {
		t.Fatal("expected error marking a ready worker running")
	}
}

func TestWorkerFullLifecycle(t *testing.T) {
	w := &Worker{}
	t0 := time.Now()

	if err := w.Initialise(t0); err != nil {
		t.Fatalf("initialise: %v", err)
	}
	if err := w.HandleSignal("initialised", t0.Add(time.Second)); err != nil {
		t.Fatalf("handle initialised: %v", err)
	}
	if w.Status() != WorkerRunning {
		t.Fatalf("status after initialised signal = %v, want Running", w.Status())
	}

	if err := w.HandleSignal("heartbeat", t0.Add(2*time.Second)); err != nil {
		t.Fatalf("handle heartbeat: %v", err)
	}
	if w.Status() != WorkerRunning {
		t.Fatalf("heartbeat must not change status, got %v", w.Status())
	}

	if err := w.HandleSignal("shutdown", t0.Add(3*time.Second)); err != nil {
		t.Fatalf("handle shutdown: %v", err)
	}
	if w.Status() != WorkerShutdown {
		t.Fatalf("status after shutdown signal = %v, want Shutdown", w.Status())
	}
}

func TestWorkerHandleSignalRejectsUnknown(t *testing.T) {
	w := &Worker{}
	if err := w.HandleSignal("made-up-signal", time.Now()); err == nil {
		t.Fatal("expected error for unrecognised signal")
	}
}

func TestWorkerIsStuckInitialising(t *testing.T) {
	initStarted := time.Now().Add(-10 * time.Minute)
	w := &Worker{Initialising: true, InitStartedAt: &initStarted}
	if !w.IsStuck(time.Now(), 5*time.Minute) {
		t.Fatal("expected worker stuck initialising past timeout")
	}
}

func TestWorkerIsStuckRunning(t *testing.T) {
	executedAt := time.Now().Add(-20 * time.Minute)
	lastUpdate := time.Now().Add(-10 * time.Minute)
	w := &Worker{Running: true, ExecutedAt: &executedAt, InitStartedAt: &executedAt, LastUpdate: &lastUpdate}
	if !w.IsStuck(time.Now(), 5*time.Minute) {
		t.Fatal("expected worker stuck running past heartbeat timeout")
	}
}

func TestWorkerNotStuckWithRecentHeartbeat(t *testing.T) {
	executedAt := time.Now().Add(-20 * time.Minute)
	lastUpdate := time.Now().Add(-1 * time.Minute)
	w := &Worker{Running: true, ExecutedAt: &executedAt, InitStartedAt: &executedAt, LastUpdate: &lastUpdate}
	if w.IsStuck(time.Now(), 5*time.Minute) {
		t.Fatal("expected worker not stuck with a recent heartbeat")
	}
}

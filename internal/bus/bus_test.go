package bus

import "testing"

func TestAircraftSubjectFormat(t *testing.T) {
	got := AircraftSubject("7C6CA3", EventAircraftUpdate)
	want := "aircraft.7C6CA3.aircraft-update"
	if got != want {
		t.Fatalf("AircraftSubject() = %q, want %q", got, want)
	}
}

func TestWorkerSubjectFormat(t *testing.T) {
	got := WorkerSubject("history-01", "heartbeat")
	want := "aireyes.worker.history-01.heartbeat"
	if got != want {
		t.Fatalf("WorkerSubject() = %q, want %q", got, want)
	}
}

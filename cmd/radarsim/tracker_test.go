package main

import "testing"

func TestSubmissionTrackerInMemory(t *testing.T) {
	tr, err := newSubmissionTracker("")
	if err != nil {
		t.Fatalf("newSubmissionTracker: %v", err)
	}
	defer tr.Close()

	if tr.alreadySubmitted("7C6CA3", "2026-07-31") {
		t.Error("expected a fresh tracker to have nothing submitted")
	}

	tr.markSubmitted("7C6CA3", "2026-07-31")
	if !tr.alreadySubmitted("7C6CA3", "2026-07-31") {
		t.Error("expected the marked (icao, day) pair to be submitted")
	}
	if tr.alreadySubmitted("7C6CA3", "2026-08-01") {
		t.Error("expected a different day to remain unsubmitted")
	}
}

func TestSubmissionTrackerPendingAssignment(t *testing.T) {
	tr, err := newSubmissionTracker("")
	if err != nil {
		t.Fatalf("newSubmissionTracker: %v", err)
	}
	defer tr.Close()

	if _, ok := tr.pendingAssignment(); ok {
		t.Error("expected no pending assignment on a fresh tracker")
	}

	tr.setPending("7C6CA3", "2026-07-31")
	pending, ok := tr.pendingAssignment()
	if !ok {
		t.Fatal("expected a pending assignment after setPending")
	}
	if pending.ICAO != "7C6CA3" || pending.Day != "2026-07-31" {
		t.Errorf("unexpected pending assignment: %+v", pending)
	}

	tr.clearPending()
	if _, ok := tr.pendingAssignment(); ok {
		t.Error("expected no pending assignment after clearPending")
	}
}

func TestSubmissionTrackerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/tracker.db"

	tr1, err := newSubmissionTracker(path)
	if err != nil {
		t.Fatalf("newSubmissionTracker: %v", err)
	}
	tr1.markSubmitted("7C6CA3", "2026-07-31")
	if err := tr1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	tr2, err := newSubmissionTracker(path)
	if err != nil {
		t.Fatalf("reopen newSubmissionTracker: %v", err)
	}
	defer tr2.Close()

	if !tr2.alreadySubmitted("7C6CA3", "2026-07-31") {
		t.Error("expected submission history to survive a reopen")
	}
}

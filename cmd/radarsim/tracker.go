package main

import (
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"
)

// submissionTracker records which (icao, day) pairs a history-trawler
// radarsim has already submitted, so a restarted process doesn't resubmit
// an in-flight assignment. Adapted from internal/state/tracker.go's
// hybrid in-memory-cache-plus-sqlite-persistence shape: an in-memory set
// answers reads, sqlite survives restarts.
type submissionTracker struct {
	db *sql.DB
	mu sync.Mutex

	submitted map[string]bool
	pending   *pendingAssignment
}

type pendingAssignment struct {
	ICAO string
	Day  string
}

const schema = `
CREATE TABLE IF NOT EXISTS submitted_history (
	icao TEXT NOT NULL,
	day  TEXT NOT NULL,
	PRIMARY KEY (icao, day)
);
`

func newSubmissionTracker(path string) (*submissionTracker, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	t := &submissionTracker{db: db, submitted: make(map[string]bool)}
	if err := t.loadSubmitted(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

func (t *submissionTracker) loadSubmitted() error {
	rows, err := t.db.Query(`SELECT icao, day FROM submitted_history`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var icao, day string
		if err := rows.Scan(&icao, &day); err != nil {
			continue
		}
		t.submitted[submissionKey(icao, day)] = true
	}
	return rows.Err()
}

func (t *submissionTracker) Close() error {
	return t.db.Close()
}

func submissionKey(icao, day string) string {
	return icao + "|" + day
}

func (t *submissionTracker) alreadySubmitted(icao, day string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitted[submissionKey(icao, day)]
}

func (t *submissionTracker) markSubmitted(icao, day string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitted[submissionKey(icao, day)] = true
	_, _ = t.db.Exec(`INSERT OR IGNORE INTO submitted_history (icao, day) VALUES (?, ?)`, icao, day)
}

func (t *submissionTracker) setPending(icao, day string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = &pendingAssignment{ICAO: icao, Day: day}
}

func (t *submissionTracker) clearPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = nil
}

func (t *submissionTracker) pendingAssignment() (pendingAssignment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return pendingAssignment{}, false
	}
	return *t.pending, true
}

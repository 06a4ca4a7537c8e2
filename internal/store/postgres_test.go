package store

import (
	"context"
	"os"
	"testing"
	"time"

	"aireyes/internal/domain"
)

// setupTestPostgres opens a connection to a live Postgres instance for
// integration testing. Returns nil if none is reachable, mirroring
// storage.setupTestPostgres's skip-not-fail approach.
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "aireyes"
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "aireyes"
	}
	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		database = "aireyes"
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, PostgresConfig{
		Host: host, Port: 5432, User: user, Password: password, Database: database,
	})
	if err != nil {
		return nil
	}
	if err := pg.CreateSchema(ctx); err != nil {
		pg.Close()
		return nil
	}
	return pg
}

func TestUpsertAircraftIsIdempotent(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("no PostgreSQL connection available")
	}
	defer pg.Close()
	ctx := context.Background()

	a := &domain.Aircraft{ICAO: "7c68b7", Type: "A320", FlightName: "QF1"}
	if err := pg.UpsertAircraft(ctx, a); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	a.Description = "updated description"
	if err := pg.UpsertAircraft(ctx, a); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
}

func TestAircraftPresentDayVerificationFlags(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("no PostgreSQL connection available")
	}
	defer pg.Close()
	ctx := context.Background()

	aircraft := &domain.Aircraft{ICAO: "7c68b7"}
	if err := pg.UpsertAircraft(ctx, aircraft); err != nil {
		t.Fatalf("upsert aircraft: %v", err)
	}
	day := domain.DayFromTimestamp(time.Now()).Date
	if err := pg.EnsureDay(ctx, day); err != nil {
		t.Fatalf("ensure day: %v", err)
	}
	if err := pg.EnsureAircraftPresentDay(ctx, aircraft.ICAO, day); err != nil {
		t.Fatalf("ensure aircraft_present_day: %v", err)
	}

	flightsVerified := true
	if err := pg.SetVerificationFlags(ctx, aircraft.ICAO, day, nil, &flightsVerified, nil); err != nil {
		t.Fatalf("set verification flags: %v", err)
	}

	apd, ok, err := pg.GetAircraftPresentDay(ctx, aircraft.ICAO, day)
	if err != nil {
		t.Fatalf("get aircraft_present_day: %v", err)
	}
	if !ok {
		t.Fatal("expected row to exist")
	}
	if !apd.FlightsVerified {
		t.Fatal("expected flights_verified to be true")
	}

	if err := pg.ClearVerification(ctx, aircraft.ICAO, day); err != nil {
		t.Fatalf("clear verification: %v", err)
	}
	apd, _, err = pg.GetAircraftPresentDay(ctx, aircraft.ICAO, day)
	if err != nil {
		t.Fatalf("get aircraft_present_day after clear: %v", err)
	}
	if apd.FlightsVerified {
		t.Fatal("expected flights_verified to be cleared")
	}
}

func TestWorkerLockPreventsDoubleAssignment(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("no PostgreSQL connection available")
	}
	defer pg.Close()
	ctx := context.Background()

	worker := &domain.Worker{Name: "trawler-1", UniqueID: "abc", Type: domain.WorkerTypeHistoryTrawler, Enabled: true}
	if err := pg.UpsertWorker(ctx, worker); err != nil {
		t.Fatalf("upsert worker: %v", err)
	}
	day := domain.DayFromTimestamp(time.Now()).Date
	lock := &domain.WorkerLock{WorkerName: worker.Name, AircraftICAO: "7c68b7", Day: day}

	ok, err := pg.AcquireWorkerLock(ctx, lock)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	ok, err = pg.AcquireWorkerLock(ctx, lock)
	if err != nil {
		t.Fatalf("acquire lock again: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire for same (aircraft, day) to fail")
	}

	if err := pg.ReleaseWorkerLock(ctx, worker.Name, lock.AircraftICAO, lock.Day); err != nil {
		t.Fatalf("release lock: %v", err)
	}
}

package domain

import (
	"testing"
	"time"
)

func TestFlightPointHashStable(t *testing.T) {
	ts := time.Date(2022, 7, 29, 4, 15, 30, 0, time.UTC)
	lon, lat := 151.177, -33.946
	alt := AltitudeFeet(3500)

	h1 := FlightPointHash("7c68b7", ts, &lon, &lat, alt)
	h2 := FlightPointHash("7c68b7", ts, &lon, &lat, alt)
	if h1 != h2 {
		t.Fatalf("hash not stable across identical inputs: %s != %s", h1, h2)
	}
	if len(h1) != 32 {
		t.Fatalf("expected 128-bit hex hash (32 chars), got %d: %s", len(h1), h1)
	}
}

func TestFlightPointHashDiffersOnAltitude(t *testing.T) {
	ts := time.Date(2022, 7, 29, 4, 15, 30, 0, time.UTC)
	lon, lat := 151.177, -33.946

	h1 := FlightPointHash("7c68b7", ts, &lon, &lat, AltitudeFeet(3500))
	h2 := FlightPointHash("7c68b7", ts, &lon, &lat, AltitudeGround{})
	if h1 == h2 {
		t.Fatalf("expected different hashes for different altitudes")
	}
}

func TestFlightPointHashHandlesMissingPosition(t *testing.T) {
	ts := time.Date(2022, 7, 29, 4, 15, 30, 0, time.UTC)
	h := FlightPointHash("7c68b7", ts, nil, nil, AltitudeUnknown{})
	if h == "" {
		t.Fatal("expected non-empty hash even with no position")
	}
}

func TestDayFromTimestampTruncatesToUTCDate(t *testing.T) {
	ts := time.Date(2022, 7, 29, 23, 59, 59, 0, time.UTC)
	d := DayFromTimestamp(ts)
	if d.Date.Hour() != 0 || d.Date.Day() != 29 {
		t.Fatalf("expected truncated midnight UTC on the 29th, got %v", d.Date)
	}
}

func TestAircraftDayKeyOrdering(t *testing.T) {
	d1 := time.Date(2022, 7, 19, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2022, 7, 20, 0, 0, 0, 0, time.UTC)
	a := AircraftDayKey{ICAO: "7c68b7", Date: d1}
	b := AircraftDayKey{ICAO: "7c68b7", Date: d2}
	if !a.Less(b) {
		t.Fatal("expected earlier date to sort first for same icao")
	}
	c := AircraftDayKey{ICAO: "7c4ee8", Date: d1}
	if !c.Less(a) {
		t.Fatal("expected lexicographically earlier icao to sort first")
	}
}

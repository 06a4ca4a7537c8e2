package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aireyes/internal/domain"
)

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"ipv4 loopback with port", "127.0.0.1:54321", true},
		{"ipv6 loopback with port", "[::1]:54321", true},
		{"localhost no port", "localhost", true},
		{"remote ipv4", "203.0.113.5:443", false},
		{"bare non-loopback ip", "203.0.113.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLoopback(tt.addr); got != tt.want {
				t.Errorf("isLoopback(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestWorkersOnlyRejectsBadUserAgent(t *testing.T) {
	s := &Server{TrustedLoopbackOnly: true}
	h := s.workersOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/worker/targets", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-worker user-agent, got %d", rec.Code)
	}
}

func TestWorkersOnlyRejectsMissingUniqueID(t *testing.T) {
	s := &Server{TrustedLoopbackOnly: true}
	h := s.workersOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/worker/targets", nil)
	req.Header.Set("User-Agent", "aireyes/slave-radarsim")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for missing WorkerUniqueId, got %d", rec.Code)
	}
}

func TestWorkersOnlyLetsAuthenticateThrough(t *testing.T) {
	s := &Server{TrustedLoopbackOnly: true}
	called := false
	h := s.workersOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/worker/authenticate", nil)
	req.Header.Set("User-Agent", "aireyes/slave-radarsim")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("expected authenticate path to reach the handler without a WorkerUniqueId")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestDecodeAircraftOrListSingle(t *testing.T) {
	body := `{"icao":"7c6ca3","flightName":"QFA9"}`
	list, err := decodeAircraftOrList(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeAircraftOrList: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 aircraft, got %d", len(list))
	}
	if list[0].ICAO != "7c6ca3" {
		t.Errorf("expected icao 7c6ca3, got %q", list[0].ICAO)
	}
}

func TestDecodeAircraftOrListArray(t *testing.T) {
	body := `[{"icao":"7c6ca3"},{"icao":"7c1a23"}]`
	list, err := decodeAircraftOrList(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeAircraftOrList: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 aircraft, got %d", len(list))
	}
}

func TestDecodeAircraftOrListInvalid(t *testing.T) {
	if _, err := decodeAircraftOrList(strings.NewReader("not json")); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestWireFlightPointToDomain(t *testing.T) {
	lat, lon := -31.9505, 115.8605
	alt := 35000
	wp := wireFlightPoint{
		AircraftICAO: "7c6ca3",
		Timestamp:    1700000000,
		Latitude:     &lat,
		Longitude:    &lon,
		Altitude:     &alt,
		IsOnGround:   false,
	}
	p := wp.toDomain()
	if p.AircraftICAO != "7C6CA3" {
		t.Errorf("expected uppercased ICAO, got %q", p.AircraftICAO)
	}
	if !p.Geodetic.Valid {
		t.Error("expected a valid geodetic position")
	}
	if p.Geodetic.Latitude != lat || p.Geodetic.Longitude != lon {
		t.Errorf("unexpected position: %+v", p.Geodetic)
	}
}

func TestWireFlightPointToDomainNoPosition(t *testing.T) {
	wp := wireFlightPoint{AircraftICAO: "7c6ca3", Timestamp: 1700000000}
	p := wp.toDomain()
	if p.Geodetic.Valid {
		t.Error("expected an invalid geodetic position when lat/lon are absent")
	}
}

func TestWireAircraftToDomain(t *testing.T) {
	wa := wireAircraft{ICAO: "7c6ca3", FlightName: "QFA9", Year: 2015}
	a := wa.toDomain()
	if a.ICAO != "7C6CA3" {
		t.Errorf("expected uppercased ICAO, got %q", a.ICAO)
	}
	if a.FlightName != "QFA9" {
		t.Errorf("expected flight name QFA9, got %q", a.FlightName)
	}
}

func TestLatestFlight(t *testing.T) {
	now := time.Now().UTC()
	older := &domain.Flight{LastPointTimestamp: now.Add(-time.Hour)}
	newer := &domain.Flight{LastPointTimestamp: now}
	if got := latestFlight([]*domain.Flight{older, newer}); got != newer {
		t.Error("expected the flight with the latest LastPointTimestamp")
	}
	if got := latestFlight(nil); got != nil {
		t.Error("expected nil for an empty flight list")
	}
}

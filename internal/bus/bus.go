// Package bus fans out realtime aircraft and worker lifecycle events over
// NATS subjects, standing in for the SocketIO transport spec.md §6
// describes: only the event names and payload shapes are specified there
// (aircraft-update, aircraft-landed, aircraft-summary), and NATS subjects
// carry the same payloads durably and replayably, per SPEC_FULL.md §4.7.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"aireyes/internal/domain"

	"github.com/nats-io/nats.go"
)

// Event names mirrored from spec.md §6's SocketIO event table.
const (
	EventAircraftUpdate  = "aircraft-update"
	EventAircraftLanded  = "aircraft-landed"
	EventAircraftSummary = "aircraft-summary"
)

// Bus wraps a NATS connection for the subject trees aireyesd publishes and
// subscribes to.
type Bus struct {
	conn *nats.Conn
}

// Connect dials the NATS server at url, mirroring the connection-options
// shape (retry, timeouts) the nats.go client exposes.
func Connect(url string) (*Bus, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &Bus{conn: conn}, nil
}

func (b *Bus) Close() {
	b.conn.Close()
}

// AircraftSubject is the per-aircraft position/lifecycle subject:
// aircraft.<icao>.<event>.
func AircraftSubject(icao, event string) string {
	return fmt.Sprintf("aircraft.%s.%s", icao, event)
}

// WorkerSubject is the per-worker signal subject:
// aireyes.worker.<name>.<signal>.
func WorkerSubject(name, signal string) string {
	return fmt.Sprintf("aireyes.worker.%s.%s", name, signal)
}

// AircraftUpdatePayload is published on every committed FlightPoint batch,
// the wire shape a websocket/long-poll bridge (C9) would forward verbatim
// as an "aircraft-update" SocketIO event.
type AircraftUpdatePayload struct {
	AircraftICAO string    `json:"aircraft_icao"`
	Timestamp    time.Time `json:"timestamp"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	AltitudeFeet *int      `json:"altitude_feet,omitempty"`
	OnGround     bool      `json:"on_ground"`
	SuburbHash   string    `json:"suburb_hash,omitempty"`
}

// PublishAircraftUpdate publishes one live position update.
func (b *Bus) PublishAircraftUpdate(p *domain.FlightPoint) error {
	payload := AircraftUpdatePayload{
		AircraftICAO: p.AircraftICAO,
		Timestamp:    p.Timestamp,
		OnGround:     p.IsOnGround,
		SuburbHash:   p.SuburbHash,
	}
	if p.Geodetic.Valid {
		payload.Latitude = &p.Geodetic.Latitude
		payload.Longitude = &p.Geodetic.Longitude
	}
	if feet, ok := domain.AltitudeFeetValue(p.Altitude); ok {
		payload.AltitudeFeet = &feet
	}
	return b.publishJSON(AircraftSubject(p.AircraftICAO, EventAircraftUpdate), payload)
}

// AircraftLandedPayload announces a Flight transitioning to landed/on-ground
// state, for a client map to stop animating that aircraft.
type AircraftLandedPayload struct {
	AircraftICAO       string `json:"aircraft_icao"`
	FlightHash         string `json:"flight_hash"`
	LandingAirportHash string `json:"landing_airport_hash,omitempty"`
}

func (b *Bus) PublishAircraftLanded(p AircraftLandedPayload) error {
	return b.publishJSON(AircraftSubject(p.AircraftICAO, EventAircraftLanded), p)
}

// AircraftSummaryPayload summarises one Flight for the aircraft-summary
// subject. PublishAircraftSummary sends it; the orchestrator does not call
// it after assimilation.
type AircraftSummaryPayload struct {
	AircraftICAO   string   `json:"aircraft_icao"`
	FlightHash     string   `json:"flight_hash"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	TotalMinutes   *int     `json:"total_minutes,omitempty"`
	TotalCO2Kg     *float64 `json:"total_co2_kg,omitempty"`
}

func AircraftSummaryFromFlight(f *domain.Flight) AircraftSummaryPayload {
	return AircraftSummaryPayload{
		AircraftICAO:   f.AircraftICAO,
		FlightHash:     f.Hash,
		DistanceMeters: f.DistanceMeters,
		TotalMinutes:   f.TotalMinutes,
		TotalCO2Kg:     f.TotalCO2Kg,
	}
}

func (b *Bus) PublishAircraftSummary(p AircraftSummaryPayload) error {
	return b.publishJSON(AircraftSubject(p.AircraftICAO, EventAircraftSummary), p)
}

// WorkerSignalPayload is published for every lifecycle signal a worker
// sends or the coordinator forces (spec.md §4.7's transition table).
type WorkerSignalPayload struct {
	WorkerName string    `json:"worker_name"`
	Signal     string    `json:"signal"`
	Timestamp  time.Time `json:"timestamp"`
	Reason     string    `json:"reason,omitempty"`
}

func (b *Bus) PublishWorkerSignal(p WorkerSignalPayload) error {
	return b.publishJSON(WorkerSubject(p.WorkerName, p.Signal), p)
}

func (b *Bus) publishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", subject, err)
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// SubscribeAircraftUpdates subscribes to every aircraft's update subject
// via a wildcard, avoiding per-aircraft subscriptions. No package in the
// module subscribes through it.
func (b *Bus) SubscribeAircraftUpdates(handler func(AircraftUpdatePayload)) (*nats.Subscription, error) {
	subject := fmt.Sprintf("aircraft.*.%s", EventAircraftUpdate)
	return b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var payload AircraftUpdatePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		handler(payload)
	})
}

// Package api implements the worker-facing half of external interfaces
// (spec.md §6): the HTTP surface a radar worker process (cmd/radarsim)
// calls to authenticate, push live points, report timeouts, submit trawled
// history, and signal its own lifecycle. Adapted from
// _examples/plane-watch-acars-parser/internal/api/enrichment.go's chi
// router/CORS/auth-middleware shape; the authentication scheme itself is
// grounded on original_source/webapp/app/decorators.py's workers_only: a
// loopback-only source address plus a "aireyes/slave" user-agent prefix,
// adapted from Flask-Login session identity to a stateless WorkerUniqueId
// header since this server keeps no session state.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"aireyes/internal/bus"
	"aireyes/internal/coordinator"
	"aireyes/internal/domain"
	"aireyes/internal/logging"
	"aireyes/internal/orchestrator"
	"aireyes/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves the worker ingestion API.
type Server struct {
	PG           *store.PostgresDB
	Orchestrator *orchestrator.Orchestrator
	Coordinator  *coordinator.Coordinator
	Bus          *bus.Bus
	Log          *logging.Logger

	// TrustedLoopbackOnly disables the remote-address check in tests that
	// exercise handlers directly via httptest, which report a non-loopback
	// RemoteAddr by default.
	TrustedLoopbackOnly bool
}

var workerUserAgentPrefix = regexp.MustCompile(`^aireyes/slave`)

// Router returns the configured chi router for mounting under cmd/aireyesd.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/worker", func(r chi.Router) {
		r.Use(s.workersOnly)
		r.Post("/authenticate", s.handleAuthenticate)
		r.Get("/master", s.handleMaster)
		r.Get("/targets", s.handleTargets)
		r.Post("/aircraft", s.handleAircraft)
		r.Post("/aircraft/{icao}/timeout", s.handleTimeout)
		r.Post("/trace", s.handleTrace)
		r.Post("/update/{signal}", s.handleUpdateSignal)
		r.Post("/error", s.handleError)
	})
	return r
}

// workersOnly implements spec.md §6 and §7's RadarWorkerRequired gate:
// deliberately opaque 404 for requests that don't even look like a worker
// (bad user-agent or non-loopback source), 403 for a loopback, agent-shaped
// request that fails identity resolution.
func (s *Server) workersOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !workerUserAgentPrefix.MatchString(r.Header.Get("User-Agent")) {
			http.NotFound(w, r)
			return
		}
		if !s.TrustedLoopbackOnly && !isLoopback(r.RemoteAddr) {
			http.NotFound(w, r)
			return
		}

		if r.URL.Path == "/api/worker/authenticate" {
			next.ServeHTTP(w, r)
			return
		}

		uniqueID := r.Header.Get("WorkerUniqueId")
		if uniqueID == "" {
			writeError(w, http.StatusForbidden, (&domain.RadarWorkerRequired{Reason: "missing-worker-unique-id"}).Error())
			return
		}
		worker, ok, err := s.findWorkerByUniqueID(r.Context(), uniqueID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, (&domain.RadarWorkerRequired{Reason: "unknown-worker"}).Error())
			return
		}
		now := time.Now()
		worker.LastUpdate = &now
		if err := s.PG.UpsertWorker(r.Context(), worker); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), workerContextKey{}, worker)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type workerContextKey struct{}

func workerFromContext(r *http.Request) *domain.Worker {
	w, _ := r.Context().Value(workerContextKey{}).(*domain.Worker)
	return w
}

func (s *Server) findWorkerByUniqueID(ctx context.Context, uniqueID string) (*domain.Worker, bool, error) {
	workers, err := s.PG.ListWorkers(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, w := range workers {
		if w.UniqueID == uniqueID {
			return w, true, nil
		}
	}
	return nil, false, nil
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return host == "localhost"
	}
	return ip.IsLoopback()
}

// authenticateRequest is POST /api/worker/authenticate's body.
type authenticateRequest struct {
	WorkerName     string `json:"workerName"`
	WorkerUniqueID string `json:"workerUniqueId"`
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	worker, ok, err := s.findWorkerByUniqueID(r.Context(), req.WorkerUniqueID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusForbidden, (&domain.RadarWorkerRequired{Reason: "no-worker"}).Error())
		return
	}
	if err := worker.Initialise(time.Now()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.PG.UpsertWorker(r.Context(), worker); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) handleMaster(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

// targetVehicle is one entry of GET /api/worker/targets's response.
type targetVehicle struct {
	ICAO        string `json:"icao"`
	Name        string `json:"name"`
	AirportCode string `json:"airportCode,omitempty"`
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	aircraft, err := s.PG.ListAircraft(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	targets := make([]targetVehicle, 0, len(aircraft))
	for _, a := range aircraft {
		targets = append(targets, targetVehicle{ICAO: a.ICAO, Name: a.FlightName, AirportCode: a.AirportCode})
	}
	writeJSON(w, http.StatusOK, targets)
}

// wireFlightPoint is the FlightPoint JSON shape spec.md §6 specifies.
type wireFlightPoint struct {
	FlightPointHash string   `json:"flightPointHash"`
	AircraftICAO    string   `json:"AircraftIcao"`
	Timestamp       int64    `json:"timestamp"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Altitude        *int     `json:"altitude,omitempty"`
	GroundSpeed     *float64 `json:"groundSpeed,omitempty"`
	Rotation        *float64 `json:"rotation,omitempty"`
	VerticalRate    *float64 `json:"verticalRate,omitempty"`
	IsOnGround      bool     `json:"isOnGround"`
	IsAscending     bool     `json:"isAscending"`
	IsDescending    bool     `json:"isDescending"`
	DataSource      string   `json:"dataSource,omitempty"`
}

func (wp wireFlightPoint) toDomain() *domain.FlightPoint {
	ts := time.Unix(wp.Timestamp, 0).UTC()
	geo := domain.GeodeticPosition{}
	if wp.Latitude != nil && wp.Longitude != nil {
		geo = domain.GeodeticPosition{Valid: true, Longitude: *wp.Longitude, Latitude: *wp.Latitude}
	}
	point := domain.NewFlightPoint(strings.ToUpper(wp.AircraftICAO), ts, geo, domain.AltitudeFromRaw(wp.Altitude))
	point.GroundSpeedKnots = wp.GroundSpeed
	point.TrackDegrees = wp.Rotation
	point.VerticalRateFPM = wp.VerticalRate
	point.DataSource = wp.DataSource
	point.IsOnGround = wp.IsOnGround
	point.IsAscending = wp.IsAscending
	point.IsDescending = wp.IsDescending
	return point
}

// wireAircraft is the Aircraft JSON shape spec.md §6 specifies.
type wireAircraft struct {
	ICAO          string            `json:"icao"`
	Type          string            `json:"type"`
	FlightName    string            `json:"flightName"`
	Registration  string            `json:"registration"`
	Description   string            `json:"description"`
	Year          int               `json:"year"`
	OwnerOperator string            `json:"ownerOperator"`
	Image         string            `json:"image,omitempty"`
	AirportCode   string            `json:"airportCode,omitempty"`
	FlightPoints  []wireFlightPoint `json:"FlightPoints"`
}

func (wa wireAircraft) toDomain() *domain.Aircraft {
	a := domain.NewAircraft(strings.ToUpper(wa.ICAO), wa.Type, wa.FlightName, wa.Registration, wa.Description, wa.Year, wa.OwnerOperator)
	a.Image = wa.Image
	a.AirportCode = wa.AirportCode
	return a
}

type pointAck struct {
	FlightPointHash string `json:"flightPointHash"`
	Synchronised    bool   `json:"synchronised"`
}

// handleAircraft implements POST /api/worker/aircraft: either a single
// Aircraft object or a list of them, each carrying a live batch of
// FlightPoints. Grounded on airvehicles.py's aircraft() route.
func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	aircraftList, err := decodeAircraftOrList(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, (&domain.SchemaValidationFail{SchemaTypeName: "aircraftschema"}).Error()+": "+err.Error())
		return
	}

	receipts := make(map[string][]pointAck, len(aircraftList))
	for _, wa := range aircraftList {
		aircraft := wa.toDomain()
		if err := s.PG.UpsertAircraft(r.Context(), aircraft); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		pointsByDay := map[time.Time][]*domain.FlightPoint{}
		for _, wp := range wa.FlightPoints {
			p := wp.toDomain()
			pointsByDay[p.Day] = append(pointsByDay[p.Day], p)
		}

		var acks []pointAck
		for day, points := range pointsByDay {
			if err := s.Orchestrator.SubmitPartial(r.Context(), aircraft, day, points); err != nil {
				s.Log.Warnf("submit partial for %s on %s failed: %v", aircraft.ICAO, day.Format("2006-01-02"), err)
			}
			for _, p := range points {
				acks = append(acks, pointAck{FlightPointHash: p.Hash, Synchronised: true})
			}
		}
		receipts[aircraft.ICAO] = acks

		if s.Bus != nil && len(wa.FlightPoints) > 0 {
			last := wa.FlightPoints[len(wa.FlightPoints)-1].toDomain()
			_ = s.Bus.PublishAircraftUpdate(last)
		}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// decodeAircraftOrList accepts either a single Aircraft object or a JSON
// array of them, per airvehicles.py's aircraft() route, which makes the
// same accommodation.
func decodeAircraftOrList(body io.Reader) ([]wireAircraft, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []wireAircraft
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var single wireAircraft
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []wireAircraft{single}, nil
}

// timeoutReport is POST /api/worker/aircraft/{icao}/timeout's body.
type timeoutReport struct {
	AircraftICAO                string `json:"aircraftIcao"`
	LastBinaryUpdate            int64  `json:"lastBinaryUpdate"`
	CurrentConfigAircraftTimeout int   `json:"currentConfigAircraftTimeout"`
	TimeOfReport                int64  `json:"timeOfReport"`
}

type timeoutResponse struct {
	Determination string `json:"determination"`
}

// handleTimeout implements POST /api/worker/aircraft/{icao}/timeout,
// grounded on airvehicles.py's aircraft_timeout_reported: a landing if the
// aircraft's latest Flight carries arrival details, otherwise a hold
// instruction.
func (s *Server) handleTimeout(w http.ResponseWriter, r *http.Request) {
	icao := strings.ToUpper(chi.URLParam(r, "icao"))
	var report timeoutReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	flights, err := s.PG.ListFlightsForAircraft(r.Context(), icao)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	determination := "hold"
	if latest := latestFlight(flights); latest != nil && latest.HasArrivalDetails {
		determination = "landing"
		if s.Bus != nil {
			_ = s.Bus.PublishAircraftLanded(bus.AircraftLandedPayload{
				AircraftICAO: icao, FlightHash: latest.Hash, LandingAirportHash: latest.LandingAirportHash,
			})
		}
	}
	writeJSON(w, http.StatusOK, timeoutResponse{Determination: determination})
}

func latestFlight(flights []*domain.Flight) *domain.Flight {
	var latest *domain.Flight
	for _, f := range flights {
		if latest == nil || f.LastPointTimestamp.After(latest.LastPointTimestamp) {
			latest = f
		}
	}
	return latest
}

// traceRequest is POST /api/worker/trace's body: either a trawled history
// submission or an empty "requesting work" poll when intentionallyEmpty is
// set. Grounded on traces.py's AircraftDayTraceHistorySchema.
type traceRequest struct {
	Day                time.Time    `json:"day"`
	Aircraft           wireAircraft `json:"aircraft"`
	IntentionallyEmpty bool         `json:"intentionallyEmpty"`
}

type traceTarget struct {
	ICAO string `json:"icao"`
	Day  string `json:"day"`
}

type traceResponse struct {
	Command               string       `json:"command"`
	Receipts               []pointAck  `json:"receipts"`
	RequestedTraceHistory  *traceTarget `json:"requestedTraceHistory,omitempty"`
}

// handleTrace implements POST /api/worker/trace: completes the current
// history-trawl assignment (unless intentionallyEmpty), then assigns the
// next one, or instructs the worker to shut down when none remain.
// Grounded on routes.py's trace() and traces.py's
// assign_trace_history_work/aircraft_trace_history_submitted.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r)
	if worker == nil {
		writeError(w, http.StatusForbidden, (&domain.RadarWorkerRequired{Reason: "no-worker"}).Error())
		return
	}

	var req traceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var receipts []pointAck
	if !req.IntentionallyEmpty {
		aircraft := req.Aircraft.toDomain()
		points := make([]*domain.FlightPoint, 0, len(req.Aircraft.FlightPoints))
		for _, wp := range req.Aircraft.FlightPoints {
			points = append(points, wp.toDomain())
		}
		if err := s.PG.UpsertAircraft(r.Context(), aircraft); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := s.Coordinator.CompleteTraceHistoryWork(r.Context(), worker.Name, aircraft, req.Day, points); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, p := range points {
			receipts = append(receipts, pointAck{FlightPointHash: p.Hash, Synchronised: true})
		}
	}

	resp := traceResponse{Receipts: receipts}
	icao, day, err := s.Coordinator.AssignTraceHistoryWork(r.Context(), worker.Name)
	if err != nil {
		if _, ok := err.(*domain.NoAssignableWorkLeft); ok {
			resp.Command = "shutdown"
			writeJSON(w, http.StatusOK, resp)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.Command = "trawl"
	resp.RequestedTraceHistory = &traceTarget{ICAO: icao, Day: day.Format("2006-01-02")}
	writeJSON(w, http.StatusOK, resp)
}

// handleUpdateSignal implements POST /api/worker/update/{signal}, grounded
// on radarworker.py's worker_signal_received.
func (s *Server) handleUpdateSignal(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r)
	if worker == nil {
		writeError(w, http.StatusForbidden, (&domain.RadarWorkerRequired{Reason: "no-worker"}).Error())
		return
	}
	signal := chi.URLParam(r, "signal")
	if err := worker.HandleSignal(signal, time.Now()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.PG.UpsertWorker(r.Context(), worker); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.Bus != nil {
		_ = s.Bus.PublishWorkerSignal(bus.WorkerSignalPayload{WorkerName: worker.Name, Signal: signal, Timestamp: time.Now()})
	}
	writeText(w, http.StatusOK, "OK")
}

// errorReport is POST /api/worker/error's body.
type errorReport struct {
	ErrorCode          string `json:"errorCode"`
	FriendlyDescription string `json:"friendlyDescription,omitempty"`
	StackTrace         string `json:"stackTrace,omitempty"`
	ExtraInformation   string `json:"extraInformation,omitempty"`
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r)
	if worker == nil {
		writeError(w, http.StatusForbidden, (&domain.RadarWorkerRequired{Reason: "no-worker"}).Error())
		return
	}
	var report errorReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	payload, _ := json.Marshal(report)
	worker.ErrorJSON = string(payload)
	if err := s.PG.UpsertWorker(r.Context(), worker); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.Log.Errorf("worker %s reported error %s: %s", worker.Name, report.ErrorCode, report.FriendlyDescription)
	writeText(w, http.StatusOK, "OK")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

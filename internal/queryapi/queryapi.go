// Package queryapi implements C9, the Query/View Surface: per-aircraft
// flight summaries, fleet totals, and view-box suburb GeoJSON for the map
// front-end. Grounded on
// _examples/plane-watch-acars-parser/internal/api/enrichment.go's chi
// router/middleware shape, adapting
// _examples/plane-watch-acars-parser/internal/review/server.go's
// dual-backend-combining (ClickHouse + Postgres) pattern to this domain's
// Postgres (entities) + ClickHouse (points) split.
package queryapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aireyes/internal/domain"
	"aireyes/internal/store"
	"aireyes/internal/store/chpoints"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Server serves the read-only query/view API.
type Server struct {
	PG     *store.PostgresDB
	Points *chpoints.DB

	// suburbs is an immutable snapshot loaded at startup; view-box queries
	// are read-mostly and cheap enough to hold entirely in memory, the same
	// call DESIGN.md records for the Geospatial Locator's SuburbIndex.
	suburbs []*domain.Suburb
}

func NewServer(pg *store.PostgresDB, points *chpoints.DB, suburbs []*domain.Suburb) *Server {
	return &Server{PG: pg, Points: points, suburbs: suburbs}
}

// Router returns the configured chi router for mounting under cmd/aireyesd.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handleHealth)
		r.Get("/aircraft/{icao}/summary", s.handleAircraftSummary)
		r.Get("/aircraft/{icao}/flights", s.handleAircraftFlights)
		r.Get("/flights/{hash}", s.handleFlight)
		r.Get("/suburbs/viewbox", s.handleSuburbsViewbox)
		r.Get("/totals", s.handleTotals)
	})
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// FlightSummary is the JSON shape of one Flight in a summary response,
// formatting figures with go-humanize the way a dashboard front-end wants
// them rendered directly (distance in km, a human-readable duration).
type FlightSummary struct {
	Hash               string  `json:"hash"`
	TakeoffAirportHash string  `json:"takeoff_airport_hash,omitempty"`
	LandingAirportHash string  `json:"landing_airport_hash,omitempty"`
	FirstPointTimestamp string `json:"first_point_timestamp"`
	LastPointTimestamp  string `json:"last_point_timestamp"`
	DistanceKm         string  `json:"distance_km,omitempty"`
	TotalMinutes       int     `json:"total_minutes,omitempty"`
	DaysAcross         int     `json:"days_across"`
	TaxiOnly           bool    `json:"taxi_only"`
	IsOnGround         bool    `json:"is_on_ground"`
}

func flightToSummary(f *domain.Flight) FlightSummary {
	s := FlightSummary{
		Hash:                f.Hash,
		TakeoffAirportHash:  f.TakeoffAirportHash,
		LandingAirportHash:  f.LandingAirportHash,
		FirstPointTimestamp: f.FirstPointTimestamp.Format(time.RFC3339),
		LastPointTimestamp:  f.LastPointTimestamp.Format(time.RFC3339),
		DaysAcross:          f.DaysAcross(),
		TaxiOnly:            f.TaxiOnly,
		IsOnGround:          f.IsOnGround,
	}
	if f.DistanceMeters != nil {
		s.DistanceKm = humanize.Commaf(*f.DistanceMeters / 1000)
	}
	if f.TotalMinutes != nil {
		s.TotalMinutes = *f.TotalMinutes
	}
	return s
}

func (s *Server) handleAircraftFlights(w http.ResponseWriter, r *http.Request) {
	icao := strings.ToLower(chi.URLParam(r, "icao"))
	if icao == "" {
		writeError(w, http.StatusBadRequest, "icao is required")
		return
	}
	flights, err := s.PG.ListFlightsForAircraft(r.Context(), icao)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summaries := make([]FlightSummary, 0, len(flights))
	for _, f := range flights {
		summaries = append(summaries, flightToSummary(f))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleFlight(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	flight, ok, err := s.PG.GetFlight(r.Context(), hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	writeJSON(w, http.StatusOK, flightToSummary(flight))
}

// AircraftSummary aggregates a fleet aircraft's recorded flights into
// fleet-dashboard totals: flight count, cumulative distance and cumulative
// CO2, each formatted for direct display.
type AircraftSummary struct {
	ICAO             string `json:"icao"`
	FlightCount      int    `json:"flight_count"`
	TotalDistanceKm  string `json:"total_distance_km"`
	TotalCO2Kg       string `json:"total_co2_kg"`
	LastFlightEnded  string `json:"last_flight_ended,omitempty"`
}

func (s *Server) handleAircraftSummary(w http.ResponseWriter, r *http.Request) {
	icao := strings.ToLower(chi.URLParam(r, "icao"))
	flights, err := s.PG.ListFlightsForAircraft(r.Context(), icao)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summary := AircraftSummary{ICAO: icao, FlightCount: len(flights)}
	var totalDistance, totalCO2 float64
	var lastEnded time.Time
	for _, f := range flights {
		if f.DistanceMeters != nil {
			totalDistance += *f.DistanceMeters
		}
		if f.TotalCO2Kg != nil {
			totalCO2 += *f.TotalCO2Kg
		}
		if f.LastPointTimestamp.After(lastEnded) {
			lastEnded = f.LastPointTimestamp
		}
	}
	summary.TotalDistanceKm = humanize.Commaf(totalDistance / 1000)
	summary.TotalCO2Kg = humanize.Commaf(totalCO2)
	if !lastEnded.IsZero() {
		summary.LastFlightEnded = humanize.Time(lastEnded)
	}
	writeJSON(w, http.StatusOK, summary)
}

// Totals aggregates figures across every tracked aircraft's recorded
// flights. Kept deliberately simple (one pass over every flight, no
// caching) since the fleet size spec.md's scale implies stays small enough
// for this to be cheap; a materialized-totals table is the natural next
// step if it isn't.
type Totals struct {
	AircraftCount   int    `json:"aircraft_count"`
	FlightCount     int    `json:"flight_count"`
	TotalDistanceKm string `json:"total_distance_km"`
	TotalCO2Kg      string `json:"total_co2_kg"`
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	aircraft, err := s.PG.ListAircraft(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totals := Totals{AircraftCount: len(aircraft)}
	var totalDistance, totalCO2 float64
	for _, a := range aircraft {
		flights, err := s.PG.ListFlightsForAircraft(r.Context(), a.ICAO)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		totals.FlightCount += len(flights)
		for _, f := range flights {
			if f.DistanceMeters != nil {
				totalDistance += *f.DistanceMeters
			}
			if f.TotalCO2Kg != nil {
				totalCO2 += *f.TotalCO2Kg
			}
		}
	}
	totals.TotalDistanceKm = humanize.Commaf(totalDistance / 1000)
	totals.TotalCO2Kg = humanize.Commaf(totalCO2)
	writeJSON(w, http.StatusOK, totals)
}

// handleSuburbsViewbox returns every Suburb whose bounding box intersects
// the requested projected-CRS view box, as a GeoJSON FeatureCollection for
// direct consumption by a map front-end. Each feature's properties.num_points
// is the count of FlightPoints recorded in that suburb, restricted to the
// "aircraft" query parameter (all|none|csv-of-flight-names), matching
// _examples/original_source/webapp/app/geospatial.py's
// SuburbsToGeoJson._build_properties_for/_get_num_flight_points.
func (s *Server) handleSuburbsViewbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minx, err1 := strconv.ParseFloat(q.Get("minx"), 64)
	miny, err2 := strconv.ParseFloat(q.Get("miny"), 64)
	maxx, err3 := strconv.ParseFloat(q.Get("maxx"), 64)
	maxy, err4 := strconv.ParseFloat(q.Get("maxy"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		writeError(w, http.StatusBadRequest, "minx, miny, maxx, maxy are required numeric query parameters")
		return
	}
	box := domain.BoundingBox{MinX: minx, MinY: miny, MaxX: maxx, MaxY: maxy}

	icaos, err := s.resolveAircraftFilter(r.Context(), q.Get("aircraft"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	counts := map[string]int{}
	if s.Points != nil && (icaos == nil || len(icaos) > 0) {
		counts, err = s.Points.CountPointsBySuburb(r.Context(), icaos)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	fc := geojson.NewFeatureCollection()
	for _, suburb := range s.suburbs {
		if !suburb.BoundingBox.Intersects(box) {
			continue
		}
		f := geojson.NewFeature(orb.Geometry(suburb.MultiPolygon))
		f.Properties = geojson.Properties{
			"hash":       suburb.Hash,
			"name":       suburb.Name,
			"state":      suburb.State.String(),
			"neighbours": suburb.Neighbours,
			"num_points": counts[suburb.Hash],
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// resolveAircraftFilter turns the "aircraft" query parameter into the set of
// ICAOs handleSuburbsViewbox should restrict its point counts to: nil for
// "all" (or the parameter being absent, matching the original's default),
// an empty non-nil slice for "none", and the ICAOs whose FlightName appears
// in the comma-separated list otherwise.
func (s *Server) resolveAircraftFilter(ctx context.Context, raw string) ([]string, error) {
	switch raw {
	case "", "all":
		return nil, nil
	case "none":
		return []string{}, nil
	}

	requested := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			requested[name] = true
		}
	}
	if len(requested) == 0 {
		return []string{}, nil
	}

	aircraft, err := s.PG.ListAircraft(ctx)
	if err != nil {
		return nil, err
	}
	icaos := make([]string, 0, len(requested))
	for _, a := range aircraft {
		if requested[a.FlightName] {
			icaos = append(icaos, a.ICAO)
		}
	}
	return icaos, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Package store implements C1's relational half: durable Postgres storage
// for Aircraft, Flight, Airport, Suburb, Day, AircraftPresentDay, Worker and
// WorkerLock. Grounded on
// _examples/plane-watch-acars-parser/internal/storage/postgres.go's
// OpenPostgres/CreateSchema/upsert idiom.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"aireyes/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// PostgresDB wraps a pgxpool.Pool the way storage.PostgresDB does.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres dials Postgres and configures the pool, mirroring
// storage.OpenPostgres's MaxConns/MinConns/MaxConnLifetime tuning.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	db.pool.Close()
}

// CreateSchema creates every relational table spec.md §3/§6 names, plus the
// indexes spec.md §6 requires explicitly.
func (db *PostgresDB) CreateSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS aircraft (
	icao TEXT PRIMARY KEY,
	type TEXT,
	flight_name TEXT,
	registration TEXT,
	description TEXT,
	year INT,
	owner_operator TEXT,
	top_speed DOUBLE PRECISION,
	image TEXT,
	airport_code TEXT,
	fuel_type TEXT,
	fuel_gallons_per_hour DOUBLE PRECISION,
	fuel_capacity_gallons DOUBLE PRECISION,
	fuel_range_nm DOUBLE PRECISION,
	fuel_endurance_hours DOUBLE PRECISION,
	fuel_passenger_load INT,
	fuel_co2_per_gram DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS days (
	day_date DATE PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS aircraft_present_day (
	aircraft_icao TEXT NOT NULL REFERENCES aircraft(icao),
	day_date DATE NOT NULL REFERENCES days(day_date),
	history_verified BOOLEAN NOT NULL DEFAULT FALSE,
	flights_verified BOOLEAN NOT NULL DEFAULT FALSE,
	geolocation_verified BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (aircraft_icao, day_date)
);

CREATE TABLE IF NOT EXISTS flights (
	flight_hash TEXT PRIMARY KEY,
	aircraft_icao TEXT NOT NULL REFERENCES aircraft(icao),
	takeoff_airport_hash TEXT,
	landing_airport_hash TEXT,
	first_point_ts TIMESTAMPTZ,
	last_point_ts TIMESTAMPTZ,
	distance_meters DOUBLE PRECISION,
	fuel_gallons DOUBLE PRECISION,
	average_speed_knots DOUBLE PRECISION,
	average_altitude_ft DOUBLE PRECISION,
	total_minutes INT,
	prohibited_minutes INT,
	total_co2_kg DOUBLE PRECISION,
	has_departure_details BOOLEAN NOT NULL DEFAULT FALSE,
	has_arrival_details BOOLEAN NOT NULL DEFAULT FALSE,
	taxi_only BOOLEAN NOT NULL DEFAULT FALSE,
	is_on_ground BOOLEAN NOT NULL DEFAULT FALSE,
	inaccuracy_reason_code TEXT
);
CREATE INDEX IF NOT EXISTS idx_flights_aircraft ON flights(aircraft_icao);

CREATE TABLE IF NOT EXISTS airports (
	airport_hash TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	polygon_wkt TEXT NOT NULL,
	utm_epsg_zones INT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS states (
	state_code TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS suburbs (
	suburb_hash TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	postcode TEXT,
	state_code TEXT REFERENCES states(state_code),
	multi_polygon_wkt TEXT NOT NULL,
	bbox_minx DOUBLE PRECISION,
	bbox_miny DOUBLE PRECISION,
	bbox_maxx DOUBLE PRECISION,
	bbox_maxy DOUBLE PRECISION,
	utm_epsg_zones INT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS suburb_neighbours (
	suburb_hash TEXT NOT NULL REFERENCES suburbs(suburb_hash),
	neighbour_hash TEXT NOT NULL REFERENCES suburbs(suburb_hash),
	PRIMARY KEY (suburb_hash, neighbour_hash)
);

CREATE TABLE IF NOT EXISTS workers (
	name TEXT PRIMARY KEY,
	unique_id TEXT NOT NULL,
	worker_type TEXT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	phone_home_url TEXT,
	proxy_url TEXT,
	pid INT,
	multiple_assignments_allowed BOOLEAN NOT NULL DEFAULT FALSE,
	running BOOLEAN NOT NULL DEFAULT FALSE,
	executed_at TIMESTAMPTZ,
	shutdown_at TIMESTAMPTZ,
	initialising BOOLEAN NOT NULL DEFAULT FALSE,
	init_started_at TIMESTAMPTZ,
	last_update TIMESTAMPTZ,
	error_json TEXT
);

CREATE TABLE IF NOT EXISTS worker_locks (
	worker_name TEXT NOT NULL REFERENCES workers(name),
	aircraft_icao TEXT NOT NULL,
	day_date DATE NOT NULL,
	PRIMARY KEY (aircraft_icao, day_date)
);
`)
	if err != nil {
		return fmt.Errorf("create postgres schema: %w", err)
	}
	return nil
}

// UpsertAircraft inserts or updates an Aircraft row, using the
// ON CONFLICT ... DO UPDATE idiom storage.UpsertAircraft/UpsertFlightEnrichment
// establish, preferring COALESCE(EXCLUDED.x, table.x) for nullable refresh
// fields so a partial update never clobbers existing fuel data with nulls.
func (db *PostgresDB) UpsertAircraft(ctx context.Context, a *domain.Aircraft) error {
	var fuelType, fuelGPH, fuelCap, fuelRange, fuelEnd, fuelPax, fuelCO2 any
	if a.Fuel != nil {
		fuelType, fuelGPH, fuelCap, fuelRange, fuelEnd, fuelPax, fuelCO2 =
			a.Fuel.FuelType, a.Fuel.GallonsPerHour, a.Fuel.CapacityGallons, a.Fuel.RangeNM, a.Fuel.EnduranceHours, a.Fuel.PassengerLoad, a.Fuel.CO2PerGram
	}
	_, err := db.pool.Exec(ctx, `
INSERT INTO aircraft (icao, type, flight_name, registration, description, year, owner_operator, top_speed, image, airport_code,
	fuel_type, fuel_gallons_per_hour, fuel_capacity_gallons, fuel_range_nm, fuel_endurance_hours, fuel_passenger_load, fuel_co2_per_gram)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (icao) DO UPDATE SET
	type = EXCLUDED.type,
	flight_name = EXCLUDED.flight_name,
	registration = EXCLUDED.registration,
	description = EXCLUDED.description,
	year = EXCLUDED.year,
	owner_operator = EXCLUDED.owner_operator,
	top_speed = COALESCE(EXCLUDED.top_speed, aircraft.top_speed),
	image = COALESCE(NULLIF(EXCLUDED.image, ''), aircraft.image),
	airport_code = COALESCE(NULLIF(EXCLUDED.airport_code, ''), aircraft.airport_code),
	fuel_type = COALESCE(EXCLUDED.fuel_type, aircraft.fuel_type),
	fuel_gallons_per_hour = COALESCE(EXCLUDED.fuel_gallons_per_hour, aircraft.fuel_gallons_per_hour),
	fuel_capacity_gallons = COALESCE(EXCLUDED.fuel_capacity_gallons, aircraft.fuel_capacity_gallons),
	fuel_range_nm = COALESCE(EXCLUDED.fuel_range_nm, aircraft.fuel_range_nm),
	fuel_endurance_hours = COALESCE(EXCLUDED.fuel_endurance_hours, aircraft.fuel_endurance_hours),
	fuel_passenger_load = COALESCE(EXCLUDED.fuel_passenger_load, aircraft.fuel_passenger_load),
	fuel_co2_per_gram = COALESCE(EXCLUDED.fuel_co2_per_gram, aircraft.fuel_co2_per_gram)
`, a.ICAO, a.Type, a.FlightName, a.Registration, a.Description, a.Year, a.OwnerOperator, a.TopSpeed, a.Image, a.AirportCode,
		fuelType, fuelGPH, fuelCap, fuelRange, fuelEnd, fuelPax, fuelCO2)
	if err != nil {
		return fmt.Errorf("upsert aircraft %s: %w", a.ICAO, err)
	}
	return nil
}

// GetAircraft loads one Aircraft by ICAO address, returning ok=false if it
// doesn't exist.
func (db *PostgresDB) GetAircraft(ctx context.Context, icao string) (*domain.Aircraft, bool, error) {
	row := db.pool.QueryRow(ctx, `
SELECT type, flight_name, registration, description, year, owner_operator, top_speed, image, airport_code,
	fuel_type, fuel_gallons_per_hour, fuel_capacity_gallons, fuel_range_nm, fuel_endurance_hours, fuel_passenger_load, fuel_co2_per_gram
FROM aircraft WHERE icao = $1`, icao)

	a := &domain.Aircraft{ICAO: icao}
	var fuelType *string
	var fuelGPH, fuelCap, fuelRange, fuelEnd, fuelCO2 *float64
	var fuelPax *int
	if err := row.Scan(&a.Type, &a.FlightName, &a.Registration, &a.Description, &a.Year, &a.OwnerOperator, &a.TopSpeed, &a.Image, &a.AirportCode,
		&fuelType, &fuelGPH, &fuelCap, &fuelRange, &fuelEnd, &fuelPax, &fuelCO2); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get aircraft %s: %w", icao, err)
	}
	if fuelType != nil {
		fuel := &domain.FuelFigures{FuelType: *fuelType}
		if fuelGPH != nil {
			fuel.GallonsPerHour = *fuelGPH
		}
		if fuelCap != nil {
			fuel.CapacityGallons = *fuelCap
		}
		if fuelRange != nil {
			fuel.RangeNM = *fuelRange
		}
		if fuelEnd != nil {
			fuel.EnduranceHours = *fuelEnd
		}
		if fuelPax != nil {
			fuel.PassengerLoad = *fuelPax
		}
		if fuelCO2 != nil {
			fuel.CO2PerGram = *fuelCO2
		}
		a.Fuel = fuel
	}
	return a, true, nil
}

// ListAircraft loads every tracked Aircraft, the roster C9's fleet-wide
// totals view iterates.
func (db *PostgresDB) ListAircraft(ctx context.Context) ([]*domain.Aircraft, error) {
	rows, err := db.pool.Query(ctx, `SELECT icao, COALESCE(flight_name, ''), COALESCE(airport_code, '') FROM aircraft`)
	if err != nil {
		return nil, fmt.Errorf("list aircraft: %w", err)
	}
	defer rows.Close()

	aircraft := make([]*domain.Aircraft, 0)
	for rows.Next() {
		a := &domain.Aircraft{}
		if err := rows.Scan(&a.ICAO, &a.FlightName, &a.AirportCode); err != nil {
			return nil, fmt.Errorf("scan aircraft row: %w", err)
		}
		aircraft = append(aircraft, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aircraft rows: %w", err)
	}
	return aircraft, nil
}

// EnsureDay inserts the Day row on miss (spec.md §3: "Exists iff any
// FlightPoint references it").
func (db *PostgresDB) EnsureDay(ctx context.Context, day time.Time) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO days (day_date) VALUES ($1) ON CONFLICT DO NOTHING`, day)
	if err != nil {
		return fmt.Errorf("ensure day %s: %w", day.Format("2006-01-02"), err)
	}
	return nil
}

// EnsureAircraftPresentDay creates the junction row lazily, per spec.md §3.
func (db *PostgresDB) EnsureAircraftPresentDay(ctx context.Context, icao string, day time.Time) error {
	_, err := db.pool.Exec(ctx, `
INSERT INTO aircraft_present_day (aircraft_icao, day_date) VALUES ($1, $2)
ON CONFLICT (aircraft_icao, day_date) DO NOTHING`, icao, day)
	if err != nil {
		return fmt.Errorf("ensure aircraft_present_day %s/%s: %w", icao, day.Format("2006-01-02"), err)
	}
	return nil
}

// ClearVerification unconditionally clears history_verified and
// flights_verified on live ingestion, per spec.md §4.6's submitPartial.
func (db *PostgresDB) ClearVerification(ctx context.Context, icao string, day time.Time) error {
	_, err := db.pool.Exec(ctx, `
UPDATE aircraft_present_day SET history_verified = FALSE, flights_verified = FALSE
WHERE aircraft_icao = $1 AND day_date = $2`, icao, day)
	if err != nil {
		return fmt.Errorf("clear verification %s/%s: %w", icao, day.Format("2006-01-02"), err)
	}
	return nil
}

// GetAircraftPresentDay loads one junction row, returning ok=false if it
// doesn't exist yet.
func (db *PostgresDB) GetAircraftPresentDay(ctx context.Context, icao string, day time.Time) (*domain.AircraftPresentDay, bool, error) {
	row := db.pool.QueryRow(ctx, `
SELECT history_verified, flights_verified, geolocation_verified
FROM aircraft_present_day WHERE aircraft_icao = $1 AND day_date = $2`, icao, day)
	var apd domain.AircraftPresentDay
	apd.AircraftICAO, apd.Day = icao, day
	if err := row.Scan(&apd.HistoryVerified, &apd.FlightsVerified, &apd.GeolocationVerified); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get aircraft_present_day %s/%s: %w", icao, day.Format("2006-01-02"), err)
	}
	return &apd, true, nil
}

// SetVerificationFlags updates the three independent verification flags.
func (db *PostgresDB) SetVerificationFlags(ctx context.Context, icao string, day time.Time, history, flights, geolocation *bool) error {
	if history != nil {
		if _, err := db.pool.Exec(ctx, `UPDATE aircraft_present_day SET history_verified = $3 WHERE aircraft_icao = $1 AND day_date = $2`, icao, day, *history); err != nil {
			return fmt.Errorf("set history_verified: %w", err)
		}
	}
	if flights != nil {
		if _, err := db.pool.Exec(ctx, `UPDATE aircraft_present_day SET flights_verified = $3 WHERE aircraft_icao = $1 AND day_date = $2`, icao, day, *flights); err != nil {
			return fmt.Errorf("set flights_verified: %w", err)
		}
	}
	if geolocation != nil {
		if _, err := db.pool.Exec(ctx, `UPDATE aircraft_present_day SET geolocation_verified = $3 WHERE aircraft_icao = $1 AND day_date = $2`, icao, day, *geolocation); err != nil {
			return fmt.Errorf("set geolocation_verified: %w", err)
		}
	}
	return nil
}

// Begin starts a transaction, for callers (the orchestrator) that need to
// hold an AircraftPresentDay lock across several statements.
func (db *PostgresDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.pool.Begin(ctx)
}

// LockAircraftPresentDay obtains a row-level lock for the duration of the
// enclosing transaction, per spec.md §5's mutation-unit policy. It has no
// caller in the module: submissions, day revisions and cross-day stitching
// run without these locks, and nothing sorts keys by
// domain.AircraftDayKey.Less before locking.
func LockAircraftPresentDay(ctx context.Context, tx pgx.Tx, icao string, day time.Time) error {
	_, err := tx.Exec(ctx, `SELECT 1 FROM aircraft_present_day WHERE aircraft_icao = $1 AND day_date = $2 FOR UPDATE`, icao, day)
	if err != nil {
		return fmt.Errorf("lock aircraft_present_day %s/%s: %w", icao, day.Format("2006-01-02"), err)
	}
	return nil
}

// UpsertFlight persists a Flight's identity and computed statistics,
// overwriting on every re-assimilation (the Flight Assimilator always
// recomputes full statistics rather than patching fields incrementally).
func (db *PostgresDB) UpsertFlight(ctx context.Context, f *domain.Flight) error {
	var reasonCode *string
	if f.InaccuracyResolution != nil {
		reasonCode = &f.InaccuracyResolution.ReasonCode
	}
	_, err := db.pool.Exec(ctx, `
INSERT INTO flights (flight_hash, aircraft_icao, takeoff_airport_hash, landing_airport_hash,
	first_point_ts, last_point_ts, distance_meters, fuel_gallons, average_speed_knots,
	average_altitude_ft, total_minutes, prohibited_minutes, total_co2_kg,
	has_departure_details, has_arrival_details, taxi_only, is_on_ground, inaccuracy_reason_code)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (flight_hash) DO UPDATE SET
	takeoff_airport_hash = EXCLUDED.takeoff_airport_hash,
	landing_airport_hash = EXCLUDED.landing_airport_hash,
	first_point_ts = EXCLUDED.first_point_ts,
	last_point_ts = EXCLUDED.last_point_ts,
	distance_meters = EXCLUDED.distance_meters,
	fuel_gallons = EXCLUDED.fuel_gallons,
	average_speed_knots = EXCLUDED.average_speed_knots,
	average_altitude_ft = EXCLUDED.average_altitude_ft,
	total_minutes = EXCLUDED.total_minutes,
	prohibited_minutes = EXCLUDED.prohibited_minutes,
	total_co2_kg = EXCLUDED.total_co2_kg,
	has_departure_details = EXCLUDED.has_departure_details,
	has_arrival_details = EXCLUDED.has_arrival_details,
	taxi_only = EXCLUDED.taxi_only,
	is_on_ground = EXCLUDED.is_on_ground,
	inaccuracy_reason_code = EXCLUDED.inaccuracy_reason_code
`, f.Hash, f.AircraftICAO, f.TakeoffAirportHash, f.LandingAirportHash,
		f.FirstPointTimestamp, f.LastPointTimestamp, f.DistanceMeters, f.FuelGallons, f.AverageSpeedKnots,
		f.AverageAltitudeFt, f.TotalMinutes, f.ProhibitedMinutes, f.TotalCO2Kg,
		f.HasDepartureDetails, f.HasArrivalDetails, f.TaxiOnly, f.IsOnGround, reasonCode)
	if err != nil {
		return fmt.Errorf("upsert flight %s: %w", f.Hash, err)
	}
	return nil
}

// GetFlight loads one Flight by hash, returning ok=false if it doesn't exist.
func (db *PostgresDB) GetFlight(ctx context.Context, hash string) (*domain.Flight, bool, error) {
	row := db.pool.QueryRow(ctx, `
SELECT aircraft_icao, COALESCE(takeoff_airport_hash,''), COALESCE(landing_airport_hash,''),
	first_point_ts, last_point_ts, distance_meters, fuel_gallons, average_speed_knots,
	average_altitude_ft, total_minutes, prohibited_minutes, total_co2_kg,
	has_departure_details, has_arrival_details, taxi_only, is_on_ground
FROM flights WHERE flight_hash = $1`, hash)

	f := &domain.Flight{Hash: hash}
	if err := row.Scan(&f.AircraftICAO, &f.TakeoffAirportHash, &f.LandingAirportHash,
		&f.FirstPointTimestamp, &f.LastPointTimestamp, &f.DistanceMeters, &f.FuelGallons, &f.AverageSpeedKnots,
		&f.AverageAltitudeFt, &f.TotalMinutes, &f.ProhibitedMinutes, &f.TotalCO2Kg,
		&f.HasDepartureDetails, &f.HasArrivalDetails, &f.TaxiOnly, &f.IsOnGround); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get flight %s: %w", hash, err)
	}
	return f, true, nil
}

// ListFlightsForAircraft returns every Flight recorded for an aircraft,
// newest first, the row set C9's per-aircraft summary view reads.
func (db *PostgresDB) ListFlightsForAircraft(ctx context.Context, icao string) ([]*domain.Flight, error) {
	rows, err := db.pool.Query(ctx, `
SELECT flight_hash, COALESCE(takeoff_airport_hash,''), COALESCE(landing_airport_hash,''),
	first_point_ts, last_point_ts, distance_meters, fuel_gallons, average_speed_knots,
	average_altitude_ft, total_minutes, prohibited_minutes, total_co2_kg,
	has_departure_details, has_arrival_details, taxi_only, is_on_ground
FROM flights WHERE aircraft_icao = $1 ORDER BY first_point_ts DESC`, icao)
	if err != nil {
		return nil, fmt.Errorf("list flights for %s: %w", icao, err)
	}
	defer rows.Close()

	var flights []*domain.Flight
	for rows.Next() {
		f := &domain.Flight{AircraftICAO: icao}
		if err := rows.Scan(&f.Hash, &f.TakeoffAirportHash, &f.LandingAirportHash,
			&f.FirstPointTimestamp, &f.LastPointTimestamp, &f.DistanceMeters, &f.FuelGallons, &f.AverageSpeedKnots,
			&f.AverageAltitudeFt, &f.TotalMinutes, &f.ProhibitedMinutes, &f.TotalCO2Kg,
			&f.HasDepartureDetails, &f.HasArrivalDetails, &f.TaxiOnly, &f.IsOnGround); err != nil {
			return nil, fmt.Errorf("scan flight row: %w", err)
		}
		flights = append(flights, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flights rows: %w", err)
	}
	return flights, nil
}

// UpsertAirport persists an Airport, encoding its polygon as WKT the way
// suburbs are encoded (both travel through paulmach/orb/encoding/wkt rather
// than a hand-rolled serializer).
func (db *PostgresDB) UpsertAirport(ctx context.Context, a *domain.Airport) error {
	polyWKT := wkt.MarshalString(orb.Geometry(a.Polygon))
	_, err := db.pool.Exec(ctx, `
INSERT INTO airports (airport_hash, name, latitude, longitude, polygon_wkt, utm_epsg_zones)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (airport_hash) DO UPDATE SET
	name = EXCLUDED.name, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
	polygon_wkt = EXCLUDED.polygon_wkt, utm_epsg_zones = EXCLUDED.utm_epsg_zones
`, a.Hash, a.Name, a.Latitude, a.Longitude, polyWKT, a.UTMEPSGZones)
	if err != nil {
		return fmt.Errorf("upsert airport %s: %w", a.Hash, err)
	}
	return nil
}

// ListAirports loads every bootstrapped Airport, decoding polygon_wkt back
// into an orb.Polygon. Used at startup to build the in-process AirportIndex
// (internal/assimilate.BuildAirportIndex) — airport lookups are read-mostly
// and cheap enough to hold entirely in memory.
func (db *PostgresDB) ListAirports(ctx context.Context) ([]*domain.Airport, error) {
	rows, err := db.pool.Query(ctx, `SELECT airport_hash, name, latitude, longitude, polygon_wkt, utm_epsg_zones FROM airports`)
	if err != nil {
		return nil, fmt.Errorf("list airports: %w", err)
	}
	defer rows.Close()

	var airports []*domain.Airport
	for rows.Next() {
		a := &domain.Airport{}
		var polyWKT string
		if err := rows.Scan(&a.Hash, &a.Name, &a.Latitude, &a.Longitude, &polyWKT, &a.UTMEPSGZones); err != nil {
			return nil, fmt.Errorf("scan airport row: %w", err)
		}
		geom, err := wkt.Unmarshal(polyWKT)
		if err != nil {
			return nil, fmt.Errorf("unmarshal airport polygon %s: %w", a.Hash, err)
		}
		poly, ok := geom.(orb.Polygon)
		if !ok {
			return nil, fmt.Errorf("airport %s polygon_wkt is not a POLYGON", a.Hash)
		}
		a.Polygon = poly
		airports = append(airports, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate airports rows: %w", err)
	}
	return airports, nil
}

// UpsertSuburb persists a Suburb, its bounding box and its symmetric
// neighbour set. Neighbours are replaced wholesale on every call, matching
// the "materialized at load time" geometry DESIGN.md records for this
// table — the suburb bootstrap loader (tools/suburbload) is the only writer.
func (db *PostgresDB) UpsertSuburb(ctx context.Context, s *domain.Suburb) error {
	mpWKT := wkt.MarshalString(orb.Geometry(s.MultiPolygon))
	var stateCode *string
	if known, ok := s.State.(domain.StateKnown); ok {
		v := string(known)
		stateCode = &v
	}
	_, err := db.pool.Exec(ctx, `
INSERT INTO suburbs (suburb_hash, name, postcode, state_code, multi_polygon_wkt,
	bbox_minx, bbox_miny, bbox_maxx, bbox_maxy, utm_epsg_zones)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (suburb_hash) DO UPDATE SET
	name = EXCLUDED.name, postcode = EXCLUDED.postcode, state_code = EXCLUDED.state_code,
	multi_polygon_wkt = EXCLUDED.multi_polygon_wkt,
	bbox_minx = EXCLUDED.bbox_minx, bbox_miny = EXCLUDED.bbox_miny,
	bbox_maxx = EXCLUDED.bbox_maxx, bbox_maxy = EXCLUDED.bbox_maxy,
	utm_epsg_zones = EXCLUDED.utm_epsg_zones
`, s.Hash, s.Name, s.Postcode, stateCode, mpWKT,
		s.BoundingBox.MinX, s.BoundingBox.MinY, s.BoundingBox.MaxX, s.BoundingBox.MaxY, s.UTMEPSGZones)
	if err != nil {
		return fmt.Errorf("upsert suburb %s: %w", s.Hash, err)
	}

	if _, err := db.pool.Exec(ctx, `DELETE FROM suburb_neighbours WHERE suburb_hash = $1`, s.Hash); err != nil {
		return fmt.Errorf("clear neighbours for suburb %s: %w", s.Hash, err)
	}
	for _, n := range s.Neighbours {
		if _, err := db.pool.Exec(ctx, `
INSERT INTO suburb_neighbours (suburb_hash, neighbour_hash) VALUES ($1,$2)
ON CONFLICT DO NOTHING`, s.Hash, n); err != nil {
			return fmt.Errorf("insert neighbour %s -> %s: %w", s.Hash, n, err)
		}
	}
	return nil
}

// ListSuburbs loads every bootstrapped Suburb, including its materialized
// neighbour set, for the in-process SuburbIndex the Geospatial Locator (C3)
// reads from.
func (db *PostgresDB) ListSuburbs(ctx context.Context) ([]*domain.Suburb, error) {
	rows, err := db.pool.Query(ctx, `
SELECT suburb_hash, name, postcode, state_code, multi_polygon_wkt,
	bbox_minx, bbox_miny, bbox_maxx, bbox_maxy, utm_epsg_zones
FROM suburbs`)
	if err != nil {
		return nil, fmt.Errorf("list suburbs: %w", err)
	}
	defer rows.Close()

	var suburbs []*domain.Suburb
	byHash := map[string]*domain.Suburb{}
	for rows.Next() {
		s := &domain.Suburb{}
		var mpWKT string
		var stateCode *string
		if err := rows.Scan(&s.Hash, &s.Name, &s.Postcode, &stateCode, &mpWKT,
			&s.BoundingBox.MinX, &s.BoundingBox.MinY, &s.BoundingBox.MaxX, &s.BoundingBox.MaxY, &s.UTMEPSGZones); err != nil {
			return nil, fmt.Errorf("scan suburb row: %w", err)
		}
		if stateCode != nil {
			s.State = domain.StateKnown(*stateCode)
		} else {
			s.State = domain.StateUnknown{}
		}
		geom, err := wkt.Unmarshal(mpWKT)
		if err != nil {
			return nil, fmt.Errorf("unmarshal suburb multipolygon %s: %w", s.Hash, err)
		}
		mp, ok := geom.(orb.MultiPolygon)
		if !ok {
			return nil, fmt.Errorf("suburb %s multi_polygon_wkt is not a MULTIPOLYGON", s.Hash)
		}
		s.MultiPolygon = mp
		suburbs = append(suburbs, s)
		byHash[s.Hash] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suburbs rows: %w", err)
	}

	nrows, err := db.pool.Query(ctx, `SELECT suburb_hash, neighbour_hash FROM suburb_neighbours`)
	if err != nil {
		return nil, fmt.Errorf("list suburb_neighbours: %w", err)
	}
	defer nrows.Close()
	for nrows.Next() {
		var hash, neighbour string
		if err := nrows.Scan(&hash, &neighbour); err != nil {
			return nil, fmt.Errorf("scan suburb_neighbours row: %w", err)
		}
		if s, ok := byHash[hash]; ok {
			s.Neighbours = append(s.Neighbours, neighbour)
		}
	}
	if err := nrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suburb_neighbours rows: %w", err)
	}
	return suburbs, nil
}

// UpsertWorker persists a Worker's registration and live-status fields.
func (db *PostgresDB) UpsertWorker(ctx context.Context, w *domain.Worker) error {
	_, err := db.pool.Exec(ctx, `
INSERT INTO workers (name, unique_id, worker_type, enabled, phone_home_url, proxy_url, pid,
	multiple_assignments_allowed, running, executed_at, shutdown_at, initialising, init_started_at,
	last_update, error_json)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (name) DO UPDATE SET
	unique_id = EXCLUDED.unique_id,
	worker_type = EXCLUDED.worker_type,
	enabled = EXCLUDED.enabled,
	phone_home_url = EXCLUDED.phone_home_url,
	proxy_url = EXCLUDED.proxy_url,
	pid = EXCLUDED.pid,
	multiple_assignments_allowed = EXCLUDED.multiple_assignments_allowed,
	running = EXCLUDED.running,
	executed_at = EXCLUDED.executed_at,
	shutdown_at = EXCLUDED.shutdown_at,
	initialising = EXCLUDED.initialising,
	init_started_at = EXCLUDED.init_started_at,
	last_update = EXCLUDED.last_update,
	error_json = EXCLUDED.error_json
`, w.Name, w.UniqueID, string(w.Type), w.Enabled, w.PhoneHomeURL, w.ProxyURL, w.PID,
		w.MultipleAssignmentsAllowed, w.Running, w.ExecutedAt, w.ShutdownAt, w.Initialising, w.InitStartedAt,
		w.LastUpdate, w.ErrorJSON)
	if err != nil {
		return fmt.Errorf("upsert worker %s: %w", w.Name, err)
	}
	return nil
}

// ListWorkers loads every registered Worker, the row set the Worker
// Coordinator's (C8) stuck-detection sweep iterates.
func (db *PostgresDB) ListWorkers(ctx context.Context) ([]*domain.Worker, error) {
	rows, err := db.pool.Query(ctx, `
SELECT name, unique_id, worker_type, enabled, phone_home_url, proxy_url, pid,
	multiple_assignments_allowed, running, executed_at, shutdown_at, initialising, init_started_at,
	last_update, error_json
FROM workers`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []*domain.Worker
	for rows.Next() {
		w := &domain.Worker{}
		var workerType string
		if err := rows.Scan(&w.Name, &w.UniqueID, &workerType, &w.Enabled, &w.PhoneHomeURL, &w.ProxyURL, &w.PID,
			&w.MultipleAssignmentsAllowed, &w.Running, &w.ExecutedAt, &w.ShutdownAt, &w.Initialising, &w.InitStartedAt,
			&w.LastUpdate, &w.ErrorJSON); err != nil {
			return nil, fmt.Errorf("scan worker row: %w", err)
		}
		w.Type = domain.WorkerType(workerType)
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers rows: %w", err)
	}
	return workers, nil
}

// AcquireWorkerLock claims an (aircraft, day) mutation unit for a worker,
// failing with ok=false (not an error) on conflict — the caller falls back
// to NoAssignableWorkLeft when every candidate is already locked.
func (db *PostgresDB) AcquireWorkerLock(ctx context.Context, lock *domain.WorkerLock) (bool, error) {
	tag, err := db.pool.Exec(ctx, `
INSERT INTO worker_locks (worker_name, aircraft_icao, day_date) VALUES ($1,$2,$3)
ON CONFLICT (aircraft_icao, day_date) DO NOTHING`, lock.WorkerName, lock.AircraftICAO, lock.Day)
	if err != nil {
		return false, fmt.Errorf("acquire worker lock %s/%s/%s: %w", lock.WorkerName, lock.AircraftICAO, lock.Day.Format("2006-01-02"), err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseWorkerLock releases a worker's claim on an (aircraft, day) pair.
func (db *PostgresDB) ReleaseWorkerLock(ctx context.Context, workerName, icao string, day time.Time) error {
	_, err := db.pool.Exec(ctx, `
DELETE FROM worker_locks WHERE worker_name = $1 AND aircraft_icao = $2 AND day_date = $3`, workerName, icao, day)
	if err != nil {
		return fmt.Errorf("release worker lock %s/%s/%s: %w", workerName, icao, day.Format("2006-01-02"), err)
	}
	return nil
}

// GetWorker loads one registered Worker by name, returning ok=false if it
// doesn't exist.
func (db *PostgresDB) GetWorker(ctx context.Context, name string) (*domain.Worker, bool, error) {
	row := db.pool.QueryRow(ctx, `
SELECT name, unique_id, worker_type, enabled, phone_home_url, proxy_url, pid,
	multiple_assignments_allowed, running, executed_at, shutdown_at, initialising, init_started_at,
	last_update, error_json
FROM workers WHERE name = $1`, name)
	w := &domain.Worker{}
	var workerType string
	if err := row.Scan(&w.Name, &w.UniqueID, &workerType, &w.Enabled, &w.PhoneHomeURL, &w.ProxyURL, &w.PID,
		&w.MultipleAssignmentsAllowed, &w.Running, &w.ExecutedAt, &w.ShutdownAt, &w.Initialising, &w.InitStartedAt,
		&w.LastUpdate, &w.ErrorJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get worker %s: %w", name, err)
	}
	w.Type = domain.WorkerType(workerType)
	return w, true, nil
}

// FindWorkerLockForWorker returns the worker's existing (aircraft, day)
// assignment, if any. Used by assignTraceHistoryWork to short-circuit
// re-assignment when multiple_assignments_allowed is false, per spec.md
// §4.7.
func (db *PostgresDB) FindWorkerLockForWorker(ctx context.Context, workerName string) (*domain.WorkerLock, bool, error) {
	row := db.pool.QueryRow(ctx, `
SELECT worker_name, aircraft_icao, day_date FROM worker_locks WHERE worker_name = $1 LIMIT 1`, workerName)
	lock := &domain.WorkerLock{}
	if err := row.Scan(&lock.WorkerName, &lock.AircraftICAO, &lock.Day); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find worker lock for %s: %w", workerName, err)
	}
	return lock, true, nil
}

// FindUnassignedAircraftPresentDay selects one (aircraft, day) candidate
// with history_verified=false and no existing WorkerLock, per spec.md
// §4.7's assignTraceHistoryWork. Returns ok=false when the candidate set is
// empty, the condition the caller turns into NoAssignableWorkLeft.
func (db *PostgresDB) FindUnassignedAircraftPresentDay(ctx context.Context) (icao string, day time.Time, ok bool, err error) {
	row := db.pool.QueryRow(ctx, `
SELECT apd.aircraft_icao, apd.day_date
FROM aircraft_present_day apd
LEFT JOIN worker_locks wl ON wl.aircraft_icao = apd.aircraft_icao AND wl.day_date = apd.day_date
WHERE apd.history_verified = FALSE AND wl.worker_name IS NULL
ORDER BY apd.day_date ASC
LIMIT 1`)
	if scanErr := row.Scan(&icao, &day); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, fmt.Errorf("find unassigned aircraft_present_day: %w", scanErr)
	}
	return icao, day, true, nil
}

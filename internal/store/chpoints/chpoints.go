// Package chpoints is C1's ClickHouse half: the append-heavy FlightPoint
// time series. Grounded on
// _examples/plane-watch-acars-parser/internal/storage/clickhouse.go's
// OpenClickHouse/CreateSchema/Insert/Query idiom, swapping the ACARS
// message schema for FlightPoint's position/altitude/speed columns.
package chpoints

import (
	"context"
	"fmt"
	"time"

	"aireyes/internal/domain"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DB wraps a ClickHouse connection dedicated to FlightPoint storage.
type DB struct {
	conn driver.Conn
}

func Open(ctx context.Context, cfg Config) (*DB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the flight_points table. ReplacingMergeTree keyed on
// the content hash lets a re-submission of the same point (same identity
// quintuple) overwrite rather than duplicate, matching the stream-upsert
// geometry DESIGN.md records for this table (no rebuild-then-replace pass).
func (d *DB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS flight_points (
	hash            FixedString(32),
	aircraft_icao   LowCardinality(String),
	day_date        Date,
	flight_hash     String,
	timestamp       DateTime64(3),
	longitude       Nullable(Float64),
	latitude        Nullable(Float64),
	proj_x          Nullable(Float64),
	proj_y          Nullable(Float64),
	proj_crs        UInt32,
	utm_epsg_zone   UInt32,
	altitude_kind   LowCardinality(String),
	altitude_feet   Int32,
	ground_speed_knots Nullable(Float64),
	track_degrees      Nullable(Float64),
	vertical_rate_fpm  Nullable(Float64),
	data_source     LowCardinality(String),
	is_on_ground    UInt8,
	is_ascending    UInt8,
	is_descending   UInt8,
	suburb_hash     String,
	inserted_at     DateTime64(3) DEFAULT now64(3)
)
ENGINE = ReplacingMergeTree(inserted_at)
PARTITION BY toYYYYMM(day_date)
ORDER BY (aircraft_icao, timestamp, hash)
SETTINGS index_granularity = 8192`)
	if err != nil {
		return fmt.Errorf("create flight_points schema: %w", err)
	}
	return nil
}

func altitudeKindAndFeet(a domain.Altitude) (string, int32) {
	switch v := a.(type) {
	case domain.AltitudeFeet:
		return "feet", int32(v)
	case domain.AltitudeGround:
		return "ground", 0
	default:
		return "unknown", 0
	}
}

// Insert stores a single FlightPoint. Callers batch via InsertBatch when
// ingesting a worker's full submission.
func (d *DB) Insert(ctx context.Context, p *domain.FlightPoint) error {
	return d.InsertBatch(ctx, []*domain.FlightPoint{p})
}

// InsertBatch stores multiple FlightPoints in one ClickHouse batch, mirroring
// clickhouse.go's PrepareBatch/Append/Send idiom.
func (d *DB) InsertBatch(ctx context.Context, points []*domain.FlightPoint) error {
	if len(points) == 0 {
		return nil
	}
	batch, err := d.conn.PrepareBatch(ctx, `
INSERT INTO flight_points (hash, aircraft_icao, day_date, flight_hash, timestamp, longitude, latitude,
	proj_x, proj_y, proj_crs, utm_epsg_zone, altitude_kind, altitude_feet, ground_speed_knots,
	track_degrees, vertical_rate_fpm, data_source, is_on_ground, is_ascending, is_descending, suburb_hash)`)
	if err != nil {
		return fmt.Errorf("prepare flight_points batch: %w", err)
	}

	for _, p := range points {
		var lon, lat, projX, projY *float64
		if p.Geodetic.Valid {
			lon, lat = &p.Geodetic.Longitude, &p.Geodetic.Latitude
		}
		if p.Position.Valid {
			projX, projY = &p.Position.X, &p.Position.Y
		}
		kind, feet := altitudeKindAndFeet(p.Altitude)

		err := batch.Append(
			p.Hash, p.AircraftICAO, p.Day, p.FlightHash, p.Timestamp, lon, lat,
			projX, projY, uint32(p.Position.CRS), uint32(p.UTMEPSGZone), kind, feet,
			p.GroundSpeedKnots, p.TrackDegrees, p.VerticalRateFPM, p.DataSource,
			boolToUint8(p.IsOnGround), boolToUint8(p.IsAscending), boolToUint8(p.IsDescending), p.SuburbHash,
		)
		if err != nil {
			return fmt.Errorf("append flight point %s: %w", p.Hash, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send flight_points batch: %w", err)
	}
	return nil
}

// CountPointsBySuburb aggregates the number of FlightPoints recorded against
// each suburb. A nil icaos counts every aircraft; a non-nil (possibly empty)
// icaos restricts the count to that set, matching nothing for an empty
// list. Grounded on
// _examples/original_source/webapp/app/geospatial.py's
// SuburbsToGeoJson._get_num_flight_points, which runs the equivalent
// count(*) grouped by suburb_hash, filtered by aircraft_icao when the
// caller isn't asking for every aircraft.
func (d *DB) CountPointsBySuburb(ctx context.Context, icaos []string) (map[string]int, error) {
	counts := make(map[string]int)
	if icaos != nil && len(icaos) == 0 {
		return counts, nil
	}

	query := `
SELECT suburb_hash, count(*)
FROM flight_points FINAL
WHERE suburb_hash != ''`
	args := []interface{}{}
	if icaos != nil {
		query += " AND aircraft_icao IN (?)"
		args = append(args, icaos)
	}
	query += " GROUP BY suburb_hash"

	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count flight_points by suburb: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		var n uint64
		if err := rows.Scan(&hash, &n); err != nil {
			return nil, fmt.Errorf("scan suburb point count row: %w", err)
		}
		counts[hash] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suburb point count rows: %w", err)
	}
	return counts, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// QueryDay retrieves every FlightPoint belonging to one aircraft's day,
// ordered by timestamp — the row set the Timeline Builder (C4) operates on.
func (d *DB) QueryDay(ctx context.Context, icao string, day time.Time) ([]*domain.FlightPoint, error) {
	rows, err := d.conn.Query(ctx, `
SELECT hash, aircraft_icao, day_date, flight_hash, timestamp, longitude, latitude, proj_x, proj_y,
	proj_crs, utm_epsg_zone, altitude_kind, altitude_feet, ground_speed_knots, track_degrees,
	vertical_rate_fpm, data_source, is_on_ground, is_ascending, is_descending, suburb_hash
FROM flight_points FINAL
WHERE aircraft_icao = ? AND day_date = ?
ORDER BY timestamp`, icao, day)
	if err != nil {
		return nil, fmt.Errorf("query flight_points for %s/%s: %w", icao, day.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var points []*domain.FlightPoint
	for rows.Next() {
		p := &domain.FlightPoint{}
		var lon, lat, projX, projY *float64
		var crs, zone uint32
		var altKind string
		var altFeet int32
		var onGround, ascending, descending uint8

		if err := rows.Scan(&p.Hash, &p.AircraftICAO, &p.Day, &p.FlightHash, &p.Timestamp, &lon, &lat,
			&projX, &projY, &crs, &zone, &altKind, &altFeet, &p.GroundSpeedKnots, &p.TrackDegrees,
			&p.VerticalRateFPM, &p.DataSource, &onGround, &ascending, &descending, &p.SuburbHash); err != nil {
			return nil, fmt.Errorf("scan flight point row: %w", err)
		}

		if lon != nil && lat != nil {
			p.Geodetic = domain.GeodeticPosition{Valid: true, Longitude: *lon, Latitude: *lat}
		}
		if projX != nil && projY != nil {
			p.Position = domain.Position{Valid: true, X: *projX, Y: *projY, CRS: int(crs)}
		}
		p.UTMEPSGZone = int(zone)
		switch altKind {
		case "feet":
			p.Altitude = domain.AltitudeFeet(altFeet)
		case "ground":
			p.Altitude = domain.AltitudeGround{}
		default:
			p.Altitude = domain.AltitudeUnknown{}
		}
		p.IsOnGround = onGround != 0
		p.IsAscending = ascending != 0
		p.IsDescending = descending != 0

		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flight_points rows: %w", err)
	}
	return points, nil
}

// Package config loads the master server's runtime configuration from
// flags and environment variables, following the flag-based conventions
// used throughout the retrieved pack's CLI entry points rather than a
// config-file library.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"aireyes/internal/store"
	"aireyes/internal/store/chpoints"
)

// Thresholds holds the Timeline Builder / Inaccuracy Resolver decision
// constants from spec.md §4.3, configurable rather than hard-coded so a
// deployment can tune them without a rebuild.
type Thresholds struct {
	// TDNewGrounded is TD_NEW_GROUNDED: both endpoints grounded, new flight
	// if the gap exceeds this.
	TDNewGrounded time.Duration
	// TDNewMidAirStart is TD_NEW_MIDAIR_START.
	TDNewMidAirStart time.Duration
	// TDNewMidAirEnd is TD_NEW_MIDAIR_END.
	TDNewMidAirEnd time.Duration
	// TDInaccuracyCheck is TD_INACCURACY_CHECK: both airborne, defer to the
	// inaccuracy resolver past this gap.
	TDInaccuracyCheck time.Duration
	// TDNewMidAirBoth is TD_NEW_MIDAIR_BOTH, the inaccuracy resolver's
	// catch-all threshold.
	TDNewMidAirBoth time.Duration
	// MaxAltMidAirDisappear is MAX_ALT_MIDAIR_DISAPPEAR.
	MaxAltMidAirDisappear int

	MinFragmentsForPartial  int
	MinPositionalPathPoints int

	WorkerStuckTimeout time.Duration
}

// DefaultThresholds mirrors the values implied by spec.md's seed scenarios
// and original_source/webapp/app/config.py's TIME_DIFFERENCE_* constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TDNewGrounded:           30 * time.Minute,
		TDNewMidAirStart:        10 * time.Minute,
		TDNewMidAirEnd:          10 * time.Minute,
		TDInaccuracyCheck:       15 * time.Minute,
		TDNewMidAirBoth:         45 * time.Minute,
		MaxAltMidAirDisappear:   1500,
		MinFragmentsForPartial:  2,
		MinPositionalPathPoints: 2,
		WorkerStuckTimeout:      5 * time.Minute,
	}
}

// Config is the top-level runtime configuration for cmd/aireyesd.
type Config struct {
	Postgres PostgresConfig
	ClickHouse ClickHouseConfig
	NATS       NATSConfig

	HTTPAddr       string
	RequestTimeout time.Duration

	// Timezone is the location used for the prohibited-hours-minutes
	// statistic (spec.md §4.5); the assimilator is its only user.
	// Spec.md §9 flags the source's hard-coded
	// Australia/Sydney as an open question; this field makes the choice
	// explicit and overridable per deployment.
	Timezone *time.Location

	ProjectedEPSG int // the single working CRS geometry is stored in, e.g. 3112 for Australia

	Thresholds Thresholds

	GeolocationEnabled bool
	PostGISEnabled     bool

	WorkerBinaryPath string
}

type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

type NATSConfig struct {
	URL string
}

// Load parses flags into a Config. Most flags take their default from an
// AIREYES_* environment variable; request-timeout-seconds,
// geolocation-enabled and postgis-enabled have no environment fallback.
// Mirrors the flag-parsing shape
// of cmd/acars_parser/main.go and tools/kmlexport/main.go.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("aireyesd", flag.ContinueOnError)

	cfg := &Config{Thresholds: DefaultThresholds()}

	fs.StringVar(&cfg.Postgres.Host, "pg-host", envOr("AIREYES_PG_HOST", "localhost"), "Postgres host")
	fs.IntVar(&cfg.Postgres.Port, "pg-port", envOrInt("AIREYES_PG_PORT", 5432), "Postgres port")
	fs.StringVar(&cfg.Postgres.Database, "pg-database", envOr("AIREYES_PG_DATABASE", "aireyes"), "Postgres database name")
	fs.StringVar(&cfg.Postgres.User, "pg-user", envOr("AIREYES_PG_USER", "aireyes"), "Postgres user")
	fs.StringVar(&cfg.Postgres.Password, "pg-password", envOr("AIREYES_PG_PASSWORD", ""), "Postgres password")
	fs.StringVar(&cfg.Postgres.SSLMode, "pg-sslmode", envOr("AIREYES_PG_SSLMODE", "disable"), "Postgres sslmode")

	fs.StringVar(&cfg.ClickHouse.Host, "ch-host", envOr("AIREYES_CH_HOST", "localhost"), "ClickHouse host")
	fs.IntVar(&cfg.ClickHouse.Port, "ch-port", envOrInt("AIREYES_CH_PORT", 9000), "ClickHouse port")
	fs.StringVar(&cfg.ClickHouse.Database, "ch-database", envOr("AIREYES_CH_DATABASE", "aireyes"), "ClickHouse database name")
	fs.StringVar(&cfg.ClickHouse.User, "ch-user", envOr("AIREYES_CH_USER", "default"), "ClickHouse user")
	fs.StringVar(&cfg.ClickHouse.Password, "ch-password", envOr("AIREYES_CH_PASSWORD", ""), "ClickHouse password")

	fs.StringVar(&cfg.NATS.URL, "nats-url", envOr("AIREYES_NATS_URL", "nats://localhost:4222"), "NATS server URL")

	fs.StringVar(&cfg.HTTPAddr, "http-addr", envOr("AIREYES_HTTP_ADDR", ":8085"), "HTTP listen address")
	timeoutSeconds := fs.Int("request-timeout-seconds", 30, "per-request deadline in seconds")

	tzName := fs.String("timezone", envOr("AIREYES_TIMEZONE", "Australia/Sydney"), "IANA timezone for local-time statistics")
	fs.IntVar(&cfg.ProjectedEPSG, "projected-epsg", envOrInt("AIREYES_PROJECTED_EPSG", 3112), "EPSG code of the working projected CRS")
	fs.BoolVar(&cfg.GeolocationEnabled, "geolocation-enabled", true, "enable C3 geospatial locator on ingest")
	fs.BoolVar(&cfg.PostGISEnabled, "postgis-enabled", false, "accepted but has no effect; containment always runs in the in-process locator")
	fs.StringVar(&cfg.WorkerBinaryPath, "worker-binary", envOr("AIREYES_WORKER_BINARY", "radarsim"), "path to the radar worker binary")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.RequestTimeout = time.Duration(*timeoutSeconds) * time.Second

	loc, err := time.LoadLocation(*tzName)
	if err != nil {
		return nil, err
	}
	cfg.Timezone = loc

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// StoreConfig translates the flag-parsed connection settings into
// internal/store's Config shape, keeping this package's PostgresConfig /
// ClickHouseConfig as the single flag-parsing surface.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Postgres: store.PostgresConfig{
			Host:     c.Postgres.Host,
			Port:     c.Postgres.Port,
			Database: c.Postgres.Database,
			User:     c.Postgres.User,
			Password: c.Postgres.Password,
			SSLMode:  c.Postgres.SSLMode,
		},
		ClickHouse: chpoints.Config{
			Host:     c.ClickHouse.Host,
			Port:     c.ClickHouse.Port,
			Database: c.ClickHouse.Database,
			User:     c.ClickHouse.User,
			Password: c.ClickHouse.Password,
		},
	}
}

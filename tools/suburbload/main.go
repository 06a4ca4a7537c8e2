// Package main provides suburbload, the bootstrap loader for suburb
// polygons, airport locations and aircraft fuel figures. Grounded on
// tools/kmlexport/main.go's flag-based Postgres-connection CLI shape.
//
// Parsing the source KML placemarks themselves is out of scope (spec.md
// names this explicitly: "only the resulting Suburb entity shape
// matters"), so this tool's -suburbs/-airports inputs are the pre-parsed
// JSON shape a KML-to-JSON preprocessing step would produce: each suburb a
// named ring list in WGS84, each airport a single named coordinate. The
// loader's own job, content-hashing, UTM zone derivation, neighbour
// computation and upserting, is exactly what bootstrap does with that data
// either way.
//
// Usage:
//
//	suburbload [options]
//
// Options:
//
//	-pg-host HOST       Postgres host (default: localhost)
//	-pg-port PORT       Postgres port (default: 5432)
//	-pg-database DB     Postgres database (default: aireyes)
//	-pg-user USER       Postgres user (default: aireyes)
//	-pg-password PASS   Postgres password
//	-suburbs PATH       JSON file of suburb polygons to load
//	-airports PATH      JSON file of airport coordinates to load
//	-fuel PATH          JSON file of aircraft fuel figures to load
//	-airport-radius-m N radius in metres to buffer an airport point into a polygon (default 2000)
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"aireyes/internal/domain"
	"aireyes/internal/geo"
	"aireyes/internal/store"

	"github.com/paulmach/orb"
	"golang.org/x/crypto/blake2b"
)

func main() {
	pgHost := flag.String("pg-host", envOrDefault("AIREYES_PG_HOST", "localhost"), "Postgres host")
	pgPort := flag.Int("pg-port", 5432, "Postgres port")
	pgUser := flag.String("pg-user", envOrDefault("AIREYES_PG_USER", "aireyes"), "Postgres user")
	pgPassword := flag.String("pg-password", envOrDefault("AIREYES_PG_PASSWORD", ""), "Postgres password")
	pgDB := flag.String("pg-database", envOrDefault("AIREYES_PG_DATABASE", "aireyes"), "Postgres database")

	suburbsPath := flag.String("suburbs", "", "JSON file of suburb polygons to load")
	airportsPath := flag.String("airports", "", "JSON file of airport coordinates to load")
	fuelPath := flag.String("fuel", "", "JSON file of aircraft fuel figures to load")
	airportRadiusM := flag.Float64("airport-radius-m", 2000, "radius in metres to buffer an airport point into a polygon")
	verbose := flag.Bool("v", false, "verbose output")

	flag.Parse()

	if *suburbsPath == "" && *airportsPath == "" && *fuelPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to load: pass at least one of -suburbs, -airports, -fuel")
		os.Exit(1)
	}

	ctx := context.Background()
	pg, err := store.OpenPostgres(ctx, store.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		Database: *pgDB,
		User:     *pgUser,
		Password: *pgPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	if *suburbsPath != "" {
		n, err := loadSuburbs(ctx, pg, *suburbsPath, *verbose)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading suburbs: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "loaded %d suburbs\n", n)
	}

	if *airportsPath != "" {
		n, err := loadAirports(ctx, pg, *airportsPath, *airportRadiusM, *verbose)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading airports: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "loaded %d airports\n", n)
	}

	if *fuelPath != "" {
		n, err := loadFuelFigures(ctx, pg, *fuelPath, *verbose)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading fuel figures: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "loaded %d fuel profiles\n", n)
	}
}

// suburbInput is the pre-parsed KML-derived shape for one suburb: a name,
// postcode, state, and one or more polygon rings of [lon, lat] pairs.
type suburbInput struct {
	Name     string        `json:"name"`
	Postcode string        `json:"postcode"`
	State    string        `json:"state,omitempty"`
	Rings    [][][2]float64 `json:"rings"`
}

func loadSuburbs(ctx context.Context, pg *store.PostgresDB, path string, verbose bool) (int, error) {
	var inputs []suburbInput
	if err := readJSON(path, &inputs); err != nil {
		return 0, err
	}

	suburbs := make([]*domain.Suburb, 0, len(inputs))
	for _, in := range inputs {
		s := buildSuburb(in)
		suburbs = append(suburbs, s)
	}

	geo.DetermineNeighbours(suburbs)

	for _, s := range suburbs {
		if verbose {
			fmt.Fprintf(os.Stderr, "suburb %s (%s): %d neighbours\n", s.Name, s.Hash, len(s.Neighbours))
		}
		if err := pg.UpsertSuburb(ctx, s); err != nil {
			return 0, err
		}
	}
	return len(suburbs), nil
}

func buildSuburb(in suburbInput) *domain.Suburb {
	mp := make(domain.MultiPolygon, 0, len(in.Rings))
	bbox := domain.BoundingBox{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	zoneSet := map[int]bool{}

	for _, ring := range in.Rings {
		r := make(orb.Ring, 0, len(ring))
		for _, pt := range ring {
			lon, lat := pt[0], pt[1]
			r = append(r, orb.Point{lon, lat})
			if lon < bbox.MinX {
				bbox.MinX = lon
			}
			if lon > bbox.MaxX {
				bbox.MaxX = lon
			}
			if lat < bbox.MinY {
				bbox.MinY = lat
			}
			if lat > bbox.MaxY {
				bbox.MaxY = lat
			}
			zoneSet[geo.UTMZone(lon, lat)] = true
		}
		mp = append(mp, orb.Polygon{r})
	}

	zones := make([]int, 0, len(zoneSet))
	for z := range zoneSet {
		zones = append(zones, z)
	}

	var state domain.StateCode = domain.StateUnknown{}
	if in.State != "" {
		state = domain.StateKnown(in.State)
	}

	return &domain.Suburb{
		Hash:         suburbHash(in.Name, in.Postcode, in.State),
		Name:         in.Name,
		Postcode:     in.Postcode,
		State:        state,
		MultiPolygon: mp,
		BoundingBox:  bbox,
		UTMEPSGZones: zones,
	}
}

// airportInput is the bootstrap JSON shape spec.md §6 names: a name plus a
// coordinate pair in the "-33.0000(S)" cardinal-suffixed decimal format.
type airportInput struct {
	Name      string `json:"name"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

func loadAirports(ctx context.Context, pg *store.PostgresDB, path string, radiusM float64, verbose bool) (int, error) {
	var inputs []airportInput
	if err := readJSON(path, &inputs); err != nil {
		return 0, err
	}

	for i, in := range inputs {
		lat, err := geo.ParseAirportCoordinate(in.Latitude)
		if err != nil {
			return i, fmt.Errorf("airport %q: parse latitude: %w", in.Name, err)
		}
		lon, err := geo.ParseAirportCoordinate(in.Longitude)
		if err != nil {
			return i, fmt.Errorf("airport %q: parse longitude: %w", in.Name, err)
		}

		a := &domain.Airport{
			Hash:         airportHash(in.Name, in.Latitude, in.Longitude),
			Name:         in.Name,
			Latitude:     lat,
			Longitude:    lon,
			Polygon:      bufferPointToPolygon(lon, lat, radiusM),
			UTMEPSGZones: []int{geo.UTMZone(lon, lat)},
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "airport %s (%s) at %.4f,%.4f\n", a.Name, a.Hash, lon, lat)
		}
		if err := pg.UpsertAirport(ctx, a); err != nil {
			return i, err
		}
	}
	return len(inputs), nil
}

// bufferPointToPolygon approximates a circular buffer around (lon, lat) as
// a 16-sided polygon, the same point-to-area treatment spec.md §6
// describes for airport catchment areas.
func bufferPointToPolygon(lon, lat, radiusM float64) domain.Polygon {
	const sides = 16
	const metresPerDegreeLat = 111320.0
	metresPerDegreeLon := metresPerDegreeLat * cosApprox(lat)

	ring := make(orb.Ring, 0, sides+1)
	for i := 0; i < sides; i++ {
		theta := 2 * math.Pi * float64(i) / float64(sides)
		dx := radiusM * math.Cos(theta) / metresPerDegreeLon
		dy := radiusM * math.Sin(theta) / metresPerDegreeLat
		ring = append(ring, orb.Point{lon + dx, lat + dy})
	}
	ring = append(ring, ring[0])
	return domain.Polygon{ring}
}

func cosApprox(latDegrees float64) float64 {
	return math.Cos(latDegrees * math.Pi / 180)
}

// fuelInput is the bootstrap fuel-figures JSON shape: one profile per
// aircraft ICAO address.
type fuelInput struct {
	ICAO              string  `json:"icao"`
	FuelType          string  `json:"fuelType"`
	GallonsPerHour    float64 `json:"gallonsPerHour"`
	CapacityGallons   float64 `json:"capacityGallons"`
	RangeNM           float64 `json:"rangeNm"`
	EnduranceHours    float64 `json:"enduranceHours"`
	PassengerLoad     int     `json:"passengerLoad"`
	CO2PerGram        float64 `json:"co2PerGram"`
}

func loadFuelFigures(ctx context.Context, pg *store.PostgresDB, path string, verbose bool) (int, error) {
	var inputs []fuelInput
	if err := readJSON(path, &inputs); err != nil {
		return 0, err
	}

	for i, in := range inputs {
		existing, ok, err := pg.GetAircraft(ctx, in.ICAO)
		if err != nil {
			return i, err
		}
		if !ok {
			existing = domain.NewAircraft(in.ICAO, "", "", "", "", 0, "")
		}
		existing.Fuel = &domain.FuelFigures{
			FuelType:        in.FuelType,
			GallonsPerHour:  in.GallonsPerHour,
			CapacityGallons: in.CapacityGallons,
			RangeNM:         in.RangeNM,
			EnduranceHours:  in.EnduranceHours,
			PassengerLoad:   in.PassengerLoad,
			CO2PerGram:      in.CO2PerGram,
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "fuel profile for %s: %s\n", in.ICAO, in.FuelType)
		}
		if err := pg.UpsertAircraft(ctx, existing); err != nil {
			return i, err
		}
	}
	return len(inputs), nil
}

func suburbHash(name, postcode, state string) string {
	return contentHash(name, postcode, state)
}

func airportHash(name, lat, lon string) string {
	return contentHash(name, lat, lon)
}

// contentHash mirrors domain.FlightPointHash's style: a stable BLAKE2b-128
// digest of a pipe-joined identity tuple.
func contentHash(parts ...string) string {
	payload := ""
	for i, p := range parts {
		if i > 0 {
			payload += "|"
		}
		payload += p
	}
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

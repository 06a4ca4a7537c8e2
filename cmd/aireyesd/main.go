// Package main provides aireyesd, the master server: ingests live and
// trawled points from radar worker processes, assimilates flights,
// coordinates worker lifecycle, and serves both the worker-facing API
// (internal/api) and the public query surface (internal/queryapi).
//
// Usage:
//
//	aireyesd [options]
//
// Options:
//
//	-pg-host HOST             Postgres host (env: AIREYES_PG_HOST)
//	-pg-port PORT             Postgres port (env: AIREYES_PG_PORT)
//	-pg-database DB           Postgres database (env: AIREYES_PG_DATABASE)
//	-pg-user USER             Postgres user (env: AIREYES_PG_USER)
//	-pg-password PASS         Postgres password (env: AIREYES_PG_PASSWORD)
//	-ch-host HOST             ClickHouse host (env: AIREYES_CH_HOST)
//	-ch-port PORT             ClickHouse port (env: AIREYES_CH_PORT)
//	-nats-url URL             NATS server URL (env: AIREYES_NATS_URL)
//	-http-addr ADDR           HTTP listen address (env: AIREYES_HTTP_ADDR)
//	-worker-binary PATH       path to the radar worker binary (env: AIREYES_WORKER_BINARY)
//
// Coordinator sweeps run every 15 seconds; the interval is fixed and has no
// flag.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aireyes/internal/api"
	"aireyes/internal/assimilate"
	"aireyes/internal/bus"
	"aireyes/internal/config"
	"aireyes/internal/coordinator"
	"aireyes/internal/domain"
	"aireyes/internal/geo"
	"aireyes/internal/locator"
	"aireyes/internal/logging"
	"aireyes/internal/orchestrator"
	"aireyes/internal/queryapi"
	"aireyes/internal/store"
)

func main() {
	log := logging.New("aireyesd")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		log.Errorf("open store: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.CreateSchemas(ctx); err != nil {
		log.Errorf("create schemas: %v", err)
		os.Exit(1)
	}

	airports, err := db.PG.ListAirports(ctx)
	if err != nil {
		log.Errorf("list airports: %v", err)
		os.Exit(1)
	}
	suburbs, err := db.PG.ListSuburbs(ctx)
	if err != nil {
		log.Errorf("list suburbs: %v", err)
		os.Exit(1)
	}
	log.Infof("loaded %d airports, %d suburbs", len(airports), len(suburbs))

	index := &locator.SuburbIndex{
		ByHash: suburbsByHashMap(suburbs),
		ByZone: geo.BuildSuburbZoneIndex(suburbs),
	}
	loc := locator.New(index)

	assimilator := &assimilate.Assimilator{
		Airports: assimilate.BuildAirportIndex(airports),
		Timezone: cfg.Timezone,
		Cfg:      cfg.Thresholds,
	}

	orch := &orchestrator.Orchestrator{
		PG:                        db.PG,
		Points:                    db.Points,
		Locator:                   loc,
		Assimilator:               assimilator,
		Thresholds:                cfg.Thresholds,
		InaccuracySolvencyEnabled: true,
		GeolocationEnabled:        cfg.GeolocationEnabled,
		Log:                       logging.New("orchestrator"),
	}

	natsBus, err := bus.Connect(cfg.NATS.URL)
	if err != nil {
		log.Warnf("connect to nats at %s: %v; continuing without event fan-out", cfg.NATS.URL, err)
		natsBus = nil
	} else {
		defer natsBus.Close()
	}

	coord := &coordinator.Coordinator{
		PG:               db.PG,
		Bus:              natsBus,
		Orchestrator:     orch,
		WorkerBinaryPath: cfg.WorkerBinaryPath,
		StuckTimeout:     cfg.Thresholds.WorkerStuckTimeout,
		Log:              logging.New("coordinator"),
	}

	workerAPI := &api.Server{
		PG:           db.PG,
		Orchestrator: orch,
		Coordinator:  coord,
		Bus:          natsBus,
		Log:          logging.New("api"),
	}
	queryServer := queryapi.NewServer(db.PG, db.Points, suburbs)

	root := http.NewServeMux()
	root.Handle("/api/worker/", workerAPI.Router())
	root.Handle("/api/v1/", queryServer.Router())

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      root,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go runExecutionLoop(ctx, coord, log)

	go func() {
		log.Infof("listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func suburbsByHashMap(suburbs []*domain.Suburb) map[string]*domain.Suburb {
	byHash := make(map[string]*domain.Suburb, len(suburbs))
	for _, s := range suburbs {
		byHash[s.Hash] = s
	}
	return byHash
}

// runExecutionLoop periodically reconciles worker processes and spawns or
// shuts down workers per their derived status, the single-threaded
// periodic sweeper spec.md §5 describes in place of the original's
// APScheduler-driven job.
func runExecutionLoop(ctx context.Context, coord *coordinator.Coordinator, log *logging.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := coord.ReconcileWorkerProcesses(ctx); err != nil {
				log.Errorf("reconcile worker processes: %v", err)
			}
			if err := coord.ExecutionPass(ctx); err != nil {
				log.Errorf("execution pass: %v", err)
			}
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/coverage-simulator/core"
	"github.com/signalsfoundry/coverage-simulator/internal/config"
	"github.com/signalsfoundry/coverage-simulator/internal/logging"
	"github.com/signalsfoundry/coverage-simulator/internal/observability"
	"github.com/signalsfoundry/coverage-simulator/kb"
	"github.com/signalsfoundry/coverage-simulator/timectrl"
)

func main() {
	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, log); err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

// run loads a task, simulates it and writes the JSON report to stdout. An
// interrupted run still reports what it collected.
func run(ctx context.Context, args []string, stdout io.Writer, log logging.Logger) error {
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	configPath := fs.String("config", "configs/example.toml", "path to the TOML task file")
	metricsAddr := fs.String("metrics-addr", "", "address for the Prometheus /metrics endpoint (empty disables)")
	skipOutside := fs.Bool("skip-outside-window", false, "exclude time outside the observation window from periods")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "skip-outside-window" {
			cfg.Report.SkipOutsideWindow = *skipOutside
		}
	})

	ctx, log = logging.WithRunLogger(ctx, log)

	tracingCfg := observability.TracingConfigFromEnv()
	tracingCfg.Writer = os.Stderr
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	ctx, span := observability.Tracer("simulator").Start(ctx, "simulate")
	defer span.End()

	var collector *observability.RunCollector
	if *metricsAddr != "" {
		if collector, err = observability.NewRunCollector(nil); err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		srv := serveMetrics(*metricsAddr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	store := kb.NewKnowledgeBase()
	clock, err := build(ctx, cfg, store, collector, log)
	if err != nil {
		return err
	}

	eventLog, runErr := clock.Run(ctx)
	partial := false
	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
			return runErr
		}
		partial = true
		log.Warn(ctx, "run interrupted; reporting partial results", logging.Time("at", clock.Now()))
	}

	rep, err := newReport(cfg, clock.Parameters(), store, eventLog)
	if err != nil {
		return err
	}
	rep.RunID = logging.RunIDFromContext(ctx)
	rep.Partial = partial
	log.Info(ctx, "report ready",
		logging.Int("solutions", len(rep.Solutions)),
		logging.Int("overflight_periods", rep.Overflights.Summary.Count),
		logging.String("unit", rep.Unit),
	)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// build wires the knowledge base, engine and clock for cfg.
func build(ctx context.Context, cfg config.Config, store *kb.KnowledgeBase, collector *observability.RunCollector, log logging.Logger) (*timectrl.SimulationClock, error) {
	ellipsoid, err := cfg.EarthModel()
	if err != nil {
		return nil, err
	}
	gateCfg, err := cfg.GateConfig()
	if err != nil {
		return nil, err
	}
	shared, err := cfg.SharedCloud()
	if err != nil {
		return nil, err
	}
	fineness, err := cfg.Fineness()
	if err != nil {
		return nil, err
	}
	params, err := cfg.Parameters()
	if err != nil {
		return nil, err
	}
	polygons, err := cfg.GroundPolygons()
	if err != nil {
		return nil, err
	}
	satellites, err := cfg.SatelliteDefinitions()
	if err != nil {
		return nil, err
	}

	seed := cfg.Simulation.Seed
	gate := core.NewCoverageGate(gateCfg, ellipsoid, shared, rand.NewPCG(seed, seed))
	engine := core.NewSimulationEngine(store,
		core.WithEllipsoid(ellipsoid),
		core.WithGate(gate),
		core.WithLogger(log),
	)
	for _, p := range polygons {
		if err := engine.AddPolygon(ctx, p, fineness); err != nil {
			return nil, fmt.Errorf("polygon %q: %w", p.Name, err)
		}
	}
	for _, s := range satellites {
		if err := engine.AddSatellite(s, nil); err != nil {
			return nil, fmt.Errorf("satellite %q: %w", s.Name, err)
		}
	}
	log.Info(ctx, "task loaded",
		logging.Int("polygons", len(store.Polygons())),
		logging.Int("satellites", len(store.Satellites())),
		logging.Float("area_km2", store.TotalArea()),
	)

	return timectrl.NewSimulationClock(engine, store, params,
		timectrl.WithLogger(log),
		timectrl.WithMetrics(collector),
	)
}

// serveMetrics exposes /metrics on addr in the background.
func serveMetrics(addr string, collector *observability.RunCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info(context.Background(), "serving Prometheus metrics", logging.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server failed", logging.Err(err))
		}
	}()
	return srv
}

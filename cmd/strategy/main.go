package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	strategy "github.com/uw-midsun/fwxvi-strategy"
	"github.com/uw-midsun/fwxvi-strategy/metrics"
	"github.com/uw-midsun/fwxvi-strategy/plots"
	"github.com/uw-midsun/fwxvi-strategy/store"
	"github.com/uw-midsun/fwxvi-strategy/telemetry"
)

// This command reads the scenario configuration, optimizes every requested
// profile and writes out whatever the flags ask for.

const dateFormat = "2006-01-02 15:04:05"

type assignments []string

func (a *assignments) String() string     { return strings.Join(*a, ",") }
func (a *assignments) Set(s string) error { *a = append(*a, s); return nil }

var (
	scenario     string
	mocks        string
	raceDay      bool
	gpxDir       string
	startTime    string
	overrides    assignments
	showConfig   bool
	outDir       string
	asCSV        bool
	grafana      bool
	withPlots    bool
	stamp        bool
	dbPath       string
	influxURL    string
	influxToken  string
	influxOrg    string
	influxBucket string
	pushgateway  string
	jobs         int
	verbose      bool
)

func init() {
	flag.StringVar(&scenario, "scenario", "", "scenario config file (TOML, YAML or JSON)")
	flag.StringVar(&mocks, "mock", "", "comma separated mock profile YAML files")
	flag.BoolVar(&raceDay, "raceday", false, "optimize the race day route from the GPX file")
	flag.StringVar(&gpxDir, "gpx", "data", "directory holding gpx_file")
	flag.StringVar(&startTime, "start", "", "race day start, "+dateFormat+" UTC (default now)")
	flag.Var(&overrides, "set", "override a parameter, key=value (repeatable)")
	flag.BoolVar(&showConfig, "show-config", false, "print the parameter table and exit")
	flag.StringVar(&outDir, "out", "output", "output directory")
	flag.BoolVar(&asCSV, "csv", false, "export traces as CSV")
	flag.BoolVar(&grafana, "grafana", false, "export the route speed map for Grafana")
	flag.BoolVar(&withPlots, "plots", false, "render speed, battery and net power charts")
	flag.BoolVar(&stamp, "timestamp", false, "stamp output file names")
	flag.StringVar(&dbPath, "db", "", "archive runs in this SQLite database")
	flag.StringVar(&influxURL, "influx-url", "", "InfluxDB URL for trace telemetry")
	flag.StringVar(&influxToken, "influx-token", "", "InfluxDB token")
	flag.StringVar(&influxOrg, "influx-org", "midsun", "InfluxDB organization")
	flag.StringVar(&influxBucket, "influx-bucket", "strategy", "InfluxDB bucket")
	flag.StringVar(&pushgateway, "pushgateway", "", "Prometheus pushgateway URL")
	flag.IntVar(&jobs, "jobs", 2, "scenarios optimized concurrently")
	flag.BoolVar(&verbose, "verbose", false, "debug logging")
}

func main() {
	flag.Parse()
	logger := strategy.NewLogger(os.Stderr, verbose)
	if err := run(logger); err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(1)
	}
}

func run(logger log.Logger) error {
	cfg, err := strategy.LoadConfig(scenario)
	if err != nil {
		return err
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if showConfig {
		cfg.Display(os.Stdout)
		return nil
	}
	if verbose {
		cfg.Display(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scenarios, err := loadScenarios(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("nothing to run: pass -mock or -raceday")
	}

	outs := strategy.RunBatch(ctx, scenarios, jobs, logger)
	failed := 0
	for _, out := range outs {
		if out.Err != nil {
			failed++
			continue
		}
		out.Report.WriteTo(os.Stdout)
		if err := publish(ctx, out.Report, logger); err != nil {
			level.Error(logger).Log("subsys", "output", "scenario", out.Name, "err", err)
			failed++
		}
	}

	if pushgateway != "" {
		m := metrics.New()
		m.ObserveAll(outs)
		if err := m.Push(pushgateway, "strategy"); err != nil {
			level.Warn(logger).Log("subsys", "metrics", "err", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(outs))
	}
	return nil
}

func loadScenarios(ctx context.Context, cfg strategy.SimConfig, logger log.Logger) ([]strategy.Scenario, error) {
	var scenarios []strategy.Scenario
	for _, path := range strings.Split(mocks, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		prof, err := strategy.LoadMockProfile(path)
		if err != nil {
			return nil, err
		}
		level.Debug(logger).Log("subsys", "conf", "mock", path, "steps", prof.Steps(), "dt", prof.Dt)
		name := prof.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		scenarios = append(scenarios, strategy.TestScenario(name, prof, cfg))
	}
	if raceDay {
		start := time.Now().UTC()
		if startTime != "" {
			t, err := time.Parse(dateFormat, startTime)
			if err != nil {
				return nil, fmt.Errorf("-start: %w", err)
			}
			start = t
		}
		sc, err := strategy.RaceDayFromGPX(ctx, gpxDir, start, strategy.IrradianceProvider(cfg), cfg)
		if err != nil {
			return nil, err
		}
		level.Debug(logger).Log("subsys", "conf", "route", sc.Name, "points", len(sc.Route), "start", start.Format(dateFormat))
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// publish sends one report to every output the flags enabled.
func publish(ctx context.Context, rep strategy.Report, logger log.Logger) error {
	logger = log.With(logger, "subsys", "output", "scenario", rep.Scenario.Name)
	if asCSV || grafana {
		paths, err := strategy.Export(strategy.ExportConfig{Dir: outDir, AsCSV: asCSV, Grafana: grafana, Timestamp: stamp}, rep)
		if err != nil {
			return err
		}
		level.Info(logger).Log("wrote", strings.Join(paths, ","))
	}
	if withPlots {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		paths, err := plots.Render(outDir, rep)
		if err != nil {
			return err
		}
		level.Info(logger).Log("wrote", strings.Join(paths, ","))
	}
	if dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		saved, err := db.Save(ctx, rep)
		if err != nil {
			return err
		}
		level.Info(logger).Log("archived", saved.ID, "db", dbPath)
	}
	if influxURL != "" {
		w := telemetry.NewWriter(influxURL, influxToken, influxOrg, influxBucket)
		defer w.Close()
		if err := w.Write(ctx, rep, rep.Scenario.Start); err != nil {
			return err
		}
		level.Info(logger).Log("influx", influxBucket, "points", rep.Sim.Traces.Len())
	}
	return nil
}

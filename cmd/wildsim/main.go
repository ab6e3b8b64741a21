// Command wildsim generates synthetic wildlife telemetry and POSTs it to an
// ingestion endpoint at a fixed interval.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/wildsim/internal/config"
	"github.com/talgya/wildsim/internal/delivery"
	"github.com/talgya/wildsim/internal/engine"
	"github.com/talgya/wildsim/internal/entropy"
	"github.com/talgya/wildsim/internal/fleet"
	"github.com/talgya/wildsim/internal/journal"
	"github.com/talgya/wildsim/internal/persistence"
	"github.com/talgya/wildsim/internal/weather"
)

type runOptions struct {
	configPath string
	logLevel   string
	apiURL     string
	interval   time.Duration
	iterations int64
	seed       int64
	dbPath     string
	journalDir string
}

func main() {
	root := rootCommand()
	root.AddCommand(historyCommand())

	if err := root.Execute(); err != nil {
		if isConfigError(err) {
			slog.Error("invalid configuration", "error", err)
		} else {
			slog.Error("wildsim failed", "error", err)
		}
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	opts := &runOptions{}
	c := &cobra.Command{
		Use:           "wildsim",
		Short:         "Synthetic wildlife telemetry generator",
		Long:          description,
		Example:       examples,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := c.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML or TOML config file.")
	flags.StringVar(&opts.logLevel, "log-level", envOrDefault("WILDSIM_LOG_LEVEL", "info"), "Log level: debug, info, warn or error.")
	flags.StringVar(&opts.apiURL, "api-url", "", "Ingestion API base URL (overrides config and API_URL).")
	flags.DurationVar(&opts.interval, "interval", 0, "Time between ticks (overrides config).")
	flags.Int64VarP(&opts.iterations, "iterations", "n", 0, "Stop after this many ticks; 0 runs until interrupted.")
	flags.Int64Var(&opts.seed, "seed", 0, "Random seed; 0 picks one at startup.")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite file for run history (disabled when empty).")
	flags.StringVar(&opts.journalDir, "journal-dir", "", "Directory for the compressed reading journal (disabled when empty).")
	return c
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(cmd *cobra.Command, opts *runOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = opts.apiURL
	}
	if flags.Changed("interval") {
		cfg.TickInterval = opts.interval
	}
	if flags.Changed("iterations") {
		cfg.MaxIterations = opts.iterations
	}
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if flags.Changed("db") {
		cfg.DBPath = opts.dbPath
	}
	if flags.Changed("journal-dir") {
		cfg.JournalDir = opts.journalDir
	}
}

func run(cmd *cobra.Command, opts *runOptions) error {
	if err := setupLogging(opts.logLevel); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err == nil {
		applyFlags(cmd, opts, &cfg)
		err = cfg.Validate()
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := entropy.NewSource(cfg.Seed)

	slog.Info("Wildlife Sensor Simulation")
	slog.Info("configuration",
		"endpoint", cfg.IngestURL(),
		"sensors", len(cfg.Agents),
		"interval", cfg.TickInterval,
		"max_iterations", iterationsLabel(cfg.MaxIterations),
		"seed", src.Seed(),
	)

	client := delivery.NewClient(delivery.Options{
		URL:         cfg.IngestURL(),
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.Retry.MaxAttempts,
		RetryDelay:  cfg.Retry.Delay,
	})

	sim := engine.NewSimulation(cfg.Agents, client, src, nil)
	sim.Interval = cfg.TickInterval
	sim.MaxTicks = uint64(cfg.MaxIterations)

	seedWeather(ctx, cfg, sim)

	// ── Optional run history ──────────────────────────────────────────
	var db *persistence.DB
	if cfg.DBPath != "" {
		db = openHistory(cfg, src.Seed())
		if db != nil {
			defer db.Close()
			sim.Recorder = db
		}
	}

	// ── Optional reading journal ──────────────────────────────────────
	if cfg.JournalDir != "" {
		jw := journal.NewWriter(cfg.JournalDir, "readings")
		defer func() {
			if err := jw.Close(); err != nil {
				slog.Warn("journal close failed", "error", err)
			}
		}()
		sim.Journal = jw
		slog.Info("reading journal enabled", "dir", cfg.JournalDir)
	}

	slog.Info("starting simulation", "delay", cfg.StartupDelay)
	if !wait(ctx, cfg.StartupDelay) {
		slog.Info("simulation stopped by user")
		return nil
	}

	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	eng.MaxTicks = uint64(cfg.MaxIterations)
	eng.OnTick = func(ctx context.Context, tick uint64) {
		sim.Tick(ctx, tick)
	}

	reason := eng.Run(ctx)
	if reason == engine.StopInterrupted {
		slog.Info("simulation stopped by user")
	}

	sum := sim.Stats.Snapshot()
	fmt.Print(sum.String())
	slog.Info("simulation complete",
		"ticks", sum.Ticks,
		"sent", sum.Sent,
		"failed", sum.Failed,
		"success_rate", fmt.Sprintf("%.1f%%", sum.SuccessRate()),
	)

	if db != nil {
		if err := db.FinishRun(sum, reason.String(), time.Now()); err != nil {
			slog.Error("failed to finish run record", "error", err)
		}
	}
	return nil
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("%w: log level %q", config.ErrConfiguration, level)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return nil
}

// seedWeather replaces the random initial environment with live conditions
// at the roster centroid when an API key is configured.
func seedWeather(ctx context.Context, cfg config.Config, sim *engine.Simulation) {
	wc := weather.NewClient(cfg.WeatherAPIKey)
	if wc == nil {
		return
	}

	center := fleet.Centroid(cfg.Agents)
	fctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	cond, err := wc.Fetch(fctx, center)
	if err != nil {
		slog.Warn("weather seeding failed, using random conditions", "error", err)
		return
	}
	sim.Env = weather.StateFrom(cond, sim.Clock())
	slog.Info("environment seeded from live weather",
		"lat", center.Lat,
		"lng", center.Lng,
		"temp", fmt.Sprintf("%.1f", sim.Env.BaseTemperature),
		"humidity", fmt.Sprintf("%.0f", sim.Env.Humidity),
		"description", cond.Description,
	)
}

// openHistory opens the run database. Failures are logged and history is
// skipped; they never stop the simulation.
func openHistory(cfg config.Config, seed int64) *persistence.DB {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create database directory", "error", err)
			return nil
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		return nil
	}
	if _, err := db.StartRun(persistence.Run{
		Seed:     seed,
		Agents:   len(cfg.Agents),
		Interval: cfg.TickInterval,
		Endpoint: cfg.IngestURL(),
		Started:  time.Now(),
	}); err != nil {
		slog.Error("failed to record run", "error", err)
		db.Close()
		return nil
	}
	return db
}

// wait sleeps for d unless ctx is done first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func iterationsLabel(n int64) string {
	if n == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// isConfigError reports whether err came from configuration loading.
func isConfigError(err error) bool {
	return errors.Is(err, config.ErrConfiguration)
}

var description = `wildsim drives a fleet of virtual wildlife sensors (GPS collars, camera
traps, motion sensors, weather stations) and POSTs one JSON reading per
sensor per tick to an ingestion API.`

var examples = `  wildsim
  wildsim --iterations 100 --interval 1s
  wildsim --config wildsim.yaml --seed 42 --db data/wildsim.db
  wildsim history --db data/wildsim.db`

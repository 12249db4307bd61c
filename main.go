package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/creature"
	"github.com/pthm-cable/brine/telemetry"
	"github.com/pthm-cable/brine/world"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	snapshotEvery := flag.Int64("snapshot-every", 0, "Save a snapshot every N ticks (0 = only on bookmarks)")
	resumeFrom := flag.String("resume", "", "Resume from a snapshot file instead of seeding a fresh world")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindowTicks = *statsWindow
		cfg.Rederive()
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	factory := creature.NewFactory(cfg)

	var w *world.World
	if *resumeFrom != "" {
		snap, err := telemetry.LoadSnapshot(*resumeFrom)
		if err != nil {
			slog.Error("failed to load snapshot", "path", *resumeFrom, "error", err)
			os.Exit(1)
		}
		w, err = world.FromSnapshot(cfg, factory, snap, nil)
		if err != nil {
			slog.Error("failed to restore snapshot", "path", *resumeFrom, "error", err)
			os.Exit(1)
		}
		slog.Info("resumed from snapshot", "path", *resumeFrom, "tick", w.Tick(), "bodies", w.LiveBodies())
	} else {
		w, err = world.NewWorld(cfg, factory, rngSeed, nil)
		if err != nil {
			slog.Error("failed to build world", "error", err)
			os.Exit(1)
		}
		slog.Info("seeded fresh world", "seed", rngSeed, "bodies", w.LiveBodies())
	}
	defer w.Close()

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	detector := telemetry.NewBookmarkDetector(10)

	slog.Info("starting simulation",
		"world", [2]int{cfg.World.Width, cfg.World.Height},
		"max_ticks", *maxTicks,
		"stats_window", cfg.Telemetry.StatsWindowTicks,
		"parallel_islands", cfg.Execution.ParallelIslands,
	)

	start := time.Now()
	for {
		sum := w.Step()

		for _, rec := range sum.Deaths {
			if err := output.WriteDeath(rec); err != nil {
				slog.Error("failed to write death record", "error", err)
			}
		}

		if w.ShouldFlush() {
			stats := w.FlushWindow()
			if *logStats {
				stats.LogStats()
			}
			if err := output.WriteTelemetry(stats); err != nil {
				slog.Error("failed to write telemetry", "error", err)
			}
			if err := output.WritePerf(w.Perf().Stats(), stats.WindowEndTick); err != nil {
				slog.Error("failed to write perf stats", "error", err)
			}

			for _, b := range detector.Check(stats) {
				b.LogBookmark()
				if err := output.WriteBookmark(b); err != nil {
					slog.Error("failed to write bookmark", "error", err)
				}
				if *snapshotDir != "" {
					saveSnapshot(w, *snapshotDir, &b)
				}
			}
		}

		if *snapshotEvery > 0 && *snapshotDir != "" && sum.Tick%*snapshotEvery == 0 {
			saveSnapshot(w, *snapshotDir, nil)
		}

		if *maxTicks > 0 && sum.Tick >= *maxTicks {
			break
		}
	}
	elapsed := time.Since(start)

	if err := output.WriteLeaders(w.Leaders()); err != nil {
		slog.Error("failed to write leader board", "error", err)
	}
	if *snapshotDir != "" {
		saveSnapshot(w, *snapshotDir, nil)
	}

	deaths := w.Deaths()
	slog.Info("simulation finished",
		"tick", w.Tick(),
		"elapsed", elapsed.Round(time.Millisecond).String(),
		"ticks_per_sec", float64(w.Tick())/elapsed.Seconds(),
		"bodies", w.LiveBodies(),
		"particles", w.ParticleCount(),
		"removals", deaths.Total(),
		"leaders", w.Leaders().Size(),
	)
}

func saveSnapshot(w *world.World, dir string, b *telemetry.Bookmark) {
	snap := w.Snapshot()
	snap.Bookmark = b
	path, err := telemetry.SaveSnapshot(snap, dir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", snap.Tick)
}

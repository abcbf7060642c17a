// Package main provides the CLI entry point for napkin, which measures
// memory, syscall, disk, network and arithmetic costs to produce reference
// numbers for napkin math.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"
	"github.com/spf13/cobra"

	"github.com/weiihann/napkin/harness"
	"github.com/weiihann/napkin/report"
	"github.com/weiihann/napkin/workload"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	root := newRootCmd(logger, level, os.Stdout)
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		logger.Error("napkin failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "napkin",
		Short: "Measure hardware and OS costs for napkin math",
		Long: `Napkin runs small, focused workloads (memory access, syscalls, disk I/O,
TCP round-trips, SIMD arithmetic, cache reads and sorting) through a calibrated
timing loop and prints throughput and latency for each.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(stdout)
	root.AddCommand(newRunCmd(logger, level), newListCmd())

	return root
}

// sizeFlags are byte quantities accepted in human form, e.g. "1GiB".
type sizeFlags struct {
	memory      string
	disk        string
	diskRandom  string
	sort        string
	memoryLimit string
}

func newRunCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var (
		evaluate    string
		duration    time.Duration
		calibration time.Duration
		seed        int64
		tempDir     string
		redisAddr   string
		gcPercent   int
		verbose     bool
		sizes       sizeFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workloads whose names match --evaluate",
		Long: `Run every registered workload whose name matches the --evaluate regular
expression, in registration order. Without --evaluate nothing runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				level.Set(slog.LevelDebug)
			}

			cfg, err := buildConfig(runConfig{
				evaluate:    evaluate,
				duration:    duration,
				calibration: calibration,
				seed:        seed,
				tempDir:     tempDir,
				redisAddr:   redisAddr,
				gcPercent:   gcPercent,
				sizes:       sizes,
			})
			if err != nil {
				return err
			}

			return runBenchmarks(cmd.Context(), logger, cmd.OutOrStdout(), cfg)
		},
	}

	defaults := workload.DefaultConfig()

	flags := cmd.Flags()
	flags.StringVarP(&evaluate, "evaluate", "e", "",
		"Run workloads whose name matches this regular expression")
	flags.DurationVar(&duration, "duration", harness.DefaultMeasurementTarget,
		"Target length of the measurement phase")
	flags.DurationVar(&calibration, "calibration", harness.DefaultCalibrationTarget,
		"Target length of the calibration phase")
	flags.Int64Var(&seed, "seed", 0,
		"Seed for shuffled access orders (0 = use current time)")
	flags.StringVar(&tempDir, "temp-dir", defaults.TempDir,
		"Directory for scratch files created by disk workloads")
	flags.StringVar(&redisAddr, "redis-addr", defaults.RedisAddr,
		"Redis server used by redis_read_single_key")
	flags.IntVar(&gcPercent, "gc-percent", 100,
		"Garbage collector target percentage (negative disables the collector)")
	flags.StringVar(&sizes.memoryLimit, "memory-limit", "0",
		"Soft memory limit for the Go runtime (0 = unlimited)")
	flags.StringVar(&sizes.memory, "memory-size", humanize.IBytes(defaults.MemorySize),
		"Buffer size walked by memory workloads")
	flags.StringVar(&sizes.disk, "disk-size", humanize.IBytes(defaults.DiskSize),
		"File size read by sequential disk workloads")
	flags.StringVar(&sizes.diskRandom, "disk-random-size", humanize.IBytes(defaults.DiskRandomSize),
		"File size read by disk_read_random; should exceed the page cache")
	flags.StringVar(&sizes.sort, "sort-size", humanize.IBytes(defaults.SortSize),
		"Bytes of uint64 values sorted by the sort workload")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"Log calibration and measurement details")

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered workloads and whether they run on this platform",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := workload.Default(workload.DefaultConfig())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, w := range reg.All() {
				status := "available"
				if err := w.CheckAvailable(); err != nil {
					status = err.Error()
				}

				fmt.Fprintf(out, "%-32s %-36s %s\n", w.Name, w.Title(), status)
			}

			return nil
		},
	}
}

type runConfig struct {
	evaluate    string
	duration    time.Duration
	calibration time.Duration
	seed        int64
	tempDir     string
	redisAddr   string
	gcPercent   int
	sizes       sizeFlags
}

// benchConfig is the validated form of runConfig.
type benchConfig struct {
	pattern     string
	duration    time.Duration
	calibration time.Duration
	gcPercent   int
	memoryLimit uint64
	workloads   workload.Config
}

// buildConfig validates flags. Every configuration error surfaces here,
// before any workload runs.
func buildConfig(rc runConfig) (benchConfig, error) {
	if rc.duration <= 0 {
		return benchConfig{}, fmt.Errorf("--duration must be positive, got %s", rc.duration)
	}

	if rc.calibration <= 0 {
		return benchConfig{}, fmt.Errorf("--calibration must be positive, got %s", rc.calibration)
	}

	wc := workload.DefaultConfig()
	wc.TempDir = rc.tempDir
	wc.RedisAddr = rc.redisAddr

	wc.Seed = rc.seed
	if wc.Seed == 0 {
		wc.Seed = time.Now().UnixNano()
	}

	parsed := []struct {
		flag  string
		value string
		dst   *uint64
	}{
		{"memory-size", rc.sizes.memory, &wc.MemorySize},
		{"disk-size", rc.sizes.disk, &wc.DiskSize},
		{"disk-random-size", rc.sizes.diskRandom, &wc.DiskRandomSize},
		{"sort-size", rc.sizes.sort, &wc.SortSize},
	}

	for _, p := range parsed {
		n, err := humanize.ParseBytes(p.value)
		if err != nil {
			return benchConfig{}, fmt.Errorf("parse --%s: %w", p.flag, err)
		}

		if n == 0 {
			return benchConfig{}, fmt.Errorf("--%s must be positive", p.flag)
		}

		*p.dst = n
	}

	limit, err := humanize.ParseBytes(rc.sizes.memoryLimit)
	if err != nil {
		return benchConfig{}, fmt.Errorf("parse --memory-limit: %w", err)
	}

	return benchConfig{
		pattern:     rc.evaluate,
		duration:    rc.duration,
		calibration: rc.calibration,
		gcPercent:   rc.gcPercent,
		memoryLimit: limit,
		workloads:   wc,
	}, nil
}

func runBenchmarks(
	ctx context.Context,
	logger *slog.Logger,
	stdout io.Writer,
	cfg benchConfig,
) error {
	logger = logger.With(slog.String("run_id", uuid.NewString()))

	cfg.workloads.Logger = logger

	reg, err := workload.Default(cfg.workloads)
	if err != nil {
		return err
	}

	selected, err := reg.Select(cfg.pattern)
	if err != nil {
		return err
	}

	if cfg.pattern == "" {
		logger.WarnContext(ctx, "no --evaluate pattern given, nothing to run")
		return nil
	}

	applyRuntime(logger, cfg)
	logMachine(ctx, logger)

	logger.InfoContext(ctx, "matching workloads",
		slog.String("pattern", cfg.pattern),
		slog.Int("matched", len(selected)),
		slog.Int64("seed", cfg.workloads.Seed),
		slog.Duration("duration", cfg.duration),
		slog.Duration("calibration", cfg.calibration),
	)

	runner := harness.NewRunner(logger)
	runner.MeasurementTarget = cfg.duration
	runner.CalibrationTarget = cfg.calibration

	for _, w := range selected {
		if err := w.CheckAvailable(); err != nil {
			if !errors.Is(err, harness.ErrUnsupported) {
				return fmt.Errorf("check %s: %w", w.Name, err)
			}

			if err := report.Unsupported(stdout, w.Name, err); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			continue
		}

		logger.InfoContext(ctx, "executing", slog.String("workload", w.Name))

		result, err := runner.Run(ctx, w)
		if err != nil {
			return fmt.Errorf("run %s: %w", w.Name, err)
		}

		if err := report.Generate(stdout, w.Title(), w.BytesPerIteration, result); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

// applyRuntime sets the process-wide allocator knobs. They change the cost
// of allocation-heavy workloads, so they are logged with every run.
func applyRuntime(logger *slog.Logger, cfg benchConfig) {
	debug.SetGCPercent(cfg.gcPercent)

	limit := int64(-1)
	if cfg.memoryLimit > 0 {
		limit = int64(min(cfg.memoryLimit, uint64(1<<63-1)))
		debug.SetMemoryLimit(limit)
	}

	logger.Info("runtime",
		slog.String("go", runtime.Version()),
		slog.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
		slog.Int("gc_percent", cfg.gcPercent),
		slog.Int64("memory_limit", limit),
	)
}

func logMachine(ctx context.Context, logger *slog.Logger) {
	cpu := cpuid.CPU

	logger.InfoContext(ctx, "cpu",
		slog.String("brand", cpu.BrandName),
		slog.String("arch", runtime.GOARCH),
		slog.Int("physical_cores", cpu.PhysicalCores),
		slog.Int("logical_cores", cpu.LogicalCores),
		slog.Int64("hz", cpu.Hz),
		slog.Int("l1d", cpu.Cache.L1D),
		slog.Int("l2", cpu.Cache.L2),
		slog.Int("l3", cpu.Cache.L3),
		slog.Bool("avx2", cpu.Supports(cpuid.AVX2)),
	)
}

package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Default phase targets.
const (
	DefaultCalibrationTarget = 100 * time.Millisecond
	DefaultMeasurementTarget = 5000 * time.Millisecond
)

// Runner executes one workload at a time: a short calibration phase that
// establishes a batch size, then a timed measurement phase.
type Runner struct {
	CalibrationTarget time.Duration
	MeasurementTarget time.Duration
	Logger            *slog.Logger
}

// NewRunner creates a Runner with the default 100ms/5000ms targets.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{
		CalibrationTarget: DefaultCalibrationTarget,
		MeasurementTarget: DefaultMeasurementTarget,
		Logger:            logger,
	}
}

// phase is the outcome of one timed loop.
type phase struct {
	iterations int
	elapsed    time.Duration
	done       bool
}

// Run calibrates and measures w. Any error raised by Setup or Step aborts
// the run; no partial result is returned.
func (r *Runner) Run(ctx context.Context, w Workload) (Result, error) {
	logger := r.Logger.With(slog.String("workload", w.Name))

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	state, err := r.setup(w, "calibration")
	if err != nil {
		return Result{}, err
	}

	cal, err := runPhase(state, r.CalibrationTarget, 1, true)
	if cerr := closeState(state); err == nil && cerr != nil {
		err = cerr
	}

	if err != nil {
		return Result{}, fmt.Errorf("%s: calibration: %w", w.Name, err)
	}

	logger.DebugContext(ctx, "calibration finished",
		slog.Int("iterations", cal.iterations),
		slog.Duration("elapsed", cal.elapsed),
		slog.Bool("completed", cal.done),
	)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// The calibration count is reused verbatim as the measurement batch size.
	batch := max(cal.iterations, 1)

	state, err = r.setup(w, "measurement")
	if err != nil {
		return Result{}, err
	}

	before := Cycles()
	m, err := runPhase(state, r.MeasurementTarget, batch, false)
	after := Cycles()

	if cerr := closeState(state); err == nil && cerr != nil {
		err = cerr
	}

	if err != nil {
		return Result{}, fmt.Errorf("%s: measurement: %w", w.Name, err)
	}

	logger.DebugContext(ctx, "measurement finished",
		slog.Int("batch", batch),
		slog.Int("iterations", m.iterations),
		slog.Duration("elapsed", m.elapsed),
		slog.Bool("completed", m.done),
	)

	return Result{
		Iterations: m.iterations,
		Duration:   m.elapsed,
		Cycles:     after - before,
	}, nil
}

func (r *Runner) setup(w Workload, name string) (State, error) {
	if w.Setup == nil {
		return nil, fmt.Errorf("%s: %s: no setup function", w.Name, name)
	}

	state, err := w.Setup()
	if err != nil {
		return nil, fmt.Errorf("%s: %s setup: %w", w.Name, name, err)
	}

	return state, nil
}

// runPhase steps state in batches until target has elapsed or the workload
// reports completion. Elapsed time is only sampled between batches. When grow
// is set, the batch size after each full batch becomes the running total.
func runPhase(state State, target time.Duration, batch int, grow bool) (phase, error) {
	var p phase

	start := time.Now()

	for time.Since(start) < target {
		for i := 1; i <= batch; i++ {
			more, err := state.Step()
			if err != nil {
				p.elapsed = time.Since(start)
				return p, err
			}

			if !more {
				p.iterations += i
				p.elapsed = time.Since(start)
				p.done = true

				return p, nil
			}
		}

		p.iterations += batch

		if grow {
			batch = p.iterations
		}
	}

	p.elapsed = time.Since(start)

	return p, nil
}

func closeState(state State) error {
	c, ok := state.(io.Closer)
	if !ok {
		return nil
	}

	if err := c.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}

	return nil
}

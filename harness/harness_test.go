package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner(cal, measure time.Duration) *Runner {
	r := NewRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.CalibrationTarget = cal
	r.MeasurementTarget = measure

	return r
}

// counter finishes on its limit-th Step call.
type counter struct {
	calls  int
	limit  int
	closed *int
}

func (c *counter) Step() (bool, error) {
	c.calls++
	Consume(c.calls)

	return c.calls < c.limit, nil
}

func (c *counter) Close() error {
	if c.closed != nil {
		*c.closed++
	}

	return nil
}

func TestRunStopsOnExactIteration(t *testing.T) {
	closed := 0
	setups := 0
	w := Workload{
		Name: "counter",
		Setup: func() (State, error) {
			setups++
			return &counter{limit: 5, closed: &closed}, nil
		},
	}

	result, err := testRunner(50*time.Millisecond, 100*time.Millisecond).
		Run(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Iterations)
	assert.Equal(t, 2, setups, "each phase gets a fresh state")
	assert.Equal(t, 2, closed, "each phase closes its state")
}

func TestRunPhaseCountsCompletingCall(t *testing.T) {
	for _, tt := range []struct {
		name  string
		limit int
		batch int
		grow  bool
	}{
		{name: "growing from one", limit: 5, batch: 1, grow: true},
		{name: "fixed batch larger than limit", limit: 5, batch: 64},
		{name: "limit on batch boundary", limit: 8, batch: 4},
		{name: "limit inside third batch", limit: 10, batch: 4},
		{name: "first call", limit: 1, batch: 3},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := &counter{limit: tt.limit}

			p, err := runPhase(c, time.Minute, tt.batch, tt.grow)
			require.NoError(t, err)

			assert.True(t, p.done)
			assert.Equal(t, tt.limit, p.iterations)
			assert.Equal(t, tt.limit, c.calls)
		})
	}
}

func TestRunPhaseGrowsBatch(t *testing.T) {
	p, err := runPhase(&limited{max: 31}, time.Minute, 1, true)
	require.NoError(t, err)

	// Batches of 1, 1, 2, 4, 8, 16: the 31st call ends the phase.
	assert.Equal(t, 31, p.iterations)

	p, err = runPhase(&limited{max: 1000}, 0, 1, true)
	require.NoError(t, err)
	assert.Zero(t, p.iterations, "an expired target runs no batch")
}

type limited struct {
	n   int
	max int
}

func (l *limited) Step() (bool, error) {
	l.n++
	return l.n < l.max, nil
}

func TestRunPropagatesStepError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	w := Workload{
		Name: "failing",
		Setup: func() (State, error) {
			return StepFunc(func() (bool, error) {
				calls++
				if calls == 3 {
					return false, boom
				}

				return true, nil
			}), nil
		},
	}

	_, err := testRunner(50*time.Millisecond, 100*time.Millisecond).
		Run(context.Background(), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing: calibration")
	assert.Equal(t, 3, calls, "no retries after an error")
}

func TestRunPropagatesSetupError(t *testing.T) {
	boom := errors.New("no disk")
	w := Workload{
		Name:  "setup",
		Setup: func() (State, error) { return nil, boom },
	}

	_, err := testRunner(time.Millisecond, time.Millisecond).
		Run(context.Background(), w)
	assert.ErrorIs(t, err, boom)
}

func TestRunMissingSetup(t *testing.T) {
	_, err := testRunner(time.Millisecond, time.Millisecond).
		Run(context.Background(), Workload{Name: "empty"})
	assert.Error(t, err)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := Workload{
		Name:  "never",
		Setup: func() (State, error) {
			t.Fatal("setup called")
			return nil, nil
		},
	}

	_, err := testRunner(time.Millisecond, time.Millisecond).Run(ctx, w)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalibrationOverrunBoundedByOneBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	const (
		target = 50 * time.Millisecond
		step   = 2 * time.Millisecond
	)

	state := StepFunc(func() (bool, error) {
		time.Sleep(step)
		return true, nil
	})

	p, err := runPhase(state, target, 1, true)
	require.NoError(t, err)

	// The last batch is at most as long as everything before it.
	lastBatch := time.Duration(p.iterations/2+1) * step * 2
	assert.GreaterOrEqual(t, p.elapsed, target)
	assert.LessOrEqual(t, p.elapsed, target+lastBatch)
}

func TestMeasurementScalesWithTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	cheap := Workload{
		Name: "cheap",
		Setup: func() (State, error) {
			n := 0
			return StepFunc(func() (bool, error) {
				n++
				Consume(n * n)
				return true, nil
			}), nil
		},
	}

	short, err := testRunner(20*time.Millisecond, 250*time.Millisecond).
		Run(context.Background(), cheap)
	require.NoError(t, err)

	long, err := testRunner(20*time.Millisecond, 500*time.Millisecond).
		Run(context.Background(), cheap)
	require.NoError(t, err)

	ratio := float64(long.Iterations) / float64(short.Iterations)
	assert.InDelta(t, 2.0, ratio, 0.6)
	assert.Greater(t, long.Cycles, short.Cycles)
}

func TestCyclesPerIterationTrackWork(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	arithmetic := func(rounds int) Workload {
		return Workload{
			Name: "arith",
			Setup: func() (State, error) {
				x := uint64(1)
				return StepFunc(func() (bool, error) {
					for i := 0; i < rounds; i++ {
						x = x*6364136223846793005 + 1442695040888963407
						Consume(x)
					}
					return true, nil
				}), nil
			},
		}
	}

	r := testRunner(20*time.Millisecond, 200*time.Millisecond)

	light, err := r.Run(context.Background(), arithmetic(100))
	require.NoError(t, err)

	heavy, err := r.Run(context.Background(), arithmetic(1000))
	require.NoError(t, err)

	lightCPI := float64(light.Cycles) / float64(light.Iterations)
	heavyCPI := float64(heavy.Cycles) / float64(heavy.Iterations)

	assert.Greater(t, heavyCPI/lightCPI, 4.0,
		"10x the arithmetic should cost several times the cycles")
}

func TestCyclesMonotonic(t *testing.T) {
	a := Cycles()
	time.Sleep(time.Millisecond)
	b := Cycles()

	assert.Greater(t, b, a)
}

func TestConsumeAcceptsAnyValue(t *testing.T) {
	Consume(struct{}{})
	Consume([8]uint64{1, 2, 3})
	Consume("text")
	Consume([]byte(nil))
	Consume(io.Closer(nopCloser{t: t}))
}

type nopCloser struct{ t *testing.T }

func (n nopCloser) Close() error {
	n.t.Fatal("Consume must not close its argument")
	return nil
}

func TestResultValid(t *testing.T) {
	assert.False(t, Result{}.Valid())
	assert.False(t, Result{Iterations: 3}.Valid())
	assert.True(t, Result{Iterations: 3, Duration: time.Second}.Valid())
}

func TestWorkloadAvailability(t *testing.T) {
	w := Workload{Name: "always"}
	assert.NoError(t, w.CheckAvailable())
	assert.Equal(t, "always", w.Title())

	w = Workload{
		Name:      "gated",
		Label:     "Gated",
		Available: func() error { return Unsupported("needs linux") },
	}
	err := w.CheckAvailable()
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "needs linux")
	assert.Equal(t, "Gated", w.Title())
}

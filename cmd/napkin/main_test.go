package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/napkin/workload"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := newRootCmd(logger, new(slog.LevelVar), &stdout)
	root.SetArgs(args)
	root.SetErr(io.Discard)

	err := root.Execute()

	return stdout.String(), err
}

func TestRunWithoutPatternRunsNothing(t *testing.T) {
	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunPatternMatchingNothing(t *testing.T) {
	out, err := execute(t, "run", "-e", "^does_not_exist$")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunInvalidPatternFailsBeforeRunning(t *testing.T) {
	out, err := execute(t, "run", "--evaluate", "syscall_(")
	require.ErrorIs(t, err, workload.ErrInvalidPattern)
	assert.Empty(t, out)
}

func TestRunSelectedWorkloads(t *testing.T) {
	out, err := execute(t, "run",
		"-e", "^syscall_(getpid|time)$",
		"--duration", "50ms",
		"--calibration", "10ms",
		"--temp-dir", t.TempDir(),
	)
	require.NoError(t, err)

	getpid := strings.Index(out, "[Syscall getpid(2)] Iterations in")
	clock := strings.Index(out, "[Syscall clock_gettime(2)] Iterations in")

	require.GreaterOrEqual(t, getpid, 0, out)
	require.GreaterOrEqual(t, clock, 0, out)
	assert.Less(t, getpid, clock, "blocks print in registration order")
	assert.Contains(t, out, "[Syscall getpid(2)] Avg single iteration cycles:")
	assert.NotContains(t, out, "stat(2)")
}

func TestRunMemoryWorkloadWithSmallBuffer(t *testing.T) {
	out, err := execute(t, "run",
		"-e", "^memory_read_sequential$",
		"--memory-size", "64KiB",
		"--duration", "50ms",
		"--calibration", "10ms",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "[Read Seq Vec <64 B>] Iterations in")
	assert.Contains(t, out, "no overhead: 1,024")
	assert.Contains(t, out, "[Read Seq Vec <64 B>] Time to process 1 TiB:")
}

func TestRunWorkloadErrorIsFatal(t *testing.T) {
	_, err := execute(t, "run",
		"-e", "^syscall_stat$",
		"--temp-dir", "/nonexistent/napkin",
		"--duration", "10ms",
		"--calibration", "10ms",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run syscall_stat")
}

func TestBuildConfigErrors(t *testing.T) {
	valid := func() runConfig {
		return runConfig{
			duration:    5e9,
			calibration: 1e8,
			sizes: sizeFlags{
				memory:      "1GiB",
				disk:        "1GiB",
				diskRandom:  "8GiB",
				sort:        "1MiB",
				memoryLimit: "0",
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*runConfig)
		want   string
	}{
		{"zero duration", func(rc *runConfig) { rc.duration = 0 }, "--duration"},
		{"negative calibration", func(rc *runConfig) { rc.calibration = -1 }, "--calibration"},
		{"bad memory size", func(rc *runConfig) { rc.sizes.memory = "lots" }, "--memory-size"},
		{"zero sort size", func(rc *runConfig) { rc.sizes.sort = "0" }, "--sort-size"},
		{"bad memory limit", func(rc *runConfig) { rc.sizes.memoryLimit = "x" }, "--memory-limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := valid()
			tt.mutate(&rc)

			_, err := buildConfig(rc)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	cfg, err := buildConfig(valid())
	require.NoError(t, err)
	assert.Equal(t, workload.GiB, cfg.workloads.MemorySize)
	assert.Equal(t, 8*workload.GiB, cfg.workloads.DiskRandomSize)
	assert.Equal(t, workload.MiB, cfg.workloads.SortSize)
	assert.NotZero(t, cfg.workloads.Seed, "zero seed is replaced")
}

func TestListShowsEveryWorkload(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)

	reg, err := workload.Default(workload.DefaultConfig())
	require.NoError(t, err)

	for _, w := range reg.All() {
		assert.Contains(t, out, w.Name)
	}
}

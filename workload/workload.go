// Package workload holds the registry of named benchmark workloads and the
// built-in payloads: memory, syscalls, disk, TCP, SIMD, cache round-trips
// and sorting.
package workload

import (
	"fmt"
	"io"
	"log/slog"
	mrand "math/rand"
	"os"

	"github.com/weiihann/napkin/harness"
)

// Byte sizes used by the built-in workloads.
const (
	KiB uint64 = 1 << 10
	MiB uint64 = 1 << 20
	GiB uint64 = 1 << 30
)

// Config controls the sizes and endpoints of the built-in workloads.
type Config struct {
	// MemorySize is the buffer each memory workload walks.
	MemorySize uint64
	// DiskSize is the file read by the sequential disk workloads.
	DiskSize uint64
	// DiskRandomSize is the file read by disk_read_random. It should exceed
	// the page cache to measure the device.
	DiskRandomSize uint64
	// SortSize is the number of bytes of uint64s sorted per phase.
	SortSize uint64
	// TempDir holds the files created by disk workloads.
	TempDir string
	// Seed drives every shuffled visitation order and random payload.
	Seed int64
	// RedisAddr is the host:port of the Redis server.
	RedisAddr string
	Logger    *slog.Logger
}

// DefaultConfig returns the sizes used for published numbers.
func DefaultConfig() Config {
	return Config{
		MemorySize:     GiB,
		DiskSize:       GiB,
		DiskRandomSize: 8 * GiB,
		SortSize:       MiB,
		TempDir:        os.TempDir(),
		Seed:           1,
		RedisAddr:      "127.0.0.1:6379",
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Default registers every built-in workload in execution order.
func Default(cfg Config) (*Registry, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reg := NewRegistry()

	groups := [][]harness.Workload{
		memoryWorkloads(cfg),
		syscallWorkloads(cfg),
		diskWorkloads(cfg),
		{tcpReadWrite(cfg), simd()},
		cacheWorkloads(cfg),
		{sortWorkload(cfg)},
	}

	for _, group := range groups {
		for _, w := range group {
			if err := reg.Register(w); err != nil {
				return nil, fmt.Errorf("default registry: %w", err)
			}
		}
	}

	return reg, nil
}

// Generator produces deterministic shuffled orders and payloads from a seed.
// Two generators with the same seed yield identical sequences.
type Generator struct {
	rng *mrand.Rand
}

// NewGenerator creates a Generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: mrand.New(mrand.NewSource(seed))}
}

// Order returns a permutation of [0, n): every index exactly once, in a
// shuffled order.
func (g *Generator) Order(n int) []int {
	return g.rng.Perm(n)
}

// Bytes returns n random bytes.
func (g *Generator) Bytes(n int) []byte {
	buf := make([]byte, n)
	g.rng.Read(buf)

	return buf
}

// Uint64s returns n random values.
func (g *Generator) Uint64s(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = g.rng.Uint64()
	}

	return out
}

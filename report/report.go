// Package report turns raw benchmark results into throughput and latency
// statistics with adaptive units.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/weiihann/napkin/harness"
)

// Binary byte quantities.
const (
	KiB uint64 = 1 << (10 * (iota + 1))
	MiB
	GiB
	TiB
	PiB
	EiB
)

// preciseFloor is the single-iteration duration at or below which averages
// are printed as fractional nanoseconds.
const preciseFloor = 10 * time.Nanosecond

var printer = message.NewPrinter(language.English)

// Summary holds the statistics derived from one Result.
type Summary struct {
	Iterations       int
	Duration         time.Duration
	IterationsPerSec float64
	// AvgNanos is the mean iteration latency in fractional nanoseconds.
	AvgNanos  float64
	AvgCycles float64

	BytesPerIteration uint64
	TotalBytes        uint64
	BytesPerSec       float64
	PerMiB            time.Duration
	PerGiB            time.Duration
	PerTiB            time.Duration

	Valid bool
}

// Summarize computes the statistics for r. Byte-derived fields are only set
// when bytesPerIteration > 0. Averages are left zero when r has no
// iterations or no elapsed time.
func Summarize(r harness.Result, bytesPerIteration uint64) Summary {
	s := Summary{
		Iterations:        r.Iterations,
		Duration:          r.Duration,
		BytesPerIteration: bytesPerIteration,
		Valid:             r.Valid(),
	}

	if bytesPerIteration > 0 {
		s.TotalBytes = bytesPerIteration * uint64(r.Iterations)
	}

	if !s.Valid {
		return s
	}

	secs := r.Duration.Seconds()
	iters := float64(r.Iterations)

	s.IterationsPerSec = iters / secs
	s.AvgNanos = float64(r.Duration.Nanoseconds()) / iters
	s.AvgCycles = float64(r.Cycles) / iters

	if bytesPerIteration > 0 {
		s.BytesPerSec = float64(s.TotalBytes) / secs

		nanosPerByte := s.AvgNanos / float64(bytesPerIteration)
		s.PerMiB = extrapolate(nanosPerByte, MiB)
		s.PerGiB = extrapolate(nanosPerByte, GiB)
		s.PerTiB = extrapolate(nanosPerByte, TiB)
	}

	return s
}

func extrapolate(nanosPerByte float64, bytes uint64) time.Duration {
	ns := nanosPerByte * float64(bytes)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(ns)
}

// Generate writes the statistics block for one workload to w.
func Generate(w io.Writer, name string, bytesPerIteration uint64, r harness.Result) error {
	if bytesPerIteration > 0 {
		name = fmt.Sprintf("%s <%s>", name, formatBytes(bytesPerIteration, 0))
	}

	s := Summarize(r, bytesPerIteration)
	p := &linePrinter{w: w}

	p.line("")
	p.line("[%s] Iterations in %d milliseconds, no overhead: %s",
		name, r.Duration.Milliseconds(), formatCount(uint64(r.Iterations)))

	if !s.Valid {
		p.line("[%s] no iterations completed", name)
		return p.err
	}

	p.line("[%s] Iterations / second: %s", name, formatCount(uint64(s.IterationsPerSec)))

	if bytesPerIteration > 0 {
		p.line("[%s] Bytes handled per iteration: %d bytes", name, bytesPerIteration)
		p.line("[%s] Total bytes processed: %s", name, formatBytes(s.TotalBytes, 3))
		p.line("[%s] Throughput: %s/s", name, formatBytes(uint64(s.BytesPerSec), 3))
	}

	p.line("[%s] Avg single iteration: %s", name, formatAverage(s.AvgNanos))
	p.line("[%s] Avg single iteration cycles: %.2f", name, s.AvgCycles)

	if bytesPerIteration > 0 {
		p.line("[%s] Time to process 1 MiB: %s", name, formatDuration(s.PerMiB))
		p.line("[%s] Time to process 1 GiB: %s", name, formatDuration(s.PerGiB))
		p.line("[%s] Time to process 1 TiB: %s", name, formatDuration(s.PerTiB))
	}

	return p.err
}

// Unsupported writes the line reported for a workload that cannot run on
// this platform.
func Unsupported(w io.Writer, name string, reason error) error {
	_, err := fmt.Fprintf(w, "\n[%s] %v\n", name, reason)
	return err
}

// linePrinter keeps the first write error.
type linePrinter struct {
	w   io.Writer
	err error
}

func (p *linePrinter) line(format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func formatCount(n uint64) string {
	return printer.Sprintf("%d", n)
}

// formatAverage prints a mean iteration latency, falling back to fractional
// nanoseconds where integer units would truncate to nothing useful.
func formatAverage(nanos float64) string {
	d := time.Duration(nanos)
	if d <= preciseFloor {
		return fmt.Sprintf("%.3f ns", nanos)
	}

	return formatDuration(d)
}

// formatDuration picks a unit by hard thresholds. Integer units truncate.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%d ns", d.Nanoseconds())
	case d < 5*time.Millisecond:
		return fmt.Sprintf("%d μs", d.Microseconds())
	case d < 3000*time.Millisecond:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}

	secs := int64(d / time.Second)

	switch {
	case secs <= 120:
		return fmt.Sprintf("%.2f s", float64(d.Milliseconds())/1000)
	case secs <= 3600:
		return fmt.Sprintf("%.2f min", float64(secs)/60)
	default:
		return fmt.Sprintf("%.2f hours", float64(secs)/3600)
	}
}

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// formatBytes renders b in the largest binary unit it fills at least once.
// Plain bytes are always integral.
func formatBytes(b uint64, decimals int) string {
	unit := 0
	div := uint64(1)

	for unit < len(byteUnits)-1 && b/div >= 1024 {
		div *= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d B", b)
	}

	return fmt.Sprintf("%.*f %s", decimals, float64(b)/float64(div), byteUnits[unit])
}

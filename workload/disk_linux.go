//go:build linux

package workload

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/weiihann/napkin/harness"
)

const (
	adviceSequential = unix.FADV_SEQUENTIAL
	adviceRandom     = unix.FADV_RANDOM
)

// adviseFile is a hint; kernels are free to ignore it.
func adviseFile(f *os.File, advice int) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, advice)
}

func syncData(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}

func batchedAvailable() error {
	return nil
}

// batchedRead keeps batchedReads preads in flight per step and waits for
// every completion before returning.
type batchedRead struct {
	tempFile
	fd      int
	bufs    [][]byte
	size    int64
	offset  int64
	pending errgroup.Group
}

func newBatchedRead(cfg Config) (*batchedRead, error) {
	if cfg.DiskSize < batchedReads*batchedBuffer {
		return nil, fmt.Errorf("disk size %d smaller than one batch of %d bytes",
			cfg.DiskSize, batchedReads*batchedBuffer)
	}

	t, err := createFilled(cfg, cfg.DiskSize)
	if err != nil {
		return nil, err
	}

	adviseFile(t.f, adviceSequential)

	bufs := make([][]byte, batchedReads)
	for i := range bufs {
		bufs[i] = make([]byte, batchedBuffer)
	}

	return &batchedRead{
		tempFile: t,
		fd:       int(t.f.Fd()),
		bufs:     bufs,
		size:     int64(cfg.DiskSize),
	}, nil
}

func (s *batchedRead) Step() (bool, error) {
	if s.offset+batchedReads*int64(batchedBuffer) > s.size {
		s.offset = 0
	}

	for i, buf := range s.bufs {
		buf := buf
		off := s.offset + int64(i)*int64(batchedBuffer)
		s.pending.Go(func() error {
			n, err := unix.Pread(s.fd, buf, off)
			if err != nil {
				return fmt.Errorf("pread at %d: %w", off, err)
			}

			if n < len(buf) {
				return fmt.Errorf("short pread at %d: %d of %d bytes", off, n, len(buf))
			}

			return nil
		})
	}

	if err := s.pending.Wait(); err != nil {
		return false, err
	}

	s.offset += batchedReads * int64(batchedBuffer)
	harness.Consume(s.bufs[0][0])

	return true, nil
}

package workload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/weiihann/napkin/harness"
)

const (
	diskReadBuffer   = 64 * KiB
	diskRandomBuffer = 8 * KiB
	diskWriteBuffer  = 8 * KiB
	fillChunk        = MiB

	batchedReads  = 64
	batchedBuffer = 32 * KiB
)

func diskWorkloads(cfg Config) []harness.Workload {
	return []harness.Workload{
		{
			Name:              "disk_read_sequential",
			Label:             "Sequential Disk Read",
			BytesPerIteration: diskReadBuffer,
			Setup: func() (harness.State, error) {
				return newSequentialRead(cfg)
			},
		},
		{
			Name:              "disk_read_random",
			Label:             "Random Disk Seek, No Page Cache",
			BytesPerIteration: diskRandomBuffer,
			Setup: func() (harness.State, error) {
				return newRandomRead(cfg)
			},
		},
		{
			Name:              "disk_write_sequential_no_fsync",
			Label:             "Sequential Disk Write, No Fsync",
			BytesPerIteration: diskWriteBuffer,
			Setup: func() (harness.State, error) {
				return newSequentialWrite(cfg, false)
			},
		},
		{
			Name:              "disk_read_sequential_batched",
			Label:             "Batched Sequential Disk Read",
			BytesPerIteration: batchedReads * batchedBuffer,
			Available:         batchedAvailable,
			Setup: func() (harness.State, error) {
				return newBatchedRead(cfg)
			},
		},
		{
			Name:              "disk_read_sequential_mmap",
			Label:             "Mmap Sequential Disk Read",
			BytesPerIteration: diskReadBuffer,
			Setup: func() (harness.State, error) {
				return newMmapRead(cfg)
			},
		},
		{
			Name:              "disk_write_sequential_fsync",
			Label:             "Sequential Disk Write, Fsync",
			BytesPerIteration: diskWriteBuffer,
			Setup: func() (harness.State, error) {
				return newSequentialWrite(cfg, true)
			},
		},
	}
}

// tempFile is a scratch file removed on Close.
type tempFile struct {
	f *os.File
}

func createTemp(cfg Config) (tempFile, error) {
	f, err := os.CreateTemp(cfg.TempDir, "napkin-*.dat")
	if err != nil {
		return tempFile{}, fmt.Errorf("create temp file in %s: %w", cfg.TempDir, err)
	}

	return tempFile{f: f}, nil
}

// createFilled writes size bytes to a fresh temp file, flushes them to the
// device and rewinds.
func createFilled(cfg Config, size uint64) (tempFile, error) {
	t, err := createTemp(cfg)
	if err != nil {
		return t, err
	}

	cfg.Logger.Info("preparing file",
		slog.String("path", t.f.Name()),
		slog.Uint64("bytes", size),
	)

	chunk := make([]byte, min(size, fillChunk))

	for written := uint64(0); written < size; {
		n := min(size-written, uint64(len(chunk)))
		if _, err := t.f.Write(chunk[:n]); err != nil {
			t.Close()
			return tempFile{}, fmt.Errorf("fill %s: %w", t.f.Name(), err)
		}

		written += n
	}

	if err := syncData(t.f); err != nil {
		t.Close()
		return tempFile{}, fmt.Errorf("sync %s: %w", t.f.Name(), err)
	}

	if _, err := t.f.Seek(0, io.SeekStart); err != nil {
		t.Close()
		return tempFile{}, fmt.Errorf("rewind %s: %w", t.f.Name(), err)
	}

	return t, nil
}

func (t tempFile) Close() error {
	return errors.Join(t.f.Close(), os.Remove(t.f.Name()))
}

type sequentialRead struct {
	tempFile
	buf []byte
}

func newSequentialRead(cfg Config) (*sequentialRead, error) {
	t, err := createFilled(cfg, cfg.DiskSize)
	if err != nil {
		return nil, err
	}

	adviseFile(t.f, adviceSequential)

	return &sequentialRead{tempFile: t, buf: make([]byte, diskReadBuffer)}, nil
}

// Step never reports completion: at end of file it rewinds and keeps going.
func (s *sequentialRead) Step() (bool, error) {
	n, err := s.f.Read(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read %s: %w", s.f.Name(), err)
	}

	if n < len(s.buf) {
		if _, err := s.f.Seek(0, io.SeekStart); err != nil {
			return false, fmt.Errorf("rewind %s: %w", s.f.Name(), err)
		}
	}

	harness.Consume(n)

	return true, nil
}

type randomRead struct {
	tempFile
	buf     []byte
	offsets []int64
	i       int
}

func newRandomRead(cfg Config) (*randomRead, error) {
	page := uint64(os.Getpagesize())
	if cfg.DiskRandomSize < diskRandomBuffer+page {
		return nil, fmt.Errorf("disk random size %d too small for %d byte reads",
			cfg.DiskRandomSize, diskRandomBuffer)
	}

	t, err := createFilled(cfg, cfg.DiskRandomSize)
	if err != nil {
		return nil, err
	}

	// Each page is visited once so the page cache never serves a repeat.
	// The +1 keeps reads unaligned with the page that was just visited.
	pages := int((cfg.DiskRandomSize - diskRandomBuffer) / page)
	order := NewGenerator(cfg.Seed).Order(pages)

	offsets := make([]int64, pages)
	for i, p := range order {
		offsets[i] = int64(uint64(p)*page + 1)
	}

	adviseFile(t.f, adviceRandom)

	return &randomRead{
		tempFile: t,
		buf:      make([]byte, diskRandomBuffer),
		offsets:  offsets,
	}, nil
}

func (s *randomRead) Step() (bool, error) {
	if _, err := s.f.ReadAt(s.buf, s.offsets[s.i]); err != nil {
		return false, fmt.Errorf("read %s at %d: %w", s.f.Name(), s.offsets[s.i], err)
	}

	harness.Consume(s.buf[0])
	s.i++

	return s.i != len(s.offsets), nil
}

type sequentialWrite struct {
	tempFile
	buf  []byte
	sync bool
}

func newSequentialWrite(cfg Config, sync bool) (*sequentialWrite, error) {
	t, err := createTemp(cfg)
	if err != nil {
		return nil, err
	}

	return &sequentialWrite{
		tempFile: t,
		buf:      NewGenerator(cfg.Seed).Bytes(int(diskWriteBuffer)),
		sync:     sync,
	}, nil
}

func (s *sequentialWrite) Step() (bool, error) {
	if _, err := s.f.Write(s.buf); err != nil {
		return false, fmt.Errorf("write %s: %w", s.f.Name(), err)
	}

	if s.sync {
		if err := syncData(s.f); err != nil {
			return false, fmt.Errorf("sync %s: %w", s.f.Name(), err)
		}
	}

	return true, nil
}

type mmapRead struct {
	tempFile
	r      *mmap.ReaderAt
	buf    []byte
	offset int64
}

func newMmapRead(cfg Config) (*mmapRead, error) {
	t, err := createFilled(cfg, cfg.DiskSize)
	if err != nil {
		return nil, err
	}

	r, err := mmap.Open(t.f.Name())
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("mmap %s: %w", t.f.Name(), err)
	}

	return &mmapRead{tempFile: t, r: r, buf: make([]byte, diskReadBuffer)}, nil
}

// Step copies the next window out of the mapping, wrapping at the end.
func (s *mmapRead) Step() (bool, error) {
	if s.offset+int64(len(s.buf)) > int64(s.r.Len()) {
		s.offset = 0
	}

	n, err := s.r.ReadAt(s.buf, s.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read mapping at %d: %w", s.offset, err)
	}

	s.offset += int64(n)
	harness.Consume(s.buf[0])

	return true, nil
}

func (s *mmapRead) Close() error {
	return errors.Join(s.r.Close(), s.tempFile.Close())
}

package workload

import (
	"unsafe"

	"github.com/weiihann/napkin/harness"
)

// line is one 64-byte cache line.
type line [8]uint64

const (
	lineSize = uint64(unsafe.Sizeof(line{}))
	intSize  = int(unsafe.Sizeof(int(0)))
)

type memoryState struct {
	lines []line
	order []int
	i     int
}

func (cfg Config) lineCount() int {
	return int(max(cfg.MemorySize/lineSize, 1))
}

func memoryWorkloads(cfg Config) []harness.Workload {
	return []harness.Workload{
		{
			Name:              "memory_read_sequential",
			Label:             "Read Seq Vec",
			BytesPerIteration: lineSize,
			Setup: func() (harness.State, error) {
				n := cfg.lineCount()
				s := &memoryState{lines: make([]line, n)}
				for i := range s.lines {
					v := uint64(i)
					s.lines[i] = line{v, v, v, v, v, v, v, v}
				}

				return harness.StepFunc(s.readSequential), nil
			},
		},
		{
			Name:              "memory_write_sequential",
			Label:             "Write Seq Vec",
			BytesPerIteration: lineSize,
			Setup: func() (harness.State, error) {
				s := &memoryState{lines: filledLines(cfg.lineCount())}
				return harness.StepFunc(s.writeSequential), nil
			},
		},
		{
			Name:              "memory_read_random",
			Label:             "Random Read Vec",
			BytesPerIteration: lineSize,
			Setup: func() (harness.State, error) {
				s := newRandomMemory(cfg)
				return harness.StepFunc(s.readRandom), nil
			},
		},
		{
			Name:              "memory_write_random",
			Label:             "Random Write Vec",
			BytesPerIteration: lineSize,
			Setup: func() (harness.State, error) {
				s := newRandomMemory(cfg)
				return harness.StepFunc(s.writeRandom), nil
			},
		},
	}
}

func filledLines(n int) []line {
	lines := make([]line, n)
	for i := range lines {
		lines[i] = line{1, 2, 3, 4, 5, 6, 7, 8}
	}

	return lines
}

func newRandomMemory(cfg Config) *memoryState {
	n := cfg.lineCount()
	s := &memoryState{lines: filledLines(n)}
	adviseRandom(asBytes(s.lines))

	s.order = NewGenerator(cfg.Seed).Order(n)
	adviseSequential(unsafe.Slice((*byte)(unsafe.Pointer(&s.order[0])), len(s.order)*intSize))

	return s
}

func asBytes(lines []line) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&lines[0])), len(lines)*int(lineSize))
}

func (s *memoryState) readSequential() (bool, error) {
	harness.Consume(s.lines[s.i])
	s.i++

	return s.i != len(s.lines), nil
}

func (s *memoryState) writeSequential() (bool, error) {
	s.lines[s.i] = line{8, 7, 110694, 5, 4, 3, 2, 1}
	harness.Consume(s.lines[s.i])
	s.i++

	return s.i != len(s.lines), nil
}

func (s *memoryState) readRandom() (bool, error) {
	harness.Consume(s.lines[s.order[s.i]])
	s.i++

	return s.i != len(s.lines), nil
}

func (s *memoryState) writeRandom() (bool, error) {
	j := s.order[s.i]
	s.lines[j] = line{8, 7, 6, 5, 4, 3, 2, 1}
	harness.Consume(s.lines[j])
	s.i++

	return s.i != len(s.lines), nil
}

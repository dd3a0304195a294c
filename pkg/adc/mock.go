package adc

import (
	"errors"
	"fmt"
	"sync"
)

// Op names a Peripheral primitive in the Mock call log.
type Op string

const (
	OpTrigger Op = "trigger"
	OpPoll    Op = "poll"
	OpClear   Op = "clear"
	OpRead    Op = "read"
)

// ErrNotProgrammed is returned when a handle has neither a sequence nor a generator.
var ErrNotProgrammed = errors.New("no data programmed")

// Call is one recorded Peripheral call.
type Call struct {
	Op     Op
	Handle Handle
}

// Mock simulates a converter for testing and development. Each handle returns
// values from a programmed sequence or a generator function.
type Mock struct {
	mu sync.Mutex

	pollsUntilReady int
	record          bool

	inputs map[Handle]*mockInput
	calls  []Call
}

type mockInput struct {
	seq  []uint32
	pos  int
	gen  func() uint32
	hold bool // repeat last value once the sequence is exhausted instead of cycling

	stuck     bool
	pending   int  // polls left before completion
	busy      bool // triggered, not yet complete
	complete  bool // completion flag
	result    uint32
	stale     int // triggers issued while the completion flag was still set
	triggered int
}

// Ensure Mock implements Peripheral.
var _ Peripheral = (*Mock)(nil)

// NewMock creates a mock converter. pollsUntilReady is the number of polls
// that report "not complete" after each trigger.
func NewMock(pollsUntilReady int) *Mock {
	if pollsUntilReady < 0 {
		pollsUntilReady = 0
	}
	return &Mock{
		pollsUntilReady: pollsUntilReady,
		inputs:          make(map[Handle]*mockInput),
	}
}

// Record enables the call log.
func (m *Mock) Record(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = on
}

// Program sets a cyclic sequence of raw values for handle h.
func (m *Mock) Program(h Handle, values ...uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := m.input(h)
	in.seq = append([]uint32(nil), values...)
	in.pos = 0
	in.gen = nil
	in.hold = false
}

// ProgramHold sets a sequence that repeats its last value once exhausted.
func (m *Mock) ProgramHold(h Handle, values ...uint32) {
	m.Program(h, values...)
	m.mu.Lock()
	m.inputs[h].hold = true
	m.mu.Unlock()
}

// Generate sets a generator function for handle h.
func (m *Mock) Generate(h Handle, gen func() uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := m.input(h)
	in.gen = gen
	in.seq = nil
}

// Stick makes handle h never signal completion.
func (m *Mock) Stick(h Handle, stuck bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.input(h).stuck = stuck
}

// Calls returns a copy of the call log.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// StaleTriggers returns how many triggers on h found the completion flag still set.
func (m *Mock) StaleTriggers(h Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input(h).stale
}

// Triggers returns how many conversions were started on h.
func (m *Mock) Triggers(h Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input(h).triggered
}

// Trigger starts a simulated conversion.
func (m *Mock) Trigger(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log(OpTrigger, h)

	in := m.input(h)
	if in.gen == nil && len(in.seq) == 0 {
		return fmt.Errorf("handle %d: %w", h, ErrNotProgrammed)
	}
	if in.complete {
		in.stale++
	}
	in.triggered++
	in.busy = true
	in.pending = m.pollsUntilReady
	in.result = in.next()
	return nil
}

// ConversionComplete reports the completion flag, advancing the simulated
// conversion by one poll.
func (m *Mock) ConversionComplete(h Handle) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log(OpPoll, h)

	in := m.input(h)
	if in.busy && !in.stuck {
		if in.pending > 0 {
			in.pending--
		} else {
			in.busy = false
			in.complete = true
		}
	}
	return in.complete, nil
}

// ClearCompletion clears the completion flag.
func (m *Mock) ClearCompletion(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log(OpClear, h)
	m.input(h).complete = false
	return nil
}

// ReadResult returns the value latched by the last trigger.
func (m *Mock) ReadResult(h Handle) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log(OpRead, h)
	return m.input(h).result, nil
}

func (m *Mock) input(h Handle) *mockInput {
	in, ok := m.inputs[h]
	if !ok {
		in = &mockInput{}
		m.inputs[h] = in
	}
	return in
}

func (m *Mock) log(op Op, h Handle) {
	if m.record {
		m.calls = append(m.calls, Call{Op: op, Handle: h})
	}
}

func (in *mockInput) next() uint32 {
	if in.gen != nil {
		return in.gen()
	}
	if in.pos >= len(in.seq) {
		if in.hold {
			return in.seq[len(in.seq)-1]
		}
		in.pos = 0
	}
	v := in.seq[in.pos]
	in.pos++
	return v
}

package adc

import (
	"fmt"
	"sync"
)

// Reader is a blocking read returning a left-aligned 16-bit code, as
// machine.ADC.Get does on TinyGo.
type Reader interface {
	Get() uint16
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func() uint16

// Get implements Reader.
func (f ReaderFunc) Get() uint16 { return f() }

// Blocking adapts converters that only offer a blocking read to Peripheral.
// The conversion runs inside Trigger and completes immediately. A
// differential handle is built from two single-ended inputs.
type Blocking struct {
	mu     sync.Mutex
	inputs map[Handle]*blockingInput
}

type blockingInput struct {
	pos, neg   Reader
	resolution uint
	complete   bool
	result     uint32
}

var _ Peripheral = (*Blocking)(nil)

// NewBlocking creates an adapter without inputs.
func NewBlocking() *Blocking {
	return &Blocking{inputs: make(map[Handle]*blockingInput)}
}

// AddSingleEnded serves h from r, right-aligned to resolution bits.
func (b *Blocking) AddSingleEnded(h Handle, r Reader, resolution uint) {
	b.add(h, &blockingInput{pos: r, resolution: resolution})
}

// AddDifferential serves h as pos minus neg, offset binary around midscale
// and right-aligned to resolution bits.
func (b *Blocking) AddDifferential(h Handle, pos, neg Reader, resolution uint) {
	b.add(h, &blockingInput{pos: pos, neg: neg, resolution: resolution})
}

func (b *Blocking) add(h Handle, in *blockingInput) {
	if in.resolution == 0 || in.resolution > 16 {
		in.resolution = 16
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inputs[h] = in
}

// Trigger implements Peripheral.
func (b *Blocking) Trigger(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	in, ok := b.inputs[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}

	var code uint32
	if in.neg == nil {
		code = uint32(in.pos.Get())
	} else {
		d := (int32(in.pos.Get()) - int32(in.neg.Get())) / 2
		code = uint32(d + 0x8000)
	}
	in.result = code >> (16 - in.resolution)
	in.complete = true
	return nil
}

// ConversionComplete implements Peripheral.
func (b *Blocking) ConversionComplete(h Handle) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	in, ok := b.inputs[h]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return in.complete, nil
}

// ClearCompletion implements Peripheral.
func (b *Blocking) ClearCompletion(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	in, ok := b.inputs[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	in.complete = false
	return nil
}

// ReadResult implements Peripheral.
func (b *Blocking) ReadResult(h Handle) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	in, ok := b.inputs[h]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return in.result, nil
}

package adc

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConversionTimeout is returned when the completion flag is not observed
	// within the configured timeout.
	ErrConversionTimeout = errors.New("conversion timeout")
	// ErrSampleRange is returned when a result does not fit the channel resolution.
	ErrSampleRange = errors.New("sample out of range")
	// ErrUnknownMode is returned when a mode name cannot be parsed.
	ErrUnknownMode = errors.New("unknown signal mode")
	// ErrModeMismatch is returned when a channel mode disagrees with the input
	// its handle selects.
	ErrModeMismatch = errors.New("mode does not match handle")
	// ErrUnknownHandle is returned for handles a peripheral does not serve.
	ErrUnknownHandle = errors.New("unknown handle")
)

// Mode is the signal mode of a channel.
type Mode int

const (
	// SingleEnded is unsigned, zero volts at raw 0.
	SingleEnded Mode = iota
	// Differential is offset encoded, zero volts at mid-scale.
	Differential
)

func (m Mode) String() string {
	switch m {
	case SingleEnded:
		return "single_ended"
	case Differential:
		return "differential"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the canonical mode names.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "single_ended":
		return SingleEnded, nil
	case "differential":
		return Differential, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Handle identifies a converter input on a Peripheral. Its meaning belongs to
// the peripheral (SOC number, multiplexer setting, pin index).
type Handle int

// Channel is the static description of one conversion channel.
type Channel struct {
	Index      int
	Name       string
	Mode       Mode
	Resolution uint    // bits
	FullScale  float64 // volts
	Handle     Handle

	// Scale overrides the V/LSB factor derived from FullScale when non-zero.
	Scale float64
	// Gain and Offset apply a linear correction after scaling. Gain 0 means 1.
	Gain   float64
	Offset float64

	// SelfCheckMargin is the distance in counts from either end of the range
	// below which a sample is considered pinned. 0 derives it from Resolution.
	SelfCheckMargin uint32
}

// Span returns 2^Resolution.
func (c Channel) Span() uint64 {
	return uint64(1) << c.Resolution
}

// MaxRaw returns the largest representable raw value.
func (c Channel) MaxRaw() uint32 {
	return uint32(c.Span() - 1)
}

// Midscale returns the raw value that represents zero volts in differential mode.
func (c Channel) Midscale() uint32 {
	if c.Resolution == 0 {
		return 0
	}
	return uint32(c.Span() >> 1)
}

// Margin returns the self-check margin in counts.
// Derived margins are 1/512 of the span, at least one count.
func (c Channel) Margin() uint32 {
	if c.SelfCheckMargin > 0 {
		return c.SelfCheckMargin
	}
	m := uint32(c.Span() >> 9)
	if m == 0 {
		m = 1
	}
	return m
}

// RawSample is the result of one conversion.
type RawSample struct {
	Channel   int
	Value     uint32
	Timestamp time.Time
}

// Peripheral is the platform layer the source composes into a blocking
// acquisition. All calls are expected to return promptly.
type Peripheral interface {
	Trigger(h Handle) error
	ConversionComplete(h Handle) (bool, error)
	ClearCompletion(h Handle) error
	ReadResult(h Handle) (uint32, error)
}

package adc

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Source turns the non-blocking Peripheral primitives into a blocking,
// one-conversion-per-call acquisition.
type Source struct {
	p       Peripheral
	timeout time.Duration
	poll    time.Duration
	now     func() time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithTimeout bounds the wait for the completion flag. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) { s.timeout = d }
}

// WithPollInterval sleeps between completion checks instead of yielding.
func WithPollInterval(d time.Duration) Option {
	return func(s *Source) { s.poll = d }
}

// WithClock replaces time.Now, used for timestamps and timeout accounting.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// NewSource creates a Source on top of the peripheral.
func NewSource(p Peripheral, opts ...Option) *Source {
	s := &Source{
		p:   p,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire triggers one conversion on ch and blocks until its result is read.
// The completion flag is cleared before the result register is read so the
// next trigger cannot observe a stale flag.
func (s *Source) Acquire(ctx context.Context, ch Channel) (RawSample, error) {
	if err := s.p.Trigger(ch.Handle); err != nil {
		return RawSample{}, fmt.Errorf("channel %d: trigger: %w", ch.Index, err)
	}

	if err := s.wait(ctx, ch); err != nil {
		return RawSample{}, err
	}

	if err := s.p.ClearCompletion(ch.Handle); err != nil {
		return RawSample{}, fmt.Errorf("channel %d: clear completion: %w", ch.Index, err)
	}

	value, err := s.p.ReadResult(ch.Handle)
	if err != nil {
		return RawSample{}, fmt.Errorf("channel %d: read result: %w", ch.Index, err)
	}
	if value > ch.MaxRaw() {
		return RawSample{}, fmt.Errorf("channel %d: %w: %d > %d", ch.Index, ErrSampleRange, value, ch.MaxRaw())
	}

	return RawSample{
		Channel:   ch.Index,
		Value:     value,
		Timestamp: s.now(),
	}, nil
}

func (s *Source) wait(ctx context.Context, ch Channel) error {
	start := s.now()
	for {
		done, err := s.p.ConversionComplete(ch.Handle)
		if err != nil {
			return fmt.Errorf("channel %d: poll completion: %w", ch.Index, err)
		}
		if done {
			return nil
		}

		if s.timeout > 0 {
			if waited := s.now().Sub(start); waited >= s.timeout {
				return fmt.Errorf("channel %d: %w after %s", ch.Index, ErrConversionTimeout, waited)
			}
		}

		if s.poll > 0 {
			t := time.NewTimer(s.poll)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
}

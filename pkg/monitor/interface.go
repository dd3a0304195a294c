package monitor

import (
	"context"
	"time"

	"github.com/itohio/adcmon/pkg/adc"
	"github.com/itohio/adcmon/pkg/stats"
)

// Acquirer performs one blocking conversion on a channel.
type Acquirer interface {
	Acquire(ctx context.Context, ch adc.Channel) (adc.RawSample, error)
}

// Reading is one channel's result within a round.
type Reading struct {
	Channel   int
	Name      string
	Raw       uint32
	Voltage   float64
	Timestamp time.Time
}

// Summary is one channel's statistics for a batch. NoData is set when the
// window was empty; the embedded values are then zero and must not be shown.
type Summary struct {
	Channel int
	Name    string
	stats.Summary
	NoData bool
}

// ChannelCheck is the self-check verdict for one channel.
type ChannelCheck struct {
	Channel   int
	Name      string
	Raw       uint32
	Voltage   float64
	Plausible bool
	Err       error // ErrImplausibleReading when not plausible
}

// SelfCheckResult is the outcome of the initial acquisition round.
type SelfCheckResult struct {
	Passed   bool
	Channels []ChannelCheck
}

// Reporter receives everything the loop produces. Errors are logged and
// never stop the loop.
type Reporter interface {
	SelfCheck(res SelfCheckResult) error
	Readings(round uint64, readings []Reading) error
	Statistics(round uint64, summaries []Summary) error
}

// Indicator is the liveness light.
type Indicator interface {
	Set(on bool) error
	Toggle() error
}

// Pacer delays between rounds.
type Pacer interface {
	Delay(ctx context.Context, d time.Duration) error
}

// SleepPacer waits on a timer, returning early with ctx.Err() when cancelled.
type SleepPacer struct{}

// Delay implements Pacer.
func (SleepPacer) Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopIndicator struct{}

func (nopIndicator) Set(bool) error { return nil }
func (nopIndicator) Toggle() error  { return nil }

type nopReporter struct{}

func (nopReporter) SelfCheck(SelfCheckResult) error    { return nil }
func (nopReporter) Readings(uint64, []Reading) error   { return nil }
func (nopReporter) Statistics(uint64, []Summary) error { return nil }

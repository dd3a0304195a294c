package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/itohio/adcmon/pkg/adc"
	"github.com/itohio/adcmon/pkg/calibration"
	"github.com/itohio/adcmon/pkg/stats"
)

// State of the monitoring loop.
type State int32

const (
	Initializing State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// DefaultBatchSize is the number of rounds per statistics batch.
const DefaultBatchSize = 10

// Config contains the loop timing and batching parameters.
type Config struct {
	BatchSize int
	Period    time.Duration // Delay after each round
	Settle    time.Duration // Delay before the self-check
	Blink     time.Duration // Indicator on-time after a passed self-check
	Rounds    int           // Stop after this many rounds, 0 = never
}

// Option configures a Loop.
type Option func(*Loop)

// WithIndicator sets the liveness indicator.
func WithIndicator(ind Indicator) Option {
	return func(l *Loop) { l.indicator = ind }
}

// WithPacer replaces the default SleepPacer.
func WithPacer(p Pacer) Option {
	return func(l *Loop) { l.pacer = p }
}

// Loop runs acquisition rounds over an ordered list of channels and keeps one
// statistics window per channel.
//
// Run, Round and FlushStatistics must be called from a single goroutine.
// Statistics, Rounds and State may be called concurrently.
type Loop struct {
	cfg       Config
	channels  []adc.Channel
	source    Acquirer
	windows   []*stats.Window
	reporter  Reporter
	indicator Indicator
	pacer     Pacer

	round atomic.Uint64
	state atomic.Int32
}

// New creates a Loop. A nil reporter discards all reports.
func New(cfg Config, channels []adc.Channel, source Acquirer, reporter Reporter, opts ...Option) *Loop {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if reporter == nil {
		reporter = nopReporter{}
	}

	l := &Loop{
		cfg:       cfg,
		channels:  append([]adc.Channel(nil), channels...),
		source:    source,
		windows:   make([]*stats.Window, len(channels)),
		reporter:  reporter,
		indicator: nopIndicator{},
		pacer:     SleepPacer{},
	}
	for i, ch := range channels {
		lo, hi := calibration.Range(ch)
		l.windows[i] = stats.NewWindow(math.Max(math.Abs(lo), math.Abs(hi)))
	}
	for _, opt := range opts {
		opt(l)
	}
	l.state.Store(int32(Initializing))

	return l
}

// Channels returns the configured channels in acquisition order.
func (l *Loop) Channels() []adc.Channel {
	return append([]adc.Channel(nil), l.channels...)
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Rounds returns the number of completed rounds.
func (l *Loop) Rounds() uint64 {
	return l.round.Load()
}

// Run performs the self-check and then monitors until ctx is cancelled, the
// round limit is reached, or an acquisition fails. A partially filled batch
// is flushed before returning. Cancellation is not an error.
func (l *Loop) Run(ctx context.Context) error {
	l.state.Store(int32(Initializing))
	defer l.state.Store(int32(Stopped))

	if err := l.pacer.Delay(ctx, l.cfg.Settle); err != nil {
		return nil
	}

	res, err := l.SelfCheck(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("self-check: %w", err)
	}
	if res.Passed {
		log.Printf("Self-check passed")
	} else {
		log.Printf("Self-check warning: no channel produced a plausible reading")
	}
	if err := l.reporter.SelfCheck(res); err != nil {
		log.Printf("Failed to report self-check: %v", err)
	}
	if res.Passed {
		l.blink(ctx)
	}

	l.ResetStatistics()
	l.state.Store(int32(Running))

	for {
		if err := l.Round(ctx); err != nil {
			l.flushPartial()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if l.cfg.Rounds > 0 && l.Rounds() >= uint64(l.cfg.Rounds) {
			l.flushPartial()
			return nil
		}

		if err := l.pacer.Delay(ctx, l.cfg.Period); err != nil {
			l.flushPartial()
			return nil
		}
	}
}

// Round acquires and calibrates every channel in order, updates the
// statistics, reports the readings and flushes the statistics at the end of
// each batch. A failed acquisition leaves the statistics and the round
// counter untouched.
func (l *Loop) Round(ctx context.Context) error {
	readings := make([]Reading, 0, len(l.channels))
	for _, ch := range l.channels {
		raw, err := l.source.Acquire(ctx, ch)
		if err != nil {
			return err
		}
		readings = append(readings, Reading{
			Channel:   ch.Index,
			Name:      ch.Name,
			Raw:       raw.Value,
			Voltage:   calibration.Voltage(raw.Value, ch),
			Timestamp: raw.Timestamp,
		})
	}

	for i, r := range readings {
		l.windows[i].Update(r.Voltage)
	}

	if err := l.reporter.Readings(l.round.Load(), readings); err != nil {
		log.Printf("Failed to report readings: %v", err)
	}

	if err := l.indicator.Toggle(); err != nil {
		log.Printf("Failed to toggle indicator: %v", err)
	}

	n := l.round.Add(1)
	if n%uint64(l.cfg.BatchSize) == 0 {
		l.FlushStatistics()
	}

	return nil
}

// FlushStatistics snapshots and resets every window and reports the result.
func (l *Loop) FlushStatistics() []Summary {
	summaries := make([]Summary, len(l.channels))
	for i, ch := range l.channels {
		s, err := l.windows[i].Flush()
		summaries[i] = Summary{
			Channel: ch.Index,
			Name:    ch.Name,
			Summary: s,
			NoData:  errors.Is(err, stats.ErrNoData),
		}
	}

	if err := l.reporter.Statistics(l.round.Load(), summaries); err != nil {
		log.Printf("Failed to report statistics: %v", err)
	}

	return summaries
}

// Statistics snapshots every window without resetting it.
func (l *Loop) Statistics() []Summary {
	summaries := make([]Summary, len(l.channels))
	for i, ch := range l.channels {
		s, err := l.windows[i].Snapshot()
		summaries[i] = Summary{
			Channel: ch.Index,
			Name:    ch.Name,
			Summary: s,
			NoData:  errors.Is(err, stats.ErrNoData),
		}
	}
	return summaries
}

// ResetStatistics empties every window.
func (l *Loop) ResetStatistics() {
	for _, w := range l.windows {
		w.Reset()
	}
}

func (l *Loop) flushPartial() {
	for _, w := range l.windows {
		if w.Count() > 0 {
			l.FlushStatistics()
			return
		}
	}
}

func (l *Loop) blink(ctx context.Context) {
	if err := l.indicator.Set(true); err != nil {
		log.Printf("Failed to set indicator: %v", err)
		return
	}
	_ = l.pacer.Delay(ctx, l.cfg.Blink)
	if err := l.indicator.Set(false); err != nil {
		log.Printf("Failed to clear indicator: %v", err)
	}
}

package stats

import (
	"errors"
	"math"
	"sync"
)

// SentinelFactor scales the largest voltage magnitude a channel can report to
// obtain the initial min/max.
const SentinelFactor = 4.0

// ErrNoData is returned by Snapshot when no value was accumulated since the last reset.
var ErrNoData = errors.New("no data")

// Summary is the derived view of a window.
type Summary struct {
	Min        float64 // V
	Max        float64 // V
	Average    float64 // V
	PeakToPeak float64 // V
	Count      int
}

// PeakToPeakMillivolts returns PeakToPeak in millivolts.
func (s Summary) PeakToPeakMillivolts() float64 {
	return s.PeakToPeak * 1000
}

// Window accumulates min, max, sum and count of the voltages of one channel
// over a batch. It is safe for concurrent use.
type Window struct {
	mu       sync.Mutex
	sentinel float64

	min   float64
	max   float64
	sum   float64
	count int
}

// NewWindow creates a reset window for a channel whose voltages stay within
// ±reach.
func NewWindow(reach float64) *Window {
	w := &Window{sentinel: Sentinel(reach)}
	w.Reset()
	return w
}

// Sentinel returns the initial |min|/|max| for a channel reaching ±reach.
func Sentinel(reach float64) float64 {
	s := math.Abs(reach) * SentinelFactor
	if s == 0 {
		s = SentinelFactor
	}
	return s
}

// Reset clears the accumulated values.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.min = w.sentinel
	w.max = -w.sentinel
	w.sum = 0
	w.count = 0
}

// Update folds v into the window. NaN values are ignored. The first value
// after a reset replaces both sentinels.
func (w *Window) Update(v float64) {
	if math.IsNaN(v) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count == 0 {
		w.min, w.max = v, v
	}
	if v < w.min {
		w.min = v
	}
	if v > w.max {
		w.max = v
	}
	w.sum += v
	w.count++
}

// Count returns the number of values accumulated since the last reset.
func (w *Window) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Snapshot derives the summary. The average is computed from the actual
// count. An empty window yields ErrNoData and a zero summary.
func (w *Window) Snapshot() (Summary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

// Flush returns the summary and resets the window atomically.
func (w *Window) Flush() (Summary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.snapshot()
	w.min = w.sentinel
	w.max = -w.sentinel
	w.sum = 0
	w.count = 0
	return s, err
}

func (w *Window) snapshot() (Summary, error) {
	if w.count == 0 {
		return Summary{}, ErrNoData
	}
	return Summary{
		Min:        w.min,
		Max:        w.max,
		Average:    w.sum / float64(w.count),
		PeakToPeak: w.max - w.min,
		Count:      w.count,
	}, nil
}

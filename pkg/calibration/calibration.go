// Package calibration maps raw conversion results to volts.
package calibration

import (
	"math"

	"github.com/itohio/adcmon/pkg/adc"
)

// Scale returns the volts per LSB of ch: the explicit Scale when set,
// otherwise FullScale / 2^Resolution.
func Scale(ch adc.Channel) float64 {
	if ch.Scale > 0 {
		return ch.Scale
	}
	return ch.FullScale / float64(ch.Span())
}

// Voltage converts a raw sample of ch to volts.
//
// Differential: (raw - 2^(N-1)) * scale, zero volts at mid-scale.
// Single-ended: raw * scale, zero volts at raw 0.
func Voltage(raw uint32, ch adc.Channel) float64 {
	var v float64
	switch ch.Mode {
	case adc.Differential:
		v = float64(int64(raw)-int64(ch.Midscale())) * Scale(ch)
	default:
		v = float64(raw) * Scale(ch)
	}
	return correct(v, ch)
}

// Raw returns the raw value closest to volts, clamped to the channel range.
// It is the inverse of Voltage and is used to synthesize samples.
func Raw(volts float64, ch adc.Channel) uint32 {
	gain := ch.Gain
	if gain == 0 {
		gain = 1
	}
	counts := (volts - ch.Offset) / gain / Scale(ch)
	if ch.Mode == adc.Differential {
		counts += float64(ch.Midscale())
	}
	counts = math.Round(counts)
	if counts <= 0 || math.IsNaN(counts) {
		return 0
	}
	if counts >= float64(ch.MaxRaw()) {
		return ch.MaxRaw()
	}
	return uint32(counts)
}

// Range returns the lowest and highest voltage ch can report.
func Range(ch adc.Channel) (lo, hi float64) {
	lo, hi = Voltage(0, ch), Voltage(ch.MaxRaw(), ch)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

func correct(v float64, ch adc.Channel) float64 {
	if ch.Gain != 0 {
		v *= ch.Gain
	}
	return v + ch.Offset
}

package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/itohio/adcmon/pkg/adc"
	"github.com/itohio/adcmon/pkg/calibration"
)

// ErrImplausibleReading marks a self-check sample pinned near either end of
// its channel's range.
var ErrImplausibleReading = errors.New("implausible reading")

// Plausible reports whether raw is farther than the channel margin from both
// ends of the representable range.
func Plausible(raw uint32, ch adc.Channel) bool {
	margin := uint64(ch.Margin())
	top := uint64(ch.MaxRaw())
	if top <= 2*margin {
		return false
	}
	return uint64(raw) > margin && uint64(raw) < top-margin
}

// Evaluate applies the self-check policy to one raw sample per channel:
// the check passes when at least one channel is plausible.
func Evaluate(channels []adc.Channel, raws []uint32) SelfCheckResult {
	res := SelfCheckResult{Channels: make([]ChannelCheck, 0, len(channels))}
	for i, ch := range channels {
		c := ChannelCheck{
			Channel: ch.Index,
			Name:    ch.Name,
			Raw:     raws[i],
			Voltage: calibration.Voltage(raws[i], ch),
		}
		if Plausible(raws[i], ch) {
			c.Plausible = true
			res.Passed = true
		} else {
			c.Err = fmt.Errorf("channel %d raw %d within %d counts of range limits: %w", ch.Index, raws[i], ch.Margin(), ErrImplausibleReading)
		}
		res.Channels = append(res.Channels, c)
	}
	return res
}

// SelfCheck acquires one sample per channel and evaluates it. Acquisition
// failures are returned; implausible samples are not errors.
func (l *Loop) SelfCheck(ctx context.Context) (SelfCheckResult, error) {
	raws := make([]uint32, len(l.channels))
	for i, ch := range l.channels {
		s, err := l.source.Acquire(ctx, ch)
		if err != nil {
			return SelfCheckResult{}, err
		}
		raws[i] = s.Value
	}
	return Evaluate(l.channels, raws), nil
}

package calibration

import (
	"testing"

	"github.com/itohio/adcmon/pkg/adc"
	"github.com/stretchr/testify/assert"
)

var (
	diff16 = adc.Channel{Index: 0, Mode: adc.Differential, Resolution: 16, FullScale: 3.3}
	se12   = adc.Channel{Index: 1, Mode: adc.SingleEnded, Resolution: 12, FullScale: 3.3}
)

func TestScale(t *testing.T) {
	assert.InDelta(t, 0.0000503540039, Scale(diff16), 1e-12)
	assert.InDelta(t, 0.00080566406, Scale(se12), 1e-10)

	explicit := se12
	explicit.Scale = 0.001
	assert.Equal(t, 0.001, Scale(explicit))
}

func TestVoltage_Differential(t *testing.T) {
	lsb := Scale(diff16)

	assert.Equal(t, 0.0, Voltage(32768, diff16))
	assert.InDelta(t, -1.65, Voltage(0, diff16), 1e-12)
	assert.InDelta(t, 1.65-lsb, Voltage(65535, diff16), 1e-12)
	assert.InDelta(t, 0.0504, Voltage(32768+1000, diff16), 1e-4)
	assert.InDelta(t, -0.0252, Voltage(32768-500, diff16), 1e-4)
}

func TestVoltage_SingleEnded(t *testing.T) {
	lsb := Scale(se12)

	assert.Equal(t, 0.0, Voltage(0, se12))
	assert.InDelta(t, 3.3-lsb, Voltage(4095, se12), 1e-12)
	assert.InDelta(t, 1.611, Voltage(2000, se12), 1e-3)
}

func TestVoltage_OtherWidths(t *testing.T) {
	tests := []struct {
		name string
		ch   adc.Channel
		raw  uint32
		want float64
	}{
		{"diff 12-bit midscale", adc.Channel{Mode: adc.Differential, Resolution: 12, FullScale: 5}, 2048, 0},
		{"diff 24-bit bottom", adc.Channel{Mode: adc.Differential, Resolution: 24, FullScale: 2.5}, 0, -1.25},
		{"se 10-bit half", adc.Channel{Mode: adc.SingleEnded, Resolution: 10, FullScale: 5}, 512, 2.5},
		{"se 16-bit zero", adc.Channel{Mode: adc.SingleEnded, Resolution: 16, FullScale: 1.8}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Voltage(tt.raw, tt.ch), 1e-9)
		})
	}
}

func TestVoltage_GainOffset(t *testing.T) {
	ch := se12
	ch.Gain = 2
	ch.Offset = -0.1

	assert.InDelta(t, 2*Voltage(2000, se12)-0.1, Voltage(2000, ch), 1e-12)
}

func TestRaw_Inverse(t *testing.T) {
	for _, ch := range []adc.Channel{diff16, se12} {
		for _, raw := range []uint32{0, 1, 100, ch.Midscale(), ch.MaxRaw() - 1, ch.MaxRaw()} {
			assert.Equal(t, raw, Raw(Voltage(raw, ch), ch), "%s raw %d", ch.Mode, raw)
		}
	}

	assert.Equal(t, uint32(0), Raw(-10, se12))
	assert.Equal(t, se12.MaxRaw(), Raw(10, se12))
	assert.Equal(t, uint32(0), Raw(-10, diff16))
}

func TestRange(t *testing.T) {
	lo, hi := Range(diff16)
	assert.InDelta(t, -1.65, lo, 1e-9)
	assert.InDelta(t, 1.65, hi, 1e-4)

	lo, hi = Range(se12)
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, 3.3, hi, 1e-3)
}

package adc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v uint16) Reader {
	return ReaderFunc(func() uint16 { return v })
}

func TestBlocking_SingleEnded(t *testing.T) {
	tests := []struct {
		name       string
		code       uint16
		resolution uint
		want       uint32
	}{
		{"12-bit zero", 0x0000, 12, 0},
		{"12-bit full", 0xFFF0, 12, 4095},
		{"12-bit mid", 0x7D00, 12, 2000},
		{"16-bit", 0x1234, 16, 0x1234},
		{"resolution clamps to 16", 0xABCD, 20, 0xABCD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBlocking()
			b.AddSingleEnded(3, constant(tt.code), tt.resolution)

			require.NoError(t, b.Trigger(3))
			done, err := b.ConversionComplete(3)
			require.NoError(t, err)
			assert.True(t, done)

			v, err := b.ReadResult(3)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestBlocking_Differential(t *testing.T) {
	tests := []struct {
		name     string
		pos, neg uint16
		want     uint32
	}{
		{"equal inputs sit at midscale", 0x4000, 0x4000, 32768},
		{"positive", 0xFFFF, 0x0000, 65535},
		{"negative", 0x0000, 0xFFFF, 1},
		{"small positive", 0x4100, 0x4000, 32768 + 0x80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBlocking()
			b.AddDifferential(0, constant(tt.pos), constant(tt.neg), 16)

			require.NoError(t, b.Trigger(0))
			v, err := b.ReadResult(0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestBlocking_Acquire(t *testing.T) {
	b := NewBlocking()
	b.AddSingleEnded(1, constant(0x8000), 12)
	ch := Channel{Index: 1, Mode: SingleEnded, Resolution: 12, FullScale: 3.3, Handle: 1}

	s, err := NewSource(b).Acquire(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, uint32(2048), s.Value)

	done, err := b.ConversionComplete(1)
	require.NoError(t, err)
	assert.False(t, done, "completion is cleared before the read")
}

func TestBlocking_UnknownHandle(t *testing.T) {
	b := NewBlocking()

	assert.ErrorIs(t, b.Trigger(9), ErrUnknownHandle)
	_, err := b.ConversionComplete(9)
	assert.ErrorIs(t, err, ErrUnknownHandle)
	assert.ErrorIs(t, b.ClearCompletion(9), ErrUnknownHandle)
	_, err = b.ReadResult(9)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

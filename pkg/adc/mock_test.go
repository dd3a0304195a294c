package adc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convert(t *testing.T, m *Mock, h Handle) uint32 {
	t.Helper()
	require.NoError(t, m.Trigger(h))
	for {
		done, err := m.ConversionComplete(h)
		require.NoError(t, err)
		if done {
			break
		}
	}
	require.NoError(t, m.ClearCompletion(h))
	v, err := m.ReadResult(h)
	require.NoError(t, err)
	return v
}

func TestMock_ProgramCycles(t *testing.T) {
	m := NewMock(0)
	m.Program(0, 1, 2, 3)

	var got []uint32
	for i := 0; i < 5; i++ {
		got = append(got, convert(t, m, 0))
	}
	assert.Equal(t, []uint32{1, 2, 3, 1, 2}, got)
}

func TestMock_ProgramHold(t *testing.T) {
	m := NewMock(0)
	m.ProgramHold(0, 1, 2)

	var got []uint32
	for i := 0; i < 4; i++ {
		got = append(got, convert(t, m, 0))
	}
	assert.Equal(t, []uint32{1, 2, 2, 2}, got)
}

func TestMock_Generate(t *testing.T) {
	m := NewMock(0)
	n := uint32(10)
	m.Generate(2, func() uint32 { n++; return n })

	assert.Equal(t, uint32(11), convert(t, m, 2))
	assert.Equal(t, uint32(12), convert(t, m, 2))
}

func TestMock_PollsUntilReady(t *testing.T) {
	m := NewMock(2)
	m.Program(0, 5)
	require.NoError(t, m.Trigger(0))

	for i := 0; i < 2; i++ {
		done, err := m.ConversionComplete(0)
		require.NoError(t, err)
		assert.False(t, done)
	}
	done, err := m.ConversionComplete(0)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMock_StaleFlag(t *testing.T) {
	m := NewMock(0)
	m.Program(0, 5)

	require.NoError(t, m.Trigger(0))
	done, _ := m.ConversionComplete(0)
	require.True(t, done)

	// retrigger without clearing: the flag is still up and a wait would
	// succeed immediately
	require.NoError(t, m.Trigger(0))
	assert.Equal(t, 1, m.StaleTriggers(0))
	done, _ = m.ConversionComplete(0)
	assert.True(t, done)
}

func TestMock_IdleHandleNeverCompletes(t *testing.T) {
	m := NewMock(0)
	done, err := m.ConversionComplete(3)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestMock_RecordOff(t *testing.T) {
	m := NewMock(0)
	m.Program(0, 1)
	convert(t, m, 0)
	assert.Empty(t, m.Calls())
}

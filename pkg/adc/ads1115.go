//go:build !tinygo

package adc

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01

	ads1115ConfigOS     = 0x8000 // write: start single conversion, read: 1 = idle
	ads1115ConfigSingle = 0x0100 // single-shot mode
	ads1115CompDisable  = 0x0003

	// ADS1115Address is the address with ADDR tied to ground.
	ADS1115Address = 0x48
)

// ADS1115 handles. Single-ended inputs are measured against ground; the
// differential pairs follow the device multiplexer table.
const (
	ADS1115AIN0 Handle = iota
	ADS1115AIN1
	ADS1115AIN2
	ADS1115AIN3
	ADS1115AIN0AIN1
	ADS1115AIN0AIN3
	ADS1115AIN1AIN3
	ADS1115AIN2AIN3
)

var ads1115Ranges = []struct {
	volts float64
	bits  uint16
}{
	{6.144, 0x0},
	{4.096, 0x1},
	{2.048, 0x2},
	{1.024, 0x3},
	{0.512, 0x4},
	{0.256, 0x5},
}

var ads1115Rates = map[int]uint16{
	8:   0x0,
	16:  0x1,
	32:  0x2,
	64:  0x3,
	128: 0x4,
	250: 0x5,
	475: 0x6,
	860: 0x7,
}

// ADS1115 drives a TI ADS1115 in single-shot mode over I2C. The completion
// flag is the OS bit of the config register, latched per handle until cleared.
type ADS1115 struct {
	dev *i2c.Dev

	pga uint16
	dr  uint16

	mu       sync.Mutex
	busy     map[Handle]bool
	complete map[Handle]bool
}

// Ensure ADS1115 implements Peripheral.
var _ Peripheral = (*ADS1115)(nil)

// NewADS1115 creates the peripheral. fullScale selects the programmable gain
// (one of 6.144, 4.096, 2.048, 1.024, 0.512, 0.256 volts) and sampleRate the
// data rate in samples per second; unknown rates fall back to 128 SPS.
func NewADS1115(bus i2c.Bus, addr uint16, fullScale float64, sampleRate int) (*ADS1115, error) {
	pga, ok := uint16(0), false
	for _, r := range ads1115Ranges {
		if r.volts == fullScale {
			pga, ok = r.bits, true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("ads1115: unsupported full scale %.3fV", fullScale)
	}
	dr, ok := ads1115Rates[sampleRate]
	if !ok {
		dr = ads1115Rates[128]
	}
	return &ADS1115{
		dev:      &i2c.Dev{Addr: addr, Bus: bus},
		pga:      pga,
		dr:       dr,
		busy:     make(map[Handle]bool),
		complete: make(map[Handle]bool),
	}, nil
}

// ADS1115Differential reports whether h selects a differential pair.
func ADS1115Differential(h Handle) bool {
	return h >= ADS1115AIN0AIN1 && h <= ADS1115AIN2AIN3
}

// ADS1115Channel fits ch to the code range the device returns at the given
// full scale: differential pairs are 16-bit offset binary spanning
// ±fullScale, single-ended inputs are 15-bit spanning [0, fullScale]. The
// channel mode must match the handle.
func ADS1115Channel(ch Channel, fullScale float64) (Channel, error) {
	if ch.Handle < ADS1115AIN0 || ch.Handle > ADS1115AIN2AIN3 {
		return ch, fmt.Errorf("ads1115: channel %s: %w: %d", ch.Name, ErrUnknownHandle, ch.Handle)
	}
	diff := ADS1115Differential(ch.Handle)
	if diff != (ch.Mode == Differential) {
		return ch, fmt.Errorf("ads1115: channel %s: %w: handle %d does not select a %s input", ch.Name, ErrModeMismatch, ch.Handle, ch.Mode)
	}
	if diff {
		ch.Resolution = 16
		ch.FullScale = 2 * fullScale
	} else {
		ch.Resolution = 15
		ch.FullScale = fullScale
	}
	return ch, nil
}

func (a *ADS1115) config(h Handle) (byte, byte, error) {
	var mux uint16
	switch {
	case h >= ADS1115AIN0 && h <= ADS1115AIN3:
		mux = 0x4 + uint16(h)
	case ADS1115Differential(h):
		mux = uint16(h - ADS1115AIN0AIN1)
	default:
		return 0, 0, fmt.Errorf("ads1115: %w: %d", ErrUnknownHandle, h)
	}
	cfg := uint16(ads1115ConfigOS)
	cfg |= mux << 12
	cfg |= a.pga << 9
	cfg |= ads1115ConfigSingle
	cfg |= a.dr << 5
	cfg |= ads1115CompDisable
	return byte(cfg >> 8), byte(cfg & 0xFF), nil
}

// Trigger writes the config register with the OS bit set.
func (a *ADS1115) Trigger(h Handle) error {
	msb, lsb, err := a.config(h)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	a.busy[h] = true
	return nil
}

// ConversionComplete reads the OS bit while a conversion on h is in flight.
func (a *ADS1115) ConversionComplete(h Handle) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.complete[h] {
		return true, nil
	}
	if !a.busy[h] {
		return false, nil
	}
	buf := make([]byte, 2)
	if err := a.dev.Tx([]byte{pointerConfig}, buf); err != nil {
		return false, fmt.Errorf("read config: %w", err)
	}
	if buf[0]&byte(ads1115ConfigOS>>8) != 0 {
		a.busy[h] = false
		a.complete[h] = true
	}
	return a.complete[h], nil
}

// ClearCompletion drops the latched completion flag of h.
func (a *ADS1115) ClearCompletion(h Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.complete[h] = false
	return nil
}

// ReadResult reads the conversion register. Differential results are offset
// encoded into [0, 65535]; single-ended results are clamped to [0, 32767].
func (a *ADS1115) ReadResult(h Handle) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf := make([]byte, 2)
	if err := a.dev.Tx([]byte{pointerConv}, buf); err != nil {
		return 0, fmt.Errorf("read conv: %w", err)
	}
	v := int16(uint16(buf[0])<<8 | uint16(buf[1]))
	if ADS1115Differential(h) {
		return uint32(int32(v) + 32768), nil
	}
	if v < 0 {
		return 0, nil
	}
	return uint32(v), nil
}

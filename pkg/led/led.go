// Package led drives the liveness indicator.
package led

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// GPIO is an indicator on a digital output pin.
type GPIO struct {
	mu  sync.Mutex
	pin gpio.PinOut
	on  bool
}

// New wraps pin and drives it low.
func New(pin gpio.PinOut) (*GPIO, error) {
	g := &GPIO{pin: pin}
	if err := g.Set(false); err != nil {
		return nil, err
	}
	return g, nil
}

// Open looks up a pin by name in the periph registry. host.Init must have
// been called.
func Open(name string) (*GPIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("led: unknown pin %q", name)
	}
	return New(p)
}

// Set drives the pin.
func (g *GPIO) Set(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set(on)
}

// Toggle inverts the pin.
func (g *GPIO) Toggle() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set(!g.on)
}

func (g *GPIO) set(on bool) error {
	if err := g.pin.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("led %s: %w", g.pin, err)
	}
	g.on = on
	return nil
}

// Log is an indicator for hosts without a spare pin. Set is logged, Toggle
// only flips the state.
type Log struct {
	mu sync.Mutex
	on bool
}

// Set implements monitor.Indicator.
func (l *Log) Set(on bool) error {
	l.mu.Lock()
	l.on = on
	l.mu.Unlock()
	log.Printf("LED %s", state(on))
	return nil
}

// Toggle implements monitor.Indicator.
func (l *Log) Toggle() error {
	l.mu.Lock()
	l.on = !l.on
	l.mu.Unlock()
	return nil
}

// On reports the current state.
func (l *Log) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func state(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

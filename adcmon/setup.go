package main

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"

	"github.com/itohio/adcmon/pkg/adc"
	"github.com/itohio/adcmon/pkg/calibration"
	"github.com/itohio/adcmon/pkg/config"
	"github.com/itohio/adcmon/pkg/led"
	"github.com/itohio/adcmon/pkg/monitor"
	"github.com/itohio/adcmon/pkg/report"
	"github.com/itohio/adcmon/pkg/report/mqtt"
	"github.com/itohio/adcmon/pkg/report/text"
	"github.com/itohio/adcmon/pkg/serialport"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const title = "ADC Test"

var hostInit = sync.OnceValue(func() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	return nil
})

// channelsFromConfig converts the configured channels into acquisition order.
// For the ADS1115 the resolution and full scale follow the device range.
func channelsFromConfig(cfg *config.Config) ([]adc.Channel, error) {
	channels := make([]adc.Channel, 0, len(cfg.Channels))
	for i, c := range cfg.Channels {
		mode, err := adc.ParseMode(c.Mode)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", c.Name, err)
		}
		ch := adc.Channel{
			Index:           i,
			Name:            c.Name,
			Mode:            mode,
			Resolution:      uint(c.Resolution),
			FullScale:       c.FullScale,
			Handle:          adc.Handle(c.Handle),
			Scale:           c.Scale,
			Gain:            c.Gain,
			Offset:          c.Offset,
			SelfCheckMargin: c.SelfCheckMargin,
		}
		if cfg.Peripheral == config.PeripheralADS1115 {
			fitted, err := adc.ADS1115Channel(ch, cfg.I2C.Range)
			if err != nil {
				return nil, err
			}
			if fitted.Resolution != ch.Resolution || fitted.FullScale != ch.FullScale {
				log.Printf("Channel %s: using %d-bit, %.3fV full scale to match the ADS1115 range", ch.Name, fitted.Resolution, fitted.FullScale)
			}
			ch = fitted
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// buildPeripheral opens the configured converter. The returned closer
// releases the bus and is never nil.
func buildPeripheral(cfg *config.Config, channels []adc.Channel) (adc.Peripheral, func() error, error) {
	nop := func() error { return nil }

	switch cfg.Peripheral {
	case config.PeripheralMock:
		m := adc.NewMock(cfg.Mock.PollsUntilReady)
		for i, ch := range channels {
			m.Generate(ch.Handle, simulate(ch, cfg.Channels[i].Sim, int64(i+1)))
		}
		log.Printf("Using simulated peripheral (%d channels)", len(channels))
		return m, nop, nil

	case config.PeripheralADS1115:
		if err := hostInit(); err != nil {
			return nil, nop, err
		}
		bus, err := i2creg.Open(cfg.I2C.Bus)
		if err != nil {
			return nil, nop, fmt.Errorf("failed to open I2C bus %q: %w", cfg.I2C.Bus, err)
		}
		dev, err := adc.NewADS1115(bus, uint16(cfg.I2C.Address), cfg.I2C.Range, cfg.I2C.SampleRate)
		if err != nil {
			bus.Close()
			return nil, nop, err
		}
		log.Printf("Using ADS1115 at 0x%02x on I2C bus %s", cfg.I2C.Address, cfg.I2C.Bus)
		return dev, bus.Close, nil
	}

	return nil, nop, fmt.Errorf("%w: %q", config.ErrInvalidPeripheral, cfg.Peripheral)
}

// simulate returns a generator of raw codes around sim.Volts with gaussian
// noise of sim.Noise volts.
func simulate(ch adc.Channel, sim config.SimConfig, seed int64) func() uint32 {
	rng := rand.New(rand.NewSource(seed))
	return func() uint32 {
		v := sim.Volts
		if sim.Noise > 0 {
			v += rng.NormFloat64() * sim.Noise
		}
		return calibration.Raw(v, ch)
	}
}

// buildReporters opens every configured output. Console output goes to
// stdout. The returned Multi must be closed.
func buildReporters(cfg *config.Config, channels []adc.Channel, stdout io.Writer) (report.Multi, error) {
	var reporters report.Multi

	for _, o := range cfg.Outputs {
		switch o.Type {
		case config.OutputConsole:
			r := text.New(stdout, channels)
			if err := r.Header(title, channels); err != nil {
				log.Printf("Failed to write header: %v", err)
			}
			reporters = append(reporters, r)

		case config.OutputSerial:
			port, err := serialport.Open(cfg.Serial.Port, cfg.Serial.Baud)
			if err != nil {
				reporters.Close()
				return nil, err
			}
			r := &serialReporter{Reporter: text.New(port, channels), port: port}
			if err := r.Header(title, channels); err != nil {
				log.Printf("Failed to write header to %s: %v", port.Name(), err)
			}
			log.Printf("Mirroring output to %s at %d baud", port.Name(), cfg.Serial.Baud)
			reporters = append(reporters, r)

		case config.OutputMQTT:
			r, err := mqtt.New(*o.MQTT)
			if err != nil {
				reporters.Close()
				return nil, err
			}
			log.Printf("Publishing to MQTT broker %s", o.MQTT.Server)
			reporters = append(reporters, r)

		default:
			reporters.Close()
			return nil, fmt.Errorf("%w: unknown type %q", config.ErrInvalidOutput, o.Type)
		}
	}

	return reporters, nil
}

// serialReporter owns the port behind a text reporter.
type serialReporter struct {
	*text.Reporter
	port *serialport.Writer
}

func (r *serialReporter) Close() error {
	return r.port.Close()
}

// buildIndicator returns the LED on cfg.LED.Pin, or a logging indicator
// when no pin is configured.
func buildIndicator(cfg *config.Config) (monitor.Indicator, error) {
	if cfg.LED.Pin == "" {
		return &led.Log{}, nil
	}
	if err := hostInit(); err != nil {
		return nil, err
	}
	return led.Open(cfg.LED.Pin)
}

func monitorConfig(cfg *config.Config) monitor.Config {
	return monitor.Config{
		BatchSize: cfg.Monitor.BatchSize,
		Period:    cfg.Monitor.Period,
		Settle:    cfg.Monitor.Settle,
		Blink:     cfg.Monitor.Blink,
		Rounds:    cfg.Monitor.Rounds,
	}
}

func sourceOptions(cfg *config.Config) []adc.Option {
	return []adc.Option{
		adc.WithTimeout(cfg.Monitor.ConversionTimeout),
		adc.WithPollInterval(cfg.Monitor.PollInterval),
	}
}

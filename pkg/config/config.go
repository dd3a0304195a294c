package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Peripheral kinds understood by the harness.
const (
	PeripheralMock    = "mock"
	PeripheralADS1115 = "ads1115"
)

// Signal modes as written in the configuration file.
const (
	ModeDifferential = "differential"
	ModeSingleEnded  = "single_ended"
)

// Output types.
const (
	OutputConsole = "console"
	OutputSerial  = "serial"
	OutputMQTT    = "mqtt"
)

var (
	ErrNoChannels        = errors.New("no channels configured")
	ErrInvalidMode       = errors.New("invalid signal mode")
	ErrInvalidChannel    = errors.New("invalid channel")
	ErrInvalidMonitor    = errors.New("invalid monitor settings")
	ErrInvalidOutput     = errors.New("invalid output")
	ErrInvalidPeripheral = errors.New("invalid peripheral")
)

// Config represents the application configuration.
type Config struct {
	Peripheral string          `yaml:"peripheral"`
	I2C        I2CConfig       `yaml:"i2c"`
	Channels   []ChannelConfig `yaml:"channels"`
	Monitor    MonitorConfig   `yaml:"monitor"`
	Serial     SerialConfig    `yaml:"serial"`
	Outputs    []OutputConfig  `yaml:"outputs"`
	LED        LEDConfig       `yaml:"led"`
	Mock       MockConfig      `yaml:"mock"`
}

// I2CConfig selects the bus and address of an I2C converter.
type I2CConfig struct {
	Bus        string  `yaml:"bus"`
	Address    int     `yaml:"address"`
	Range      float64 `yaml:"range"`       // Programmable gain full scale (V)
	SampleRate int     `yaml:"sample_rate"` // SPS
}

// ChannelConfig describes one conversion channel.
type ChannelConfig struct {
	Name            string    `yaml:"name"`
	Handle          int       `yaml:"handle"`
	Mode            string    `yaml:"mode"`
	Resolution      int       `yaml:"resolution"`
	FullScale       float64   `yaml:"full_scale"`
	Scale           float64   `yaml:"scale,omitempty"` // Explicit V/LSB, 0 = derive from full scale
	Gain            float64   `yaml:"gain,omitempty"`
	Offset          float64   `yaml:"offset,omitempty"`
	SelfCheckMargin uint32    `yaml:"self_check_margin,omitempty"` // 0 = derive from resolution
	Sim             SimConfig `yaml:"sim,omitempty"`
}

// SimConfig drives the simulated peripheral for a channel.
type SimConfig struct {
	Volts float64 `yaml:"volts"`
	Noise float64 `yaml:"noise"`
}

// MonitorConfig contains the sampling loop parameters.
type MonitorConfig struct {
	BatchSize         int           `yaml:"batch_size"`
	Period            time.Duration `yaml:"period"`
	ConversionTimeout time.Duration `yaml:"conversion_timeout"` // 0 waits forever
	PollInterval      time.Duration `yaml:"poll_interval"`      // 0 busy-polls
	Settle            time.Duration `yaml:"settle"`
	Blink             time.Duration `yaml:"blink"`
	Rounds            int           `yaml:"rounds"` // 0 runs until interrupted
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// MQTTConfig contains broker settings for the mqtt output.
type MQTTConfig struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// OutputConfig selects one reporter.
type OutputConfig struct {
	Type string      `yaml:"type"`
	MQTT *MQTTConfig `yaml:"mqtt,omitempty"`
}

// LEDConfig names the liveness indicator pin. Empty logs toggles instead.
type LEDConfig struct {
	Pin string `yaml:"pin"`
}

// MockConfig contains simulated peripheral settings.
type MockConfig struct {
	PollsUntilReady int `yaml:"polls_until_ready"`
}

// Default returns the two channel bench: a 16-bit differential channel and a
// 12-bit single-ended channel, both on a 3.3V range.
func Default() *Config {
	return &Config{
		Peripheral: PeripheralMock,
		I2C: I2CConfig{
			Bus:        "1",
			Address:    0x48,
			Range:      4.096,
			SampleRate: 128,
		},
		Channels: []ChannelConfig{
			{
				Name:            "ADCA-Diff",
				Handle:          0,
				Mode:            ModeDifferential,
				Resolution:      16,
				FullScale:       3.3,
				Gain:            1,
				SelfCheckMargin: 100,
				Sim:             SimConfig{Volts: 0.25, Noise: 0.002},
			},
			{
				Name:            "ADCB-SE",
				Handle:          1,
				Mode:            ModeSingleEnded,
				Resolution:      12,
				FullScale:       3.3,
				Gain:            1,
				SelfCheckMargin: 10,
				Sim:             SimConfig{Volts: 1.65, Noise: 0.005},
			},
		},
		Monitor: MonitorConfig{
			BatchSize:         10,
			Period:            time.Second,
			ConversionTimeout: 100 * time.Millisecond,
			PollInterval:      0,
			Settle:            10 * time.Millisecond,
			Blink:             500 * time.Millisecond,
			Rounds:            0,
		},
		Serial: SerialConfig{
			Port: "",
			Baud: 115200,
		},
		Outputs: []OutputConfig{{Type: OutputConsole}},
		Mock: MockConfig{
			PollsUntilReady: 2,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the settings the sampling loop cannot work without.
func (c *Config) Validate() error {
	switch c.Peripheral {
	case PeripheralMock, PeripheralADS1115:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeripheral, c.Peripheral)
	}

	if len(c.Channels) == 0 {
		return ErrNoChannels
	}
	for i, ch := range c.Channels {
		switch NormalizeMode(ch.Mode) {
		case ModeDifferential, ModeSingleEnded:
		default:
			return fmt.Errorf("channel %d: %w: %q", i, ErrInvalidMode, ch.Mode)
		}
		if ch.Resolution < 1 || ch.Resolution > 32 {
			return fmt.Errorf("channel %d: %w: resolution %d out of 1..32", i, ErrInvalidChannel, ch.Resolution)
		}
		if ch.FullScale <= 0 {
			return fmt.Errorf("channel %d: %w: full_scale must be > 0", i, ErrInvalidChannel)
		}
		if ch.Scale < 0 {
			return fmt.Errorf("channel %d: %w: scale must be >= 0", i, ErrInvalidChannel)
		}
	}

	if c.Monitor.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be > 0", ErrInvalidMonitor)
	}
	if c.Monitor.Period < 0 || c.Monitor.ConversionTimeout < 0 || c.Monitor.PollInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidMonitor)
	}
	if c.Monitor.Rounds < 0 {
		return fmt.Errorf("%w: rounds must not be negative", ErrInvalidMonitor)
	}

	for _, o := range c.Outputs {
		switch strings.ToLower(o.Type) {
		case OutputConsole:
		case OutputSerial:
			if c.Serial.Port == "" {
				return fmt.Errorf("%w: serial output needs serial.port", ErrInvalidOutput)
			}
		case OutputMQTT:
			if o.MQTT == nil || o.MQTT.Server == "" {
				return fmt.Errorf("%w: mqtt output needs mqtt.server", ErrInvalidOutput)
			}
		default:
			return fmt.Errorf("%w: unknown type %q", ErrInvalidOutput, o.Type)
		}
	}

	return nil
}

// NormalizeMode maps the accepted spellings of a mode onto the canonical ones.
func NormalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "differential", "diff":
		return ModeDifferential
	case "single_ended", "single-ended", "singleended", "se":
		return ModeSingleEnded
	}
	return mode
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Peripheral == "" {
		c.Peripheral = def.Peripheral
	}
	c.Peripheral = strings.ToLower(c.Peripheral)

	if c.I2C.Bus == "" {
		c.I2C.Bus = def.I2C.Bus
	}
	if c.I2C.Address == 0 {
		c.I2C.Address = def.I2C.Address
	}
	if c.I2C.Range == 0 {
		c.I2C.Range = def.I2C.Range
	}
	if c.I2C.SampleRate == 0 {
		c.I2C.SampleRate = def.I2C.SampleRate
	}

	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}
	for i := range c.Channels {
		ch := &c.Channels[i]
		ch.Mode = NormalizeMode(ch.Mode)
		if ch.Name == "" {
			ch.Name = fmt.Sprintf("CH%d", i)
		}
		if ch.FullScale == 0 {
			ch.FullScale = 3.3
		}
		if ch.Gain == 0 {
			ch.Gain = 1
		}
	}

	if c.Monitor.BatchSize == 0 {
		c.Monitor.BatchSize = def.Monitor.BatchSize
	}
	if c.Monitor.Period == 0 {
		c.Monitor.Period = def.Monitor.Period
	}
	if c.Monitor.Blink == 0 {
		c.Monitor.Blink = def.Monitor.Blink
	}

	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if len(c.Outputs) == 0 {
		c.Outputs = def.Outputs
	}
	for i := range c.Outputs {
		c.Outputs[i].Type = strings.ToLower(c.Outputs[i].Type)
	}

	if c.Mock.PollsUntilReady == 0 {
		c.Mock.PollsUntilReady = def.Mock.PollsUntilReady
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, PeripheralMock, cfg.Peripheral)
	require.Len(t, cfg.Channels, 2)

	assert.Equal(t, "ADCA-Diff", cfg.Channels[0].Name)
	assert.Equal(t, ModeDifferential, cfg.Channels[0].Mode)
	assert.Equal(t, 16, cfg.Channels[0].Resolution)
	assert.Equal(t, 3.3, cfg.Channels[0].FullScale)

	assert.Equal(t, "ADCB-SE", cfg.Channels[1].Name)
	assert.Equal(t, ModeSingleEnded, cfg.Channels[1].Mode)
	assert.Equal(t, 12, cfg.Channels[1].Resolution)

	assert.Equal(t, 10, cfg.Monitor.BatchSize)
	assert.Equal(t, time.Second, cfg.Monitor.Period)
	assert.Equal(t, 100*time.Millisecond, cfg.Monitor.ConversionTimeout)
	assert.Equal(t, 10*time.Millisecond, cfg.Monitor.Settle)
	assert.Equal(t, 500*time.Millisecond, cfg.Monitor.Blink)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, []OutputConfig{{Type: OutputConsole}}, cfg.Outputs)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeConfig(t, `
peripheral: ADS1115

i2c:
  bus: "2"
  address: 0x49
  range: 2.048
  sample_rate: 860

channels:
  - name: bridge
    handle: 4
    mode: diff
    resolution: 16
    full_scale: 2.048
    gain: 1.02
    offset: -0.001
  - name: supply
    handle: 2
    mode: se
    resolution: 16
    full_scale: 2.048
    self_check_margin: 50

monitor:
  batch_size: 5
  period: 250ms
  conversion_timeout: 20ms
  poll_interval: 1ms
  rounds: 100

serial:
  port: /dev/ttyACM0

outputs:
  - type: console
  - type: Serial
  - type: mqtt
    mqtt:
      server: tcp://broker:1883
      client_id: bench-1
      topic: lab/adc

led:
  pin: GPIO17
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, PeripheralADS1115, cfg.Peripheral)
	assert.Equal(t, "2", cfg.I2C.Bus)
	assert.Equal(t, 0x49, cfg.I2C.Address)
	assert.Equal(t, 2.048, cfg.I2C.Range)
	assert.Equal(t, 860, cfg.I2C.SampleRate)

	require.Len(t, cfg.Channels, 2)
	assert.Equal(t, ModeDifferential, cfg.Channels[0].Mode)
	assert.Equal(t, 4, cfg.Channels[0].Handle)
	assert.Equal(t, 1.02, cfg.Channels[0].Gain)
	assert.Equal(t, -0.001, cfg.Channels[0].Offset)
	assert.Equal(t, ModeSingleEnded, cfg.Channels[1].Mode)
	assert.Equal(t, float64(1), cfg.Channels[1].Gain, "gain defaults to 1")
	assert.Equal(t, uint32(50), cfg.Channels[1].SelfCheckMargin)

	assert.Equal(t, 5, cfg.Monitor.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Monitor.Period)
	assert.Equal(t, 20*time.Millisecond, cfg.Monitor.ConversionTimeout)
	assert.Equal(t, time.Millisecond, cfg.Monitor.PollInterval)
	assert.Equal(t, 100, cfg.Monitor.Rounds)
	assert.Equal(t, 500*time.Millisecond, cfg.Monitor.Blink, "unset fields keep defaults")

	require.Len(t, cfg.Outputs, 3)
	assert.Equal(t, OutputSerial, cfg.Outputs[1].Type)
	require.NotNil(t, cfg.Outputs[2].MQTT)
	assert.Equal(t, "lab/adc", cfg.Outputs[2].MQTT.Topic)
	assert.Equal(t, "GPIO17", cfg.LED.Pin)
}

func TestLoad_PartialYAML(t *testing.T) {
	name := writeConfig(t, `
channels:
  - mode: single_ended
    resolution: 10
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	require.Len(t, cfg.Channels, 1)
	assert.Equal(t, "CH0", cfg.Channels[0].Name)
	assert.Equal(t, 3.3, cfg.Channels[0].FullScale)
	assert.Equal(t, PeripheralMock, cfg.Peripheral)
	assert.Equal(t, 10, cfg.Monitor.BatchSize)
	assert.Equal(t, time.Second, cfg.Monitor.Period)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 2, cfg.Mock.PollsUntilReady)
}

func TestLoad_InvalidYAML(t *testing.T) {
	name := writeConfig(t, "channels: [unclosed")

	_, err := Load(name)
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	name := writeConfig(t, `
channels:
  - mode: pseudo
    resolution: 12
`)

	_, err := Load(name)
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestSave(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Monitor.Period = 2 * time.Second
	cfg.Channels[1].Offset = 0.01
	require.NoError(t, cfg.Save(name))

	loaded, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{"unknown peripheral", func(c *Config) { c.Peripheral = "mcp3008" }, ErrInvalidPeripheral},
		{"no channels", func(c *Config) { c.Channels = nil }, ErrNoChannels},
		{"bad mode", func(c *Config) { c.Channels[0].Mode = "pseudo" }, ErrInvalidMode},
		{"zero resolution", func(c *Config) { c.Channels[0].Resolution = 0 }, ErrInvalidChannel},
		{"wide resolution", func(c *Config) { c.Channels[1].Resolution = 33 }, ErrInvalidChannel},
		{"zero full scale", func(c *Config) { c.Channels[1].FullScale = 0 }, ErrInvalidChannel},
		{"negative scale", func(c *Config) { c.Channels[1].Scale = -1 }, ErrInvalidChannel},
		{"zero batch", func(c *Config) { c.Monitor.BatchSize = 0 }, ErrInvalidMonitor},
		{"negative period", func(c *Config) { c.Monitor.Period = -time.Second }, ErrInvalidMonitor},
		{"negative rounds", func(c *Config) { c.Monitor.Rounds = -1 }, ErrInvalidMonitor},
		{"serial without port", func(c *Config) { c.Outputs = []OutputConfig{{Type: OutputSerial}} }, ErrInvalidOutput},
		{"mqtt without server", func(c *Config) { c.Outputs = []OutputConfig{{Type: OutputMQTT, MQTT: &MQTTConfig{}}} }, ErrInvalidOutput},
		{"unknown output", func(c *Config) { c.Outputs = []OutputConfig{{Type: "fax"}} }, ErrInvalidOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.err)
		})
	}
}

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"differential", ModeDifferential},
		{"Diff", ModeDifferential},
		{"single_ended", ModeSingleEnded},
		{"single-ended", ModeSingleEnded},
		{" SE ", ModeSingleEnded},
		{"pseudo", "pseudo"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMode(tt.in))
		})
	}
}

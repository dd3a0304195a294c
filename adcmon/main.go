// Command adcmon runs the ADC sampling-and-statistics loop on a host, either
// against an ADS1115 on I2C or against a simulated converter.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/adcmon/pkg/adc"
	"github.com/itohio/adcmon/pkg/config"
	"github.com/itohio/adcmon/pkg/monitor"
	"github.com/itohio/adcmon/pkg/serialport"
)

func main() {
	var (
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		portFlag      = flag.String("p", "", "Serial port to mirror the text log to (e.g., COM3 or /dev/ttyACM0)")
		mockFlag      = flag.Bool("mock", false, "Use the simulated converter instead of the configured peripheral")
		roundsFlag    = flag.Int("rounds", -1, "Stop after this many rounds (0 = run until interrupted, overrides config)")
		listPortsFlag = flag.Bool("list-ports", false, "List serial ports and exit")
	)
	flag.Parse()

	if *listPortsFlag {
		if err := listPorts(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlags(cfg, *portFlag, *mockFlag, *roundsFlag)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Monitor stopped: %v", err)
	}
}

// applyFlags applies command line overrides on top of the loaded file.
func applyFlags(cfg *config.Config, port string, mock bool, rounds int) {
	if port != "" {
		cfg.Serial.Port = port
		hasSerial := false
		for _, o := range cfg.Outputs {
			if o.Type == config.OutputSerial {
				hasSerial = true
			}
		}
		if !hasSerial {
			cfg.Outputs = append(cfg.Outputs, config.OutputConfig{Type: config.OutputSerial})
		}
	}
	if mock {
		cfg.Peripheral = config.PeripheralMock
	}
	if rounds >= 0 {
		cfg.Monitor.Rounds = rounds
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	channels, err := channelsFromConfig(cfg)
	if err != nil {
		return err
	}

	periph, closePeriph, err := buildPeripheral(cfg, channels)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePeriph(); err != nil {
			log.Printf("Error closing peripheral: %v", err)
		}
	}()

	reporters, err := buildReporters(cfg, channels, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := reporters.Close(); err != nil {
			log.Printf("Error closing outputs: %v", err)
		}
	}()

	indicator, err := buildIndicator(cfg)
	if err != nil {
		return err
	}
	defer indicator.Set(false)

	source := adc.NewSource(periph, sourceOptions(cfg)...)
	loop := monitor.New(monitorConfig(cfg), channels, source, reporters, monitor.WithIndicator(indicator))

	err = loop.Run(ctx)
	log.Printf("Monitor finished after %d rounds", loop.Rounds())
	return err
}

func listPorts() error {
	ports, err := serialport.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Printf("%s\t%s\n", p.Name, p.Description)
	}
	return nil
}

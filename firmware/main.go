//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"
	"time"

	"github.com/itohio/adcmon/pkg/adc"
	"github.com/itohio/adcmon/pkg/monitor"
	"github.com/itohio/adcmon/pkg/report/text"
)

var channels = []adc.Channel{
	{
		Index:           0,
		Name:            "ADCA-Diff",
		Mode:            adc.Differential,
		Resolution:      16,
		FullScale:       FULL_SCALE_V,
		Handle:          0,
		SelfCheckMargin: 100,
	},
	{
		Index:           1,
		Name:            "ADCB-SE",
		Mode:            adc.SingleEnded,
		Resolution:      12,
		FullScale:       FULL_SCALE_V,
		Handle:          1,
		SelfCheckMargin: 10,
	},
}

// pinLED drives the board LED.
type pinLED struct {
	pin machine.Pin
	on  bool
}

func (l *pinLED) Set(on bool) error {
	l.on = on
	l.pin.Set(on)
	return nil
}

func (l *pinLED) Toggle() error {
	return l.Set(!l.on)
}

func configureADC(pin machine.Pin) machine.ADC {
	pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	a := machine.ADC{Pin: pin}
	a.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})
	return a
}

func main() {
	machine.InitADC()

	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led := &pinLED{pin: PIN_LED}

	uart := machine.UART0
	uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	adcaPos := configureADC(PIN_ADCA_POS)
	adcaNeg := configureADC(PIN_ADCA_NEG)
	adcb := configureADC(PIN_ADCB)

	periph := adc.NewBlocking()
	periph.AddDifferential(channels[0].Handle, &adcaPos, &adcaNeg, channels[0].Resolution)
	periph.AddSingleEnded(channels[1].Handle, &adcb, channels[1].Resolution)

	out := text.New(uart, channels)
	if err := out.Header("ADC Test", channels); err != nil {
		println("header:", err.Error())
	}

	source := adc.NewSource(periph, adc.WithTimeout(TIMEOUT_MS*time.Millisecond))
	loop := monitor.New(monitor.Config{
		BatchSize: BATCH_SIZE,
		Period:    PERIOD_MS * time.Millisecond,
		Settle:    SETTLE_MS * time.Millisecond,
		Blink:     BLINK_MS * time.Millisecond,
	}, channels, source, out, monitor.WithIndicator(led))

	for {
		if err := loop.Run(context.Background()); err != nil {
			println("monitor stopped:", err.Error())
		}
		// Restart after a fatal acquisition error.
		time.Sleep(PERIOD_MS * time.Millisecond)
	}
}

//go:build tinygo

package main

import "machine"

const (
	// Loop configuration
	PERIOD_MS    = 1000 // Delay between rounds
	SETTLE_MS    = 10   // Delay before the self-check
	BLINK_MS     = 500  // LED on-time after a passed self-check
	BATCH_SIZE   = 10   // Rounds per statistics report
	TIMEOUT_MS   = 100  // Conversion timeout
	FULL_SCALE_V = 3.3  // Reference voltage

	// ADC configuration. machine.ADC.Get returns left-aligned 16-bit codes.
	ADC_REFERENCE_MV = 3300
	ADC_RESOLUTION   = 12 // SAMD21 hardware resolution

	// Channel A is a pseudo-differential pair, channel B is single-ended.
	PIN_ADCA_POS = machine.A1
	PIN_ADCA_NEG = machine.A2
	PIN_ADCB     = machine.A3

	PIN_LED = machine.LED

	UART_BAUD_RATE = 115200
)

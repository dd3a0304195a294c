// Package serialport opens the bench UART the text log is mirrored to.
package serialport

import (
	"fmt"
	"log"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultBaudRate matches the firmware console.
const DefaultBaudRate = 115200

// Port describes an available serial port.
type Port struct {
	Name        string
	Description string
}

var open = serial.Open

// Writer is a write-only serial connection safe for concurrent use.
type Writer struct {
	name string
	mu   sync.Mutex
	conn serial.Port
}

// Open opens name at baud (8N1).
func Open(name string, baud int) (*Writer, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	conn, err := open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return &Writer{name: name, conn: conn}, nil
}

// Name returns the port name.
func (w *Writer) Name() string { return w.name }

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return 0, fmt.Errorf("serial port %s: closed", w.name)
	}
	return w.conn.Write(p)
}

// Close drains pending output and closes the port.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return nil
	}
	if err := w.conn.Drain(); err != nil {
		log.Printf("Error draining serial port %s: %v", w.name, err)
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

// Ports returns the serial ports present on the host. USB ports carry their
// product name and VID:PID as description.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		names, lerr := serial.GetPortsList()
		if lerr != nil {
			return nil, fmt.Errorf("failed to list serial ports: %w", lerr)
		}
		result := make([]Port, 0, len(names))
		for _, name := range names {
			result = append(result, Port{Name: name, Description: name})
		}
		return result, nil
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		result = append(result, Port{Name: d.Name, Description: describe(d)})
	}
	return result, nil
}

func describe(d *enumerator.PortDetails) string {
	if !d.IsUSB {
		return d.Name
	}
	desc := fmt.Sprintf("USB %s:%s", d.VID, d.PID)
	if d.Product != "" {
		desc = d.Product + " (" + desc + ")"
	}
	if d.SerialNumber != "" {
		desc += " S/N " + d.SerialNumber
	}
	return desc
}

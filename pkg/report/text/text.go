// Package text renders monitor output as the fixed-width log printed on the
// bench serial console.
package text

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/itohio/adcmon/pkg/adc"
	"github.com/itohio/adcmon/pkg/monitor"
)

const (
	eol          = "\r\n"
	minNameWidth = 9
)

// Reporter writes readings and statistics as text tables. Each call results
// in a single Write on the underlying writer.
type Reporter struct {
	mu    sync.Mutex
	w     io.Writer
	width int
}

var _ monitor.Reporter = (*Reporter)(nil)

// New creates a text reporter. channels are used to size the name column.
func New(w io.Writer, channels []adc.Channel) *Reporter {
	width := minNameWidth
	for _, ch := range channels {
		if len(ch.Name) > width {
			width = len(ch.Name)
		}
	}
	return &Reporter{w: w, width: width}
}

// Header prints the banner with the channel configuration.
func (r *Reporter) Header(title string, channels []adc.Channel) error {
	var b bytes.Buffer
	rule := strings.Repeat("=", 41)

	b.WriteString(eol)
	b.WriteString(rule + eol)
	fmt.Fprintf(&b, "   %s%s", title, eol)
	b.WriteString(rule + eol)
	b.WriteString(eol)
	b.WriteString("Configuration:" + eol)
	for _, ch := range channels {
		fmt.Fprintf(&b, "  %s: %d-bit %s, %sV full scale%s", ch.Name, ch.Resolution, modeLabel(ch.Mode), Volts(ch.FullScale), eol)
	}
	b.WriteString(eol)

	return r.write(b.Bytes())
}

// SelfCheck implements monitor.Reporter.
func (r *Reporter) SelfCheck(res monitor.SelfCheckResult) error {
	var b bytes.Buffer

	b.WriteString(eol + ">>> Running ADC Initialization Test..." + eol)
	for _, c := range res.Channels {
		verdict := "ok"
		if !c.Plausible {
			verdict = "at limits"
		}
		fmt.Fprintf(&b, "    %-*s raw=%d %sV %s%s", r.width, c.Name, c.Raw, Volts(c.Voltage), verdict, eol)
	}
	if res.Passed {
		b.WriteString(">>> ADC Initialization: PASSED" + eol)
	} else {
		b.WriteString(">>> ADC Initialization: WARNING" + eol)
		b.WriteString("    Check: Readings may be at limits" + eol)
		b.WriteString("    Note: This is OK for floating inputs" + eol)
	}

	return r.write(b.Bytes())
}

// Readings implements monitor.Reporter.
func (r *Reporter) Readings(round uint64, readings []monitor.Reading) error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "%s--- Reading #%d ---%s", eol, round, eol)
	fmt.Fprintf(&b, "%-*s | Raw    | Voltage (V)%s", r.width, "Channel", eol)
	fmt.Fprintf(&b, "%s|--------|-------------%s", strings.Repeat("-", r.width+1), eol)
	for _, rd := range readings {
		fmt.Fprintf(&b, "%-*s | %6d | %s%s", r.width, rd.Name, rd.Raw, Volts(rd.Voltage), eol)
	}

	return r.write(b.Bytes())
}

// Statistics implements monitor.Reporter.
func (r *Reporter) Statistics(round uint64, summaries []monitor.Summary) error {
	var b bytes.Buffer
	rule := strings.Repeat("=", 44)

	count := 0
	for _, s := range summaries {
		if s.Count > count {
			count = s.Count
		}
	}

	b.WriteString(eol)
	b.WriteString(rule + eol)
	fmt.Fprintf(&b, "STATISTICS (Last %d readings)%s", count, eol)
	b.WriteString(rule + eol)
	fmt.Fprintf(&b, "%-*s | Min(V)  | Max(V)  | Avg(V)  | P-P(mV)%s", r.width, "Channel", eol)
	fmt.Fprintf(&b, "%s|---------|---------|---------|--------%s", strings.Repeat("-", r.width+1), eol)
	for _, s := range summaries {
		if s.NoData {
			fmt.Fprintf(&b, "%-*s | no data%s", r.width, s.Name, eol)
			continue
		}
		fmt.Fprintf(&b, "%-*s | %7s | %7s | %7s | %s%s", r.width, s.Name,
			Volts(s.Min), Volts(s.Max), Volts(s.Average), Volts(s.PeakToPeakMillivolts()), eol)
	}
	b.WriteString(rule + eol + eol)

	return r.write(b.Bytes())
}

// Volts formats v with three decimals, keeping the sign of small negatives.
func Volts(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func (r *Reporter) write(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.w.Write(p)
	return err
}

func modeLabel(m adc.Mode) string {
	if m == adc.Differential {
		return "Diff"
	}
	return "SE"
}

// Package report fans monitor output out to several reporters.
package report

import (
	"errors"
	"io"

	"github.com/itohio/adcmon/pkg/monitor"
)

// Multi forwards every call to all reporters and joins their errors.
type Multi []monitor.Reporter

var _ monitor.Reporter = Multi(nil)

// SelfCheck implements monitor.Reporter.
func (m Multi) SelfCheck(res monitor.SelfCheckResult) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.SelfCheck(res))
	}
	return errors.Join(errs...)
}

// Readings implements monitor.Reporter.
func (m Multi) Readings(round uint64, readings []monitor.Reading) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Readings(round, readings))
	}
	return errors.Join(errs...)
}

// Statistics implements monitor.Reporter.
func (m Multi) Statistics(round uint64, summaries []monitor.Summary) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Statistics(round, summaries))
	}
	return errors.Join(errs...)
}

// Close closes every reporter that implements io.Closer.
func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if c, ok := r.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

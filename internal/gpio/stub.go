//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealRangefinder is not available on non-Linux platforms.
type RealRangefinder struct{}

// NewRealRangefinder returns an error on non-Linux platforms.
func NewRealRangefinder(chipName string, pinTrig, pinEcho, maxCM int) (*RealRangefinder, error) {
	return nil, errUnsupported
}

// Measure is not implemented on non-Linux platforms.
func (r *RealRangefinder) Measure() (int, error) {
	return 0, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealRangefinder) Close() error {
	return nil
}

// RealBuzzer is not available on non-Linux platforms.
type RealBuzzer struct{}

// NewRealBuzzer returns an error on non-Linux platforms.
func NewRealBuzzer(chipName string, pin int) (*RealBuzzer, error) {
	return nil, errUnsupported
}

// SetLevel is not implemented on non-Linux platforms.
func (b *RealBuzzer) SetLevel(high bool) error {
	return errUnsupported
}

// Tone is not implemented on non-Linux platforms.
func (b *RealBuzzer) Tone(hz int, d time.Duration) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealBuzzer) Close() error {
	return nil
}

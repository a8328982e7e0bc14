package gpio

import (
	"errors"
	"time"
)

// Sample is one scripted rangefinder result.
type Sample struct {
	CM     int
	NoEcho bool // true = Measure returns ErrNoEcho
}

// FakeRangefinder is a test double that returns scripted distances.
type FakeRangefinder struct {
	// Samples contains scripted readings to return.
	// Each call to Measure() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Calls counts Measure invocations.
	Calls int

	// Closed tracks if Close was called
	Closed bool

	// MeasureError, if set, will be returned by Measure()
	MeasureError error
}

// NewFakeRangefinder creates a FakeRangefinder with the given samples.
func NewFakeRangefinder(samples ...Sample) *FakeRangefinder {
	return &FakeRangefinder{Samples: samples}
}

// Measure returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeRangefinder) Measure() (int, error) {
	f.Calls++
	if f.MeasureError != nil {
		return 0, f.MeasureError
	}

	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	if sample.NoEcho {
		return 0, ErrNoEcho
	}
	return sample.CM, nil
}

// Close marks the rangefinder as closed.
func (f *FakeRangefinder) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeRangefinder) Reset() {
	f.index = 0
	f.Calls = 0
	f.Closed = false
}

// BuzzerOp is one recorded buzzer call.
type BuzzerOp struct {
	Tone     bool // false = SetLevel
	High     bool // SetLevel only
	Hz       int  // Tone only
	Duration time.Duration
}

// FakeBuzzer records buzzer calls without blocking.
type FakeBuzzer struct {
	Ops []BuzzerOp

	// High reflects the current output level.
	High bool

	// Err, if set, is returned by SetLevel and Tone (the call is still recorded).
	Err error

	Closed bool
}

// NewFakeBuzzer creates a FakeBuzzer.
func NewFakeBuzzer() *FakeBuzzer {
	return &FakeBuzzer{}
}

// SetLevel records the level change.
func (f *FakeBuzzer) SetLevel(high bool) error {
	f.Ops = append(f.Ops, BuzzerOp{High: high})
	f.High = high
	return f.Err
}

// Tone records the tone and leaves the output low. It does not sleep.
func (f *FakeBuzzer) Tone(hz int, d time.Duration) error {
	f.Ops = append(f.Ops, BuzzerOp{Tone: true, Hz: hz, Duration: d})
	f.High = false
	return f.Err
}

// Close marks the buzzer closed and low.
func (f *FakeBuzzer) Close() error {
	f.Closed = true
	f.High = false
	return nil
}

// Package gpio drives the gate hardware attached to GPIO: an HC-SR04 style
// ultrasonic rangefinder and a buzzer.
// The real implementations use the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

import (
	"errors"
	"time"
)

// ErrNoEcho is returned by Measure when no echo arrived within range.
var ErrNoEcho = errors.New("gpio: no echo")

// Rangefinder measures distance to the nearest object below the sensor.
type Rangefinder interface {
	// Measure triggers one ping and returns the distance in whole centimetres.
	// Returns ErrNoEcho when nothing reflected within the sensor's range.
	Measure() (int, error)

	// Close releases GPIO resources.
	Close() error
}

// Buzzer drives the audible feedback output.
type Buzzer interface {
	// SetLevel drives the output high (on) or low (off).
	SetLevel(high bool) error

	// Tone plays a square wave at hz for d, then leaves the output low.
	// It blocks for d.
	Tone(hz int, d time.Duration) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinTrig   = 23 // rangefinder trigger
	DefaultPinEcho   = 24 // rangefinder echo (through a 5V->3.3V divider)
	DefaultPinBuzzer = 18
)

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Speed of sound round trip: an echo pulse lasts ~58µs per centimetre.
const usPerCM = 58

// pulseToCM converts an echo pulse width to whole centimetres.
func pulseToCM(width time.Duration) int {
	return int(width.Microseconds() / usPerCM)
}

// maxPulse is the longest echo pulse that still counts as within maxCM.
func maxPulse(maxCM int) time.Duration {
	return time.Duration(maxCM*usPerCM) * time.Microsecond
}

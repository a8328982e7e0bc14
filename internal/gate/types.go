// Package gate contains the pure decision logic of the entry gate: height
// classification and allow-list matching.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
package gate

// Class is the classification of a single rangefinder reading.
type Class string

const (
	// NoSubject: no echo, or the computed height is outside (0, MaxRangeCM).
	NoSubject Class = "NO_SUBJECT"
	// TooShort: 0 < height < MinHeightCM.
	TooShort Class = "TOO_SHORT"
	// InRange: MinHeightCM < height < MaxRangeCM.
	InRange Class = "IN_RANGE"
	// AtThreshold: height == MinHeightCM. Neither branch fires, so no
	// feedback is given and no card wait is opened.
	AtThreshold Class = "AT_THRESHOLD"
)

// Reading is one rangefinder sample.
type Reading struct {
	DistanceCM int
	Echo       bool // false = no echo received (nothing in range)
}

// HeightConfig describes the sensor mount and the access thresholds, all in cm.
type HeightConfig struct {
	// OffsetCM is the mounting height of the sensor above the floor.
	OffsetCM int
	// MinHeightCM is the height a subject must exceed to be offered a card scan.
	MinHeightCM int
	// MaxRangeCM is the sensor's maximum usable range. Heights at or above it
	// are treated as no subject.
	MaxRangeCM int
}

// DefaultHeightConfig matches the reference installation.
var DefaultHeightConfig = HeightConfig{
	OffsetCM:    208,
	MinHeightCM: 100,
	MaxRangeCM:  200,
}

// Outcome is the result of one card-wait window that saw a card.
type Outcome struct {
	Granted bool
	User    string // matched user's display name; empty when rejected
}

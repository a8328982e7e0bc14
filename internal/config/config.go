// Package config loads daemon settings from ENTRY_GATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sweeney/entry-gate/internal/gate"
)

// Off disables an optional device or endpoint.
const Off = "off"

// Config holds every tunable of the entry-gate daemon.
type Config struct {
	Chip      string `env:"ENTRY_GATE_GPIO_CHIP" envDefault:"gpiochip0"`
	TrigPin   int    `env:"ENTRY_GATE_TRIG_PIN" envDefault:"23"`
	EchoPin   int    `env:"ENTRY_GATE_ECHO_PIN" envDefault:"24"`
	BuzzerPin int    `env:"ENTRY_GATE_BUZZER_PIN" envDefault:"18"`

	OffsetCM      int `env:"ENTRY_GATE_OFFSET_CM" envDefault:"208"`
	MinHeightCM   int `env:"ENTRY_GATE_MIN_HEIGHT_CM" envDefault:"100"`
	MaxRangeCM    int `env:"ENTRY_GATE_MAX_RANGE_CM" envDefault:"200"`
	SensorRangeCM int `env:"ENTRY_GATE_SENSOR_RANGE_CM" envDefault:"400"`

	CardWindow time.Duration `env:"ENTRY_GATE_CARD_WINDOW" envDefault:"8s"`
	CardPoll   time.Duration `env:"ENTRY_GATE_CARD_POLL" envDefault:"50ms"`
	CardDevice string        `env:"ENTRY_GATE_CARD_DEVICE" envDefault:"/dev/ttyUSB0"`

	// Empty or "off" disables the Bluetooth serial link.
	BluetoothDevice string `env:"ENTRY_GATE_BLUETOOTH_DEVICE" envDefault:"/dev/rfcomm0"`

	// Empty or "off" disables MQTT.
	Broker    string        `env:"ENTRY_GATE_BROKER" envDefault:"tcp://192.168.1.200:1883"`
	ClientID  string        `env:"ENTRY_GATE_CLIENT_ID" envDefault:"entry-gate"`
	Heartbeat time.Duration `env:"ENTRY_GATE_HEARTBEAT" envDefault:"15m"`

	// Empty or "off" disables the status server.
	HTTPAddr string `env:"ENTRY_GATE_HTTP_ADDR" envDefault:":80"`

	// Empty leaves tracing off.
	OTelEndpoint string `env:"ENTRY_GATE_OTEL_ENDPOINT"`
}

// Load parses the environment into a Config with defaults applied.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	// env applies envDefault to set-but-empty variables, so "off" is the
	// way to switch an optional surface off from the environment.
	for _, s := range []*string{&cfg.BluetoothDevice, &cfg.Broker, &cfg.HTTPAddr} {
		if *s == Off {
			*s = ""
		}
	}
	return cfg, nil
}

// Validate rejects settings the control loop cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.TrigPin < 0 || c.EchoPin < 0 || c.BuzzerPin < 0 {
		errs = append(errs, errors.New("GPIO pins must be non-negative"))
	}
	if c.TrigPin == c.EchoPin || c.TrigPin == c.BuzzerPin || c.EchoPin == c.BuzzerPin {
		errs = append(errs, fmt.Errorf("GPIO pins must be distinct (trig=%d echo=%d buzzer=%d)", c.TrigPin, c.EchoPin, c.BuzzerPin))
	}
	if c.OffsetCM <= 0 {
		errs = append(errs, fmt.Errorf("offset must be positive, got %d", c.OffsetCM))
	}
	if c.MinHeightCM <= 0 {
		errs = append(errs, fmt.Errorf("min height must be positive, got %d", c.MinHeightCM))
	}
	if c.MinHeightCM >= c.MaxRangeCM {
		errs = append(errs, fmt.Errorf("min height %d must be below max range %d", c.MinHeightCM, c.MaxRangeCM))
	}
	if c.SensorRangeCM <= 0 {
		errs = append(errs, fmt.Errorf("sensor range must be positive, got %d", c.SensorRangeCM))
	}
	if c.CardWindow <= 0 {
		errs = append(errs, fmt.Errorf("card window must be positive, got %v", c.CardWindow))
	}
	if c.CardPoll <= 0 || c.CardPoll > c.CardWindow {
		errs = append(errs, fmt.Errorf("card poll %v must be positive and within the window", c.CardPoll))
	}
	if c.CardDevice == "" {
		errs = append(errs, errors.New("card device is required"))
	}
	if c.Broker != "" && c.Heartbeat <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat must be positive, got %v", c.Heartbeat))
	}
	return errors.Join(errs...)
}

// Height returns the thresholds used by gate.Classify.
func (c Config) Height() gate.HeightConfig {
	return gate.HeightConfig{
		OffsetCM:    c.OffsetCM,
		MinHeightCM: c.MinHeightCM,
		MaxRangeCM:  c.MaxRangeCM,
	}
}

// Package cli implements the entry-gate command line.
package cli

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/entry-gate/internal/config"
)

// NewRootCmd creates the root command. Flag defaults come from cfg, so
// environment values apply unless a flag overrides them.
func NewRootCmd(cfg *config.Config) *cobra.Command {
	runCmd := newRunCmd(cfg)

	rootCmd := &cobra.Command{
		Use:   "entry-gate",
		Short: "Height-gated NFC entry controller",
		Long: `entry-gate measures whoever stands under the ultrasonic sensor, asks
people tall enough to present an NFC card, and grants or denies entry
against a compiled-in allow-list.

Settings come from ENTRY_GATE_* environment variables; flags override them.
Without a subcommand the daemon runs.`,
		RunE:         runCmd.RunE,
		SilenceUsage: true,
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO chip (env: ENTRY_GATE_GPIO_CHIP)")
	f.IntVar(&cfg.TrigPin, "trig-pin", cfg.TrigPin, "BCM pin for the rangefinder trigger (env: ENTRY_GATE_TRIG_PIN)")
	f.IntVar(&cfg.EchoPin, "echo-pin", cfg.EchoPin, "BCM pin for the rangefinder echo (env: ENTRY_GATE_ECHO_PIN)")
	f.IntVar(&cfg.BuzzerPin, "buzzer-pin", cfg.BuzzerPin, "BCM pin for the buzzer (env: ENTRY_GATE_BUZZER_PIN)")
	f.IntVar(&cfg.OffsetCM, "offset", cfg.OffsetCM, "Sensor mounting height in cm (env: ENTRY_GATE_OFFSET_CM)")
	f.IntVar(&cfg.MinHeightCM, "min-height", cfg.MinHeightCM, "Minimum admitted height in cm (env: ENTRY_GATE_MIN_HEIGHT_CM)")
	f.IntVar(&cfg.MaxRangeCM, "max-range", cfg.MaxRangeCM, "Heights at or above this are ignored (env: ENTRY_GATE_MAX_RANGE_CM)")
	f.IntVar(&cfg.SensorRangeCM, "sensor-range", cfg.SensorRangeCM, "Longest distance the rangefinder waits for (env: ENTRY_GATE_SENSOR_RANGE_CM)")
	f.DurationVar(&cfg.CardWindow, "card-window", cfg.CardWindow, "How long to wait for a card (env: ENTRY_GATE_CARD_WINDOW)")
	f.DurationVar(&cfg.CardPoll, "card-poll", cfg.CardPoll, "Card reader polling interval (env: ENTRY_GATE_CARD_POLL)")
	f.StringVar(&cfg.CardDevice, "card-device", cfg.CardDevice, "Serial device of the card reader (env: ENTRY_GATE_CARD_DEVICE)")
	f.StringVar(&cfg.BluetoothDevice, "bluetooth", cfg.BluetoothDevice, `Bluetooth serial device, empty or "off" to disable (env: ENTRY_GATE_BLUETOOTH_DEVICE)`)
	f.StringVar(&cfg.Broker, "broker", cfg.Broker, `MQTT broker address, empty or "off" to disable (env: ENTRY_GATE_BROKER)`)
	f.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "MQTT client ID (env: ENTRY_GATE_CLIENT_ID)")
	f.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (env: ENTRY_GATE_HEARTBEAT)")
	f.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, `HTTP status address, empty or "off" to disable (env: ENTRY_GATE_HTTP_ADDR)`)
	f.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace endpoint (env: ENTRY_GATE_OTEL_ENDPOINT)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		for _, s := range []*string{&cfg.BluetoothDevice, &cfg.Broker, &cfg.HTTPAddr} {
			if *s == config.Off {
				*s = ""
			}
		}
		return cfg.Validate()
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newMeasureCmd(cfg))
	rootCmd.AddCommand(newUsersCmd())

	return rootCmd
}

// Execute loads the environment and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := NewRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

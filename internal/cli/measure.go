package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sweeney/entry-gate/internal/config"
	"github.com/sweeney/entry-gate/internal/gate"
	"github.com/sweeney/entry-gate/internal/gpio"
)

func newMeasureCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "measure",
		Short: "Take one rangefinder reading, classify it and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := gpio.NewRealRangefinder(cfg.Chip, cfg.TrigPin, cfg.EchoPin, cfg.SensorRangeCM)
			if err != nil {
				return fmt.Errorf("init rangefinder: %w", err)
			}
			defer rf.Close()
			return printMeasurement(cmd.OutOrStdout(), rf, cfg.Height())
		},
	}
}

func printMeasurement(w io.Writer, rf gpio.Rangefinder, hc gate.HeightConfig) error {
	cm, err := rf.Measure()
	if err != nil {
		if !errors.Is(err, gpio.ErrNoEcho) {
			return fmt.Errorf("measure: %w", err)
		}
		fmt.Fprintf(w, "no echo, class=%s\n", gate.Classify(hc, gate.Reading{}))
		return nil
	}
	r := gate.Reading{DistanceCM: cm, Echo: true}
	fmt.Fprintf(w, "distance=%dcm height=%dcm class=%s\n", cm, gate.Height(hc, r), gate.Classify(hc, r))
	return nil
}

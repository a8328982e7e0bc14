package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/entry-gate/internal/config"
	"github.com/sweeney/entry-gate/internal/gate"
	"github.com/sweeney/entry-gate/internal/gpio"
	"github.com/sweeney/entry-gate/internal/link"
	"github.com/sweeney/entry-gate/internal/mqtt"
	"github.com/sweeney/entry-gate/internal/nfc"
	"github.com/sweeney/entry-gate/internal/status"
	"github.com/sweeney/entry-gate/internal/telemetry"
	"github.com/sweeney/entry-gate/internal/web"
)

func newRunCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the entry gate daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *cfg)
		},
	}
}

func run(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			log.Printf("received %v, shutting down", s)
			cancel(signalCause{name: signalName(s)})
		case <-ctx.Done():
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, "entry-gate", cfg.OTelEndpoint)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}
	defer shutdownTracing(context.Background())

	users := gate.NewAllowList(gate.DefaultUsers...)
	for _, w := range users.Validate() {
		log.Printf("allow-list: %s", w)
	}

	rf, err := gpio.NewRealRangefinder(cfg.Chip, cfg.TrigPin, cfg.EchoPin, cfg.SensorRangeCM)
	if err != nil {
		return fmt.Errorf("init rangefinder: %w", err)
	}
	defer rf.Close()

	buzzer, err := gpio.NewRealBuzzer(cfg.Chip, cfg.BuzzerPin)
	if err != nil {
		return fmt.Errorf("init buzzer: %w", err)
	}
	defer buzzer.Close()

	reader, err := nfc.OpenSerialReader(cfg.CardDevice)
	if err != nil {
		return fmt.Errorf("open card reader: %w", err)
	}
	defer reader.Close()

	var links []link.Sender
	if cfg.BluetoothDevice != "" {
		bt, err := link.OpenSerialLink(cfg.BluetoothDevice)
		if err != nil {
			// The gate works without its wireless display.
			log.Printf("bluetooth link disabled: %v", err)
		} else {
			defer bt.Close()
			links = append(links, bt)
		}
	}

	var publisher mqtt.Publisher
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
		if err != nil {
			log.Printf("mqtt disabled: %v", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		OffsetCM:     cfg.OffsetCM,
		MinHeightCM:  cfg.MinHeightCM,
		MaxRangeCM:   cfg.MaxRangeCM,
		CardWindowMs: cfg.CardWindow.Milliseconds(),
		HeartbeatMs:  cfg.Heartbeat.Milliseconds(),
		Broker:       cfg.Broker,
		HTTPAddr:     cfg.HTTPAddr,
		Users:        users.Len(),
	})

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	return runGate(ctx, cfg, gateDeps{
		Rangefinder: rf,
		Buzzer:      buzzer,
		Reader:      reader,
		Links:       links,
		Publisher:   publisher,
		Tracker:     tracker,
		Users:       users,
		Logger:      log.Default(),
	})
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

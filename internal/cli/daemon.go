package cli

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sweeney/entry-gate/internal/access"
	"github.com/sweeney/entry-gate/internal/config"
	"github.com/sweeney/entry-gate/internal/controller"
	"github.com/sweeney/entry-gate/internal/feedback"
	"github.com/sweeney/entry-gate/internal/gate"
	"github.com/sweeney/entry-gate/internal/gpio"
	"github.com/sweeney/entry-gate/internal/link"
	"github.com/sweeney/entry-gate/internal/mqtt"
	"github.com/sweeney/entry-gate/internal/nfc"
	"github.com/sweeney/entry-gate/internal/status"
)

// gateDeps are the opened devices and sinks the daemon runs against.
type gateDeps struct {
	Rangefinder gpio.Rangefinder
	Buzzer      gpio.Buzzer
	Reader      nfc.Reader
	Links       []link.Sender  // wireless links besides MQTT
	Publisher   mqtt.Publisher // nil when MQTT is disabled
	Tracker     *status.Tracker
	Users       *gate.AllowList
	Logger      *log.Logger

	// Test hooks; zero values mean real time.
	Now     func() time.Time
	Sleep   func(time.Duration)
	Network func() *status.NetworkInfo
}

// signalCause is the cancellation cause when a signal stops the daemon.
type signalCause struct{ name string }

func (s signalCause) Error() string { return "received " + s.name }

func shutdownReason(ctx context.Context) string {
	var sc signalCause
	if errors.As(context.Cause(ctx), &sc) {
		return sc.name
	}
	return "CANCELLED"
}

// runGate publishes STARTUP, runs the control loop until ctx is done and
// publishes SHUTDOWN.
func runGate(ctx context.Context, cfg config.Config, deps gateDeps) error {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	network := deps.Network
	if network == nil {
		network = readNetworkInfo
	}

	senders := link.Fanout(append([]link.Sender{}, deps.Links...))
	if deps.Publisher != nil {
		senders = append(senders, deps.Publisher)
	}

	disp := feedback.New(deps.Buzzer, senders, deps.Logger, feedback.WithSleep(sleep))
	engine := access.New(deps.Reader, deps.Users,
		access.WithWindow(cfg.CardWindow),
		access.WithPollInterval(cfg.CardPoll),
		access.WithClock(now, sleep),
	)

	rec := &recorder{
		tracker:   deps.Tracker,
		publisher: deps.Publisher,
		heartbeat: cfg.Heartbeat,
		lastBeat:  now(),
		now:       now,
		network:   network,
	}
	if c, ok := deps.Publisher.(mqtt.ConnectionStatus); ok {
		rec.conn = c
	}

	loop := controller.New(controller.Deps{
		Rangefinder: deps.Rangefinder,
		Reader:      deps.Reader,
		Window:      engine,
		Feedback:    disp,
		Height:      cfg.Height(),
	}, controller.WithRecorder(rec), controller.WithClock(now))

	if info := network(); info != nil {
		deps.Tracker.SetNetwork(info)
	}
	rec.system("STARTUP", "")

	log.Printf("started: offset=%dcm min=%dcm max=%dcm window=%v broker=%q users=%d",
		cfg.OffsetCM, cfg.MinHeightCM, cfg.MaxRangeCM, cfg.CardWindow, cfg.Broker, deps.Users.Len())

	err := loop.Run(ctx)

	reason := shutdownReason(ctx)
	log.Printf("shutting down: %s (people=%d)", reason, loop.Count())
	rec.system("SHUTDOWN", reason)
	return err
}

// recorder turns finished iterations into tracker updates, access events and
// heartbeats. It runs on the control loop goroutine.
type recorder struct {
	tracker   *status.Tracker
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus
	heartbeat time.Duration
	lastBeat  time.Time
	now       func() time.Time
	network   func() *status.NetworkInfo
	prevClass gate.Class
}

func (r *recorder) Record(res controller.Result) {
	outcome := controller.OutcomeLabel(res)
	r.tracker.Record(status.Observation{
		Time:     res.Time,
		Class:    res.Class,
		HeightCM: res.HeightCM,
		Outcome:  outcome,
		User:     res.Outcome.User,
		Count:    res.Count,
	})
	r.refreshConnected()

	// AtThreshold has no hold, so someone standing still repeats it at
	// sensor speed. Report it once per arrival.
	repeat := res.Class == gate.AtThreshold && r.prevClass == gate.AtThreshold
	r.prevClass = res.Class

	if res.Class != gate.NoSubject && !repeat {
		log.Printf("event: class=%s height=%dcm outcome=%s user=%q count=%d",
			res.Class, res.HeightCM, outcome, res.Outcome.User, res.Count)
		if r.publisher != nil {
			ev := mqtt.NewAccessEvent(res.Time, string(res.Class), res.HeightCM, outcome, res.Outcome.User, res.Count)
			if err := r.publisher.Publish(ev); err != nil {
				log.Printf("publish error: %v", err)
			}
		}
	}

	r.checkHeartbeat()
}

func (r *recorder) checkHeartbeat() {
	if r.publisher == nil || r.heartbeat <= 0 {
		return
	}
	t := r.now()
	if t.Sub(r.lastBeat) < r.heartbeat {
		return
	}
	r.lastBeat = t
	if info := r.network(); info != nil {
		r.tracker.SetNetwork(info)
	}
	snap := r.tracker.Snapshot()
	log.Printf("heartbeat: uptime=%v people=%d granted=%d rejected=%d",
		snap.Uptime().Truncate(time.Second), snap.PeopleCount, snap.Counts.Granted, snap.Counts.Rejected)
	r.system("HEARTBEAT", "")
}

func (r *recorder) refreshConnected() {
	if r.conn != nil {
		r.tracker.SetMQTTConnected(r.conn.IsConnected())
	}
}

// system publishes a lifecycle event carrying a full status snapshot.
func (r *recorder) system(event, reason string) {
	if r.publisher == nil {
		return
	}
	r.refreshConnected()
	snap := r.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  r.now(),
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := r.publisher.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

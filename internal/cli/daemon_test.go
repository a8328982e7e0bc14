package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"testing"
	"time"

	"github.com/sweeney/entry-gate/internal/config"
	"github.com/sweeney/entry-gate/internal/gate"
	"github.com/sweeney/entry-gate/internal/gpio"
	"github.com/sweeney/entry-gate/internal/link"
	"github.com/sweeney/entry-gate/internal/mqtt"
	"github.com/sweeney/entry-gate/internal/nfc"
	"github.com/sweeney/entry-gate/internal/status"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)} }

func (c *fakeClock) now() time.Time        { return c.t }
func (c *fakeClock) sleep(d time.Duration) { c.t = c.t.Add(d) }

// stopAfter plays the scripted samples, then stops the daemon as if a
// signal arrived. The stopping iteration sees no echo.
type stopAfter struct {
	samples []gpio.Sample
	cancel  context.CancelCauseFunc
	reason  string
}

func (s *stopAfter) Measure() (int, error) {
	if len(s.samples) == 0 {
		s.cancel(signalCause{name: s.reason})
		return 0, gpio.ErrNoEcho
	}
	next := s.samples[0]
	s.samples = s.samples[1:]
	if next.NoEcho {
		return 0, gpio.ErrNoEcho
	}
	return next.CM, nil
}

func (s *stopAfter) Close() error { return nil }

type harness struct {
	clock   *fakeClock
	pub     *mqtt.FakePublisher
	bt      *link.FakeSender
	reader  *nfc.FakeReader
	buzzer  *gpio.FakeBuzzer
	tracker *status.Tracker
	logBuf  *bytes.Buffer
}

func runHarness(t *testing.T, cfg config.Config, samples []gpio.Sample, cards ...[]byte) *harness {
	t.Helper()
	h := &harness{
		clock:  newFakeClock(),
		pub:    &mqtt.FakePublisher{Connected: true},
		bt:     &link.FakeSender{},
		reader: nfc.NewFakeReader(cards...),
		buzzer: gpio.NewFakeBuzzer(),
		logBuf: &bytes.Buffer{},
	}
	h.tracker = status.NewTracker(h.clock.now(), status.Config{Broker: cfg.Broker})

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	err := runGate(ctx, cfg, gateDeps{
		Rangefinder: &stopAfter{samples: samples, cancel: cancel, reason: "SIGTERM"},
		Buzzer:      h.buzzer,
		Reader:      h.reader,
		Links:       []link.Sender{h.bt},
		Publisher:   h.pub,
		Tracker:     h.tracker,
		Users:       gate.NewAllowList(gate.DefaultUsers...),
		Logger:      log.New(h.logBuf, "", 0),
		Now:         h.clock.now,
		Sleep:       h.clock.sleep,
		Network: func() *status.NetworkInfo {
			return &status.NetworkInfo{Type: "wifi", IP: "10.0.0.5", Status: "connected"}
		},
	})
	if err != nil {
		t.Fatalf("runGate: %v", err)
	}
	return h
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := *loadConfig(t)
	cfg.Heartbeat = time.Hour
	return cfg
}

var omarCard = []byte{0x53, 0xa0, 0x04, 0xbe}

func TestRunGateLifecycleEvents(t *testing.T) {
	h := runHarness(t, testConfig(t), nil)

	if len(h.pub.SystemEvents) != 2 {
		t.Fatalf("system events: got %d, want 2", len(h.pub.SystemEvents))
	}
	start, stop := h.pub.SystemEvents[0], h.pub.SystemEvents[1]
	if start.Event != "STARTUP" || !start.Retained {
		t.Errorf("first event: got %+v", start)
	}
	if stop.Event != "SHUTDOWN" || stop.Reason != "SIGTERM" || !stop.Retained {
		t.Errorf("last event: got %+v", stop)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(h.pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("startup payload: %v", err)
	}
	if sj.Status.Event != "STARTUP" {
		t.Errorf("payload event: got %q", sj.Status.Event)
	}
	if sj.Status.Network == nil || sj.Status.Network.IP != "10.0.0.5" {
		t.Errorf("payload network: got %+v", sj.Status.Network)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected mqtt connected in startup payload")
	}
}

func TestRunGateGrantedThenTooShort(t *testing.T) {
	samples := []gpio.Sample{{CM: 90}, {CM: 150}}
	h := runHarness(t, testConfig(t), samples, omarCard)

	wantLines := []string{
		"Please present NFC card for entry.",
		"Welcome, Omar Fathy!",
		"Count of people: 1",
		"Entry denied: Person is too short.",
	}
	for name, got := range map[string][]string{"mqtt": h.pub.Lines, "bluetooth": h.bt.Lines} {
		if len(got) != len(wantLines) {
			t.Fatalf("%s lines: got %q, want %q", name, got, wantLines)
		}
		for i := range wantLines {
			if got[i] != wantLines[i] {
				t.Errorf("%s line %d: got %q, want %q", name, i, got[i], wantLines[i])
			}
		}
	}

	if len(h.pub.Events) != 2 {
		t.Fatalf("access events: got %d, want 2", len(h.pub.Events))
	}
	granted, short := h.pub.Events[0], h.pub.Events[1]
	if granted.Class != "IN_RANGE" || granted.Outcome != "GRANTED" || granted.User != "Omar Fathy" || granted.Count != 1 || granted.HeightCM != 118 {
		t.Errorf("granted event: got %+v", granted)
	}
	if granted.ID == "" {
		t.Error("expected event ID")
	}
	if short.Class != "TOO_SHORT" || short.Outcome != "NONE" || short.HeightCM != 58 || short.Count != 1 {
		t.Errorf("too-short event: got %+v", short)
	}

	snap := h.tracker.Snapshot()
	if snap.PeopleCount != 1 || snap.Counts.Granted != 1 || snap.Counts.TooShort != 1 || snap.Counts.NoSubject != 1 {
		t.Errorf("tracker: got count=%d %+v", snap.PeopleCount, snap.Counts)
	}
	if h.reader.Halts != 3 {
		t.Errorf("halts: got %d, want 3", h.reader.Halts)
	}
	if !bytes.Contains(h.logBuf.Bytes(), []byte("No one under the sensor.")) {
		t.Error("expected no-subject line in the local log")
	}
}

func TestRunGateTimeoutIsSilent(t *testing.T) {
	cfg := testConfig(t)
	h := runHarness(t, cfg, []gpio.Sample{{CM: 90}})

	if len(h.pub.Lines) != 1 || h.pub.Lines[0] != "Please present NFC card for entry." {
		t.Errorf("lines: got %q", h.pub.Lines)
	}
	if len(h.pub.Events) != 1 || h.pub.Events[0].Outcome != "TIMEOUT" {
		t.Fatalf("events: got %+v", h.pub.Events)
	}
	if got := h.tracker.Snapshot().Counts.Timeouts; got != 1 {
		t.Errorf("timeouts: got %d, want 1", got)
	}
}

func TestRunGateNoSubjectPublishesNothing(t *testing.T) {
	h := runHarness(t, testConfig(t), []gpio.Sample{{NoEcho: true}, {CM: 300}})

	if len(h.pub.Events) != 0 {
		t.Errorf("events: got %+v", h.pub.Events)
	}
	if len(h.pub.Lines) != 0 {
		t.Errorf("lines: got %q", h.pub.Lines)
	}
	if got := h.tracker.Snapshot().Counts.NoSubject; got != 3 {
		t.Errorf("no-subject count: got %d, want 3", got)
	}
}

func TestRunGateHeartbeat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Heartbeat = 2 * time.Second

	h := runHarness(t, cfg, []gpio.Sample{{NoEcho: true}, {NoEcho: true}, {NoEcho: true}})

	events := h.pub.SystemEvents
	if events[0].Event != "STARTUP" || events[len(events)-1].Event != "SHUTDOWN" {
		t.Fatalf("lifecycle order: %+v", events)
	}
	beats := 0
	for _, ev := range events[1 : len(events)-1] {
		if ev.Event != "HEARTBEAT" {
			t.Errorf("unexpected event %q", ev.Event)
			continue
		}
		if ev.Retained {
			t.Error("heartbeat should not be retained")
		}
		beats++
	}
	if beats == 0 {
		t.Error("expected at least one heartbeat")
	}
}

func TestRunGateWithoutMQTT(t *testing.T) {
	cfg := testConfig(t)
	cfg.Broker = ""
	clock := newFakeClock()
	bt := &link.FakeSender{}
	tracker := status.NewTracker(clock.now(), status.Config{})

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	err := runGate(ctx, cfg, gateDeps{
		Rangefinder: &stopAfter{samples: []gpio.Sample{{CM: 150}}, cancel: cancel, reason: "SIGINT"},
		Buzzer:      gpio.NewFakeBuzzer(),
		Reader:      nfc.NewFakeReader(),
		Links:       []link.Sender{bt},
		Tracker:     tracker,
		Users:       gate.NewAllowList(gate.DefaultUsers...),
		Logger:      log.New(&bytes.Buffer{}, "", 0),
		Now:         clock.now,
		Sleep:       clock.sleep,
		Network:     func() *status.NetworkInfo { return nil },
	})
	if err != nil {
		t.Fatalf("runGate: %v", err)
	}

	if len(bt.Lines) != 1 || bt.Lines[0] != "Entry denied: Person is too short." {
		t.Errorf("bluetooth lines: got %q", bt.Lines)
	}
	if tracker.Snapshot().MQTTConnected {
		t.Error("MQTT should not be reported connected")
	}
}

func TestRunGateRejectedCard(t *testing.T) {
	// The second allow-list entry carries an uppercase token and never matches.
	h := runHarness(t, testConfig(t), []gpio.Sample{{CM: 90}}, []byte{0xe3, 0x9f, 0x1c, 0x2b})

	if len(h.pub.Lines) != 2 || h.pub.Lines[1] != "Access denied" {
		t.Errorf("lines: got %q", h.pub.Lines)
	}
	if len(h.pub.Events) != 1 || h.pub.Events[0].Outcome != "REJECTED" || h.pub.Events[0].Count != 0 {
		t.Errorf("events: got %+v", h.pub.Events)
	}
}

func TestRunGateAtThresholdReportedOncePerArrival(t *testing.T) {
	// Height 100 is exactly the threshold; the loop has no hold for it.
	samples := make([]gpio.Sample, 0, 1003)
	for i := 0; i < 1000; i++ {
		samples = append(samples, gpio.Sample{CM: 108})
	}
	samples = append(samples, gpio.Sample{NoEcho: true}, gpio.Sample{CM: 108}, gpio.Sample{CM: 108})

	h := runHarness(t, testConfig(t), samples)

	if len(h.pub.Events) != 2 {
		t.Fatalf("access events: got %d, want 2 (one per arrival)", len(h.pub.Events))
	}
	for _, ev := range h.pub.Events {
		if ev.Class != string(gate.AtThreshold) || ev.Outcome != "NONE" || ev.HeightCM != 100 {
			t.Errorf("event: got %+v", ev)
		}
	}
	if got := h.tracker.Snapshot().Counts.AtThreshold; got != 1002 {
		t.Errorf("tracker still counts every iteration: got %d, want 1002", got)
	}
	// Only the two no-echo iterations sound the fail pattern (tone, then low).
	if len(h.pub.Lines) != 0 || len(h.buzzer.Ops) != 4 {
		t.Errorf("unexpected feedback: lines=%q buzzer=%d ops", h.pub.Lines, len(h.buzzer.Ops))
	}
}

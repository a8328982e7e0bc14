package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/entry-gate/internal/access"
	"github.com/sweeney/entry-gate/internal/controller"
	"github.com/sweeney/entry-gate/internal/feedback"
	"github.com/sweeney/entry-gate/internal/gate"
	"github.com/sweeney/entry-gate/internal/gpio"
	"github.com/sweeney/entry-gate/internal/link"
	"github.com/sweeney/entry-gate/internal/mqtt"
	"github.com/sweeney/entry-gate/internal/nfc"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time        { return c.t }
func (c *clock) sleep(d time.Duration) { c.t = c.t.Add(d) }

// rig wires the real engine, dispatcher and loop to fake hardware.
type rig struct {
	clock  *clock
	rf     *gpio.FakeRangefinder
	buzzer *gpio.FakeBuzzer
	reader *nfc.FakeReader
	pub    *mqtt.FakePublisher
	bt     *link.FakeSender
	logBuf *bytes.Buffer
	loop   *controller.Loop
}

func newRig(samples []gpio.Sample, cards ...[]byte) *rig {
	r := &rig{
		clock:  &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
		rf:     gpio.NewFakeRangefinder(samples...),
		buzzer: gpio.NewFakeBuzzer(),
		reader: nfc.NewFakeReader(cards...),
		pub:    mqtt.NewFakePublisher(),
		bt:     &link.FakeSender{},
		logBuf: &bytes.Buffer{},
	}

	users := gate.NewAllowList(gate.DefaultUsers...)
	engine := access.New(r.reader, users, access.WithClock(r.clock.now, r.clock.sleep))
	disp := feedback.New(r.buzzer, link.Fanout{r.bt, r.pub}, log.New(r.logBuf, "", 0),
		feedback.WithSleep(r.clock.sleep))

	r.loop = controller.New(controller.Deps{
		Rangefinder: r.rf,
		Reader:      r.reader,
		Window:      engine,
		Feedback:    disp,
		Height:      gate.DefaultHeightConfig,
	}, controller.WithClock(r.clock.now))
	return r
}

func (r *rig) step() controller.Result {
	return r.loop.Step(context.Background())
}

func TestScenarioTooShort(t *testing.T) {
	r := newRig([]gpio.Sample{{CM: 150}})
	res := r.step()

	if res.Class != gate.TooShort || res.HeightCM != 58 {
		t.Errorf("result: got class=%s height=%d", res.Class, res.HeightCM)
	}
	if res.Prompted {
		t.Error("card window should not open")
	}
	if r.reader.Polls != 0 {
		t.Errorf("reader polled %d times", r.reader.Polls)
	}
	if len(r.bt.Lines) != 1 || r.bt.Lines[0] != feedback.MsgTooShort {
		t.Errorf("lines: got %q", r.bt.Lines)
	}
	if len(r.buzzer.Ops) == 0 || !r.buzzer.Ops[0].Tone || r.buzzer.Ops[0].Hz != 1000 {
		t.Errorf("buzzer: got %+v", r.buzzer.Ops)
	}
}

func TestScenarioGranted(t *testing.T) {
	r := newRig([]gpio.Sample{{CM: 90}}, []byte{0x04, 0x4a, 0xf5, 0x6a, 0x2c, 0x59, 0x80})
	res := r.step()

	if !res.Decided || !res.Outcome.Granted || res.Outcome.User != "Abdalla Nassar" {
		t.Fatalf("result: got %+v", res)
	}
	if r.loop.Count() != 1 || res.Count != 1 {
		t.Errorf("count: got %d/%d, want 1", r.loop.Count(), res.Count)
	}

	want := []string{
		feedback.MsgPromptCard,
		"Welcome, Abdalla Nassar!",
		"Count of people: 1",
	}
	if strings.Join(r.bt.Lines, "|") != strings.Join(want, "|") {
		t.Errorf("bluetooth lines: got %q, want %q", r.bt.Lines, want)
	}
	if strings.Join(r.pub.Lines, "|") != strings.Join(want, "|") {
		t.Errorf("mqtt lines: got %q, want %q", r.pub.Lines, want)
	}

	// Success pattern: high then low, no tone.
	ops := r.buzzer.Ops
	if len(ops) != 2 || !ops[0].High || ops[1].High || ops[0].Tone {
		t.Errorf("buzzer: got %+v", ops)
	}
	if r.buzzer.High {
		t.Error("buzzer left high")
	}
	if r.reader.Halts != 1 {
		t.Errorf("halts: got %d, want 1", r.reader.Halts)
	}
}

func TestScenarioRejected(t *testing.T) {
	r := newRig([]gpio.Sample{{CM: 90}}, []byte{0xff, 0xff, 0xff})
	res := r.step()

	if !res.Decided || res.Outcome.Granted {
		t.Fatalf("result: got %+v", res)
	}
	if r.loop.Count() != 0 {
		t.Errorf("count: got %d, want 0", r.loop.Count())
	}
	if len(r.bt.Lines) != 2 || r.bt.Lines[1] != feedback.MsgRejected {
		t.Errorf("lines: got %q", r.bt.Lines)
	}
}

func TestScenarioTimeout(t *testing.T) {
	r := newRig([]gpio.Sample{{CM: 90}})
	start := r.clock.now()
	res := r.step()

	if !res.Prompted || res.Decided {
		t.Fatalf("result: got %+v", res)
	}
	if controller.OutcomeLabel(res) != controller.LabelTimeout {
		t.Errorf("label: got %s", controller.OutcomeLabel(res))
	}
	if elapsed := r.clock.now().Sub(start); elapsed < access.DefaultWindow {
		t.Errorf("window closed after %v, want at least %v", elapsed, access.DefaultWindow)
	}
	if len(r.bt.Lines) != 1 || r.bt.Lines[0] != feedback.MsgPromptCard {
		t.Errorf("only the prompt should be sent, got %q", r.bt.Lines)
	}
	if len(r.buzzer.Ops) != 0 {
		t.Errorf("buzzer should stay silent, got %+v", r.buzzer.Ops)
	}
	if r.loop.Count() != 0 {
		t.Errorf("count: got %d, want 0", r.loop.Count())
	}
}

func TestScenarioZeroHeight(t *testing.T) {
	r := newRig([]gpio.Sample{{CM: 208}})
	res := r.step()

	if res.Class != gate.NoSubject {
		t.Errorf("class: got %s, want %s", res.Class, gate.NoSubject)
	}
	if len(r.bt.Lines) != 0 {
		t.Errorf("no-subject sends nothing, got %q", r.bt.Lines)
	}
	if !strings.Contains(r.logBuf.String(), feedback.MsgNoSubject) {
		t.Error("expected no-subject line in local log")
	}
}

func TestCountAccumulatesAcrossEntries(t *testing.T) {
	abdalla := []byte{0x04, 0x4a, 0xf5, 0x6a, 0x2c, 0x59, 0x80}
	mariam := []byte{0xc3, 0x07, 0xe1, 0x2d}
	r := newRig([]gpio.Sample{{CM: 90}, {CM: 95}, {NoEcho: true}, {CM: 100}}, abdalla, mariam)

	for i := 0; i < 4; i++ {
		r.step()
	}

	if r.loop.Count() != 2 {
		t.Fatalf("count: got %d, want 2", r.loop.Count())
	}
	last := r.bt.Lines[len(r.bt.Lines)-1]
	if last != feedback.MsgPromptCard {
		t.Errorf("last line: got %q", last)
	}
	found := false
	for _, l := range r.bt.Lines {
		if l == "Count of people: 2" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing second count line in %q", r.bt.Lines)
	}
}

func TestAccessEventPayload(t *testing.T) {
	r := newRig([]gpio.Sample{{CM: 90}}, []byte{0x53, 0xa0, 0x04, 0xbe})
	res := r.step()

	ev := mqtt.NewAccessEvent(res.Time, string(res.Class), res.HeightCM,
		controller.OutcomeLabel(res), res.Outcome.User, res.Count)
	if err := r.pub.Publish(ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(r.pub.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	got := parsed["access"]
	if got["outcome"] != "GRANTED" || got["user"] != "Omar Fathy" || got["people_count"] != float64(1) {
		t.Errorf("payload: got %v", got)
	}
	if got["timestamp"] != "2026-01-01T12:00:00Z" {
		t.Errorf("timestamp: got %v", got["timestamp"])
	}
}

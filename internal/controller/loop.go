// Package controller runs the gate's control loop: measure, classify,
// dispatch feedback or open the card window, halt the card session, repeat.
package controller

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweeney/entry-gate/internal/gate"
)

// Rangefinder supplies one distance reading per iteration.
type Rangefinder interface {
	Measure() (int, error)
}

// SessionHalter resets the card reader at the end of every iteration.
type SessionHalter interface {
	Halt()
}

// CardWindow opens the card-wait window.
type CardWindow interface {
	Await(ctx context.Context) (gate.Outcome, bool)
}

// Feedback sequences user-facing effects. Each call blocks until done.
type Feedback interface {
	NoSubject()
	TooShort()
	PromptCard()
	Granted(name string, count uint64)
	Rejected()
}

// Recorder observes every finished iteration.
type Recorder interface {
	Record(Result)
}

// Deps are the loop's collaborators.
type Deps struct {
	Rangefinder Rangefinder
	Reader      SessionHalter
	Window      CardWindow
	Feedback    Feedback
	Height      gate.HeightConfig
}

// Result describes one finished iteration.
type Result struct {
	Time     time.Time
	Class    gate.Class
	HeightCM int  // only meaningful when Echo is true
	Echo     bool // false = sensor gave no echo or failed
	Prompted bool // card window was opened
	Decided  bool // a card was read within the window
	Outcome  gate.Outcome
	Count    uint64 // people count after this iteration
}

// Loop is the control loop. It is not safe for concurrent use; Run and Step
// must be called from a single goroutine.
type Loop struct {
	deps     Deps
	count    uint64
	recorder Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithRecorder sets an observer for finished iterations.
func WithRecorder(r Recorder) Option {
	return func(l *Loop) { l.recorder = r }
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(l *Loop) { l.tracer = t }
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// New creates a Loop with a people count of zero.
func New(deps Deps, opts ...Option) *Loop {
	l := &Loop{
		deps:   deps,
		tracer: otel.Tracer("github.com/sweeney/entry-gate/internal/controller"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Count returns the number of granted entries since the loop was created.
func (l *Loop) Count() uint64 {
	return l.count
}

// Run calls Step until ctx is cancelled. Cancellation is observed between
// iterations and inside the card window; feedback holds always complete.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		l.Step(ctx)
	}
}

// Step runs exactly one iteration and returns what happened.
func (l *Loop) Step(ctx context.Context) Result {
	ctx, span := l.tracer.Start(ctx, "gate.iteration")
	defer span.End()

	res := l.step(ctx)

	// Always end the card session, whatever path was taken.
	l.deps.Reader.Halt()

	res.Count = l.count
	span.SetAttributes(
		attribute.String("gate.class", string(res.Class)),
		attribute.Int("gate.height_cm", res.HeightCM),
		attribute.String("gate.outcome", OutcomeLabel(res)),
	)

	if l.recorder != nil {
		l.recorder.Record(res)
	}
	return res
}

func (l *Loop) step(ctx context.Context) Result {
	reading := gate.Reading{}
	if cm, err := l.deps.Rangefinder.Measure(); err == nil {
		reading = gate.Reading{DistanceCM: cm, Echo: true}
	}

	res := Result{
		Time:  l.now(),
		Class: gate.Classify(l.deps.Height, reading),
		Echo:  reading.Echo,
	}
	if reading.Echo {
		res.HeightCM = gate.Height(l.deps.Height, reading)
	}

	switch res.Class {
	case gate.NoSubject:
		l.deps.Feedback.NoSubject()

	case gate.TooShort:
		l.deps.Feedback.TooShort()

	case gate.InRange:
		res.Prompted = true
		l.deps.Feedback.PromptCard()

		out, ok := l.deps.Window.Await(ctx)
		if !ok {
			// Silent timeout: no feedback for this detection.
			return res
		}
		res.Decided = true
		res.Outcome = out

		if out.Granted {
			l.count++
			l.deps.Feedback.Granted(out.User, l.count)
		} else {
			l.deps.Feedback.Rejected()
		}

	case gate.AtThreshold:
		// Neither branch applies at exactly the threshold.
	}

	return res
}

// Outcome labels used in logs, traces and published events.
const (
	LabelGranted  = "GRANTED"
	LabelRejected = "REJECTED"
	LabelTimeout  = "TIMEOUT"
	LabelNone     = "NONE"
)

// OutcomeLabel summarizes the card-window result of an iteration.
func OutcomeLabel(r Result) string {
	switch {
	case !r.Prompted:
		return LabelNone
	case !r.Decided:
		return LabelTimeout
	case r.Outcome.Granted:
		return LabelGranted
	default:
		return LabelRejected
	}
}

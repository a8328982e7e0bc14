// Package access runs the card-wait window: it polls the card reader for a
// bounded time and matches the first card read against the allow-list.
package access

import (
	"context"
	"time"

	"github.com/sweeney/entry-gate/internal/gate"
)

// Default timings.
const (
	DefaultWindow       = 8000 * time.Millisecond
	DefaultPollInterval = 50 * time.Millisecond
)

// CardSource is the part of the card reader the engine polls.
type CardSource interface {
	CardPresent() bool
	ReadUID() ([]byte, bool)
}

// Engine owns the card-wait window and the matching policy.
type Engine struct {
	reader CardSource
	users  *gate.AllowList
	window time.Duration
	poll   time.Duration
	now    func() time.Time
	sleep  func(time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow sets how long Await waits for a card.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

// WithPollInterval sets the pause between card polls.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.poll = d }
}

// WithClock replaces time.Now and time.Sleep. Tests pass a fake clock whose
// sleep advances now.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(e *Engine) {
		e.now = now
		e.sleep = sleep
	}
}

// New creates an Engine matching cards from reader against users.
func New(reader CardSource, users *gate.AllowList, opts ...Option) *Engine {
	e := &Engine{
		reader: reader,
		users:  users,
		window: DefaultWindow,
		poll:   DefaultPollInterval,
		now:    time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window returns the configured wait window.
func (e *Engine) Window() time.Duration {
	return e.window
}

// Await opens the card-wait window. It returns as soon as one card is read:
// Granted with the first matching user's name, or Rejected. If the window
// elapses without a read, or ctx is cancelled, it returns false and no
// outcome.
func (e *Engine) Await(ctx context.Context) (gate.Outcome, bool) {
	start := e.now()

	for e.now().Sub(start) < e.window {
		if ctx.Err() != nil {
			return gate.Outcome{}, false
		}

		if e.reader.CardPresent() {
			if raw, ok := e.reader.ReadUID(); ok {
				return e.Decide(gate.FormatUID(raw)), true
			}
		}

		e.sleep(e.poll)
	}
	return gate.Outcome{}, false
}

// Decide matches a rendered UID against the allow-list.
func (e *Engine) Decide(uid string) gate.Outcome {
	if u, ok := e.users.Match(uid); ok {
		return gate.Outcome{Granted: true, User: u.Name}
	}
	return gate.Outcome{}
}

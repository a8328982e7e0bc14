// Package feedback sequences the gate's user-facing effects: diagnostic log
// lines, wireless notifications and buzzer patterns.
//
// Every method blocks until its whole sequence, including holds, is done.
// Effects within a sequence always happen in the documented order.
package feedback

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/entry-gate/internal/gpio"
	"github.com/sweeney/entry-gate/internal/link"
)

// Messages sent to the log and the wireless link.
const (
	MsgTooShort   = "Entry denied: Person is too short."
	MsgNoSubject  = "No one under the sensor."
	MsgPromptCard = "Please present NFC card for entry."
	MsgRejected   = "Access denied"
)

// WelcomeLine is the first line of a granted notification.
func WelcomeLine(name string) string {
	return fmt.Sprintf("Welcome, %s!", name)
}

// CountLine is the second line of a granted notification.
func CountLine(count uint64) string {
	return fmt.Sprintf("Count of people: %d", count)
}

// Timing holds the tone parameters and hold durations.
type Timing struct {
	FailToneHz    int
	FailTone      time.Duration
	FailQuiet     time.Duration
	SuccessHigh   time.Duration
	NoSubjectHold time.Duration
	GrantedHold   time.Duration
	RejectedHold  time.Duration
}

// DefaultTiming matches the reference installation.
var DefaultTiming = Timing{
	FailToneHz:    1000,
	FailTone:      200 * time.Millisecond,
	FailQuiet:     200 * time.Millisecond,
	SuccessHigh:   550 * time.Millisecond,
	NoSubjectHold: 1500 * time.Millisecond,
	GrantedHold:   3000 * time.Millisecond,
	RejectedHold:  1000 * time.Millisecond,
}

// Dispatcher drives the buzzer, the wireless link and the local log.
type Dispatcher struct {
	buzzer gpio.Buzzer
	sender link.Sender
	logger *log.Logger
	timing Timing
	sleep  func(time.Duration)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSleep replaces time.Sleep for holds.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

// WithTiming replaces DefaultTiming.
func WithTiming(t Timing) Option {
	return func(d *Dispatcher) { d.timing = t }
}

// New creates a Dispatcher. logger is the local diagnostic log.
func New(buzzer gpio.Buzzer, sender link.Sender, logger *log.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		buzzer: buzzer,
		sender: sender,
		logger: logger,
		timing: DefaultTiming,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TooShort: notify, then fail pattern.
func (d *Dispatcher) TooShort() {
	d.announce(MsgTooShort)
	d.fail()
}

// NoSubject: log only, fail pattern, then the idle cooldown.
func (d *Dispatcher) NoSubject() {
	d.logger.Println(MsgNoSubject)
	d.fail()
	d.sleep(d.timing.NoSubjectHold)
}

// PromptCard asks the subject to present a card. No buzzer.
func (d *Dispatcher) PromptCard() {
	d.announce(MsgPromptCard)
}

// Granted: welcome and count lines, success pattern, then a cooldown so the
// same card is not read again straight away. count is the people count
// after this entry.
func (d *Dispatcher) Granted(name string, count uint64) {
	d.announce(WelcomeLine(name))
	d.announce(CountLine(count))
	d.success()
	d.sleep(d.timing.GrantedHold)
}

// Rejected: notify, fail pattern, then a short hold.
func (d *Dispatcher) Rejected() {
	d.announce(MsgRejected)
	d.fail()
	d.sleep(d.timing.RejectedHold)
}

// announce writes msg to the local log, then the wireless link.
func (d *Dispatcher) announce(msg string) {
	d.logger.Println(msg)
	if err := d.sender.SendLine(msg); err != nil {
		d.logger.Printf("feedback: send %q: %v", msg, err)
	}
}

// fail is one short tone followed by a quiet hold.
func (d *Dispatcher) fail() {
	if err := d.buzzer.Tone(d.timing.FailToneHz, d.timing.FailTone); err != nil {
		d.logger.Printf("feedback: buzzer tone: %v", err)
	}
	d.setLevel(false)
	d.sleep(d.timing.FailQuiet)
}

// success holds the buzzer output high, then releases it.
func (d *Dispatcher) success() {
	d.setLevel(true)
	d.sleep(d.timing.SuccessHigh)
	d.setLevel(false)
}

func (d *Dispatcher) setLevel(high bool) {
	if err := d.buzzer.SetLevel(high); err != nil {
		d.logger.Printf("feedback: buzzer level: %v", err)
	}
}

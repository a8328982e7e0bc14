//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// echoStartTimeout bounds the wait for the echo line to rise after a trigger.
// The HC-SR04 raises echo ~500µs after the trigger pulse.
const echoStartTimeout = 30 * time.Millisecond

// RealRangefinder measures distance with an HC-SR04 on two GPIO lines.
// Echo edges are timestamped by the kernel, so pulse width does not depend
// on scheduling latency.
type RealRangefinder struct {
	chip  *gpiocdev.Chip
	trig  *gpiocdev.Line
	echo  *gpiocdev.Line
	edges chan gpiocdev.LineEvent
	maxCM int
}

// NewRealRangefinder requests the trigger line as output (low) and the echo
// line as input with edge detection on both edges.
func NewRealRangefinder(chipName string, pinTrig, pinEcho, maxCM int) (*RealRangefinder, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealRangefinder{
		chip:  chip,
		edges: make(chan gpiocdev.LineEvent, 8),
		maxCM: maxCM,
	}

	trig, err := chip.RequestLine(pinTrig, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request trigger pin %d: %w", pinTrig, err)
	}
	r.trig = trig

	echo, err := chip.RequestLine(pinEcho,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.handleEdge))
	if err != nil {
		trig.Close()
		chip.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", pinEcho, err)
	}
	r.echo = echo

	return r, nil
}

func (r *RealRangefinder) handleEdge(evt gpiocdev.LineEvent) {
	select {
	case r.edges <- evt:
	default:
		// Measure drains stale edges before each ping; dropping here only
		// loses edges nobody is waiting for.
	}
}

// Measure sends a 10µs trigger pulse and times the echo pulse.
func (r *RealRangefinder) Measure() (int, error) {
	r.drain()

	if err := r.trig.SetValue(1); err != nil {
		return 0, fmt.Errorf("set trigger high: %w", err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := r.trig.SetValue(0); err != nil {
		return 0, fmt.Errorf("set trigger low: %w", err)
	}

	rise, ok := r.waitEdge(gpiocdev.LineEventRisingEdge, echoStartTimeout)
	if !ok {
		return 0, ErrNoEcho
	}

	limit := maxPulse(r.maxCM)
	fall, ok := r.waitEdge(gpiocdev.LineEventFallingEdge, limit+time.Millisecond)
	if !ok {
		return 0, ErrNoEcho
	}

	width := fall.Timestamp - rise.Timestamp
	if width <= 0 || width > limit {
		return 0, ErrNoEcho
	}
	return pulseToCM(width), nil
}

func (r *RealRangefinder) waitEdge(want gpiocdev.LineEventType, timeout time.Duration) (gpiocdev.LineEvent, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case evt := <-r.edges:
			if evt.Type == want {
				return evt, true
			}
		case <-timer.C:
			return gpiocdev.LineEvent{}, false
		}
	}
}

func (r *RealRangefinder) drain() {
	for {
		select {
		case <-r.edges:
		default:
			return
		}
	}
}

// Close releases GPIO resources.
// Reconfigures the trigger to input with pull-down (matching Pi boot defaults)
// before closing.
func (r *RealRangefinder) Close() error {
	var errs []error

	if r.trig != nil {
		if err := r.trig.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger pin: %w", err))
		}
		if err := r.trig.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger pin: %w", err))
		}
	}
	if r.echo != nil {
		if err := r.echo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close echo pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealBuzzer drives a buzzer on one GPIO output line.
type RealBuzzer struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealBuzzer requests pin as an output, initially low.
func NewRealBuzzer(chipName string, pin int) (*RealBuzzer, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", pin, err)
	}

	return &RealBuzzer{chip: chip, line: line}, nil
}

// SetLevel drives the buzzer line.
func (b *RealBuzzer) SetLevel(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := b.line.SetValue(v); err != nil {
		return fmt.Errorf("set buzzer level: %w", err)
	}
	return nil
}

// Tone toggles the line at hz for d. The square wave is generated in software,
// so pitch jitters with scheduling; a passive piezo does not mind.
func (b *RealBuzzer) Tone(hz int, d time.Duration) error {
	if hz <= 0 {
		time.Sleep(d)
		return b.SetLevel(false)
	}

	half := time.Second / time.Duration(2*hz)
	deadline := time.Now().Add(d)
	high := true
	for time.Now().Before(deadline) {
		if err := b.SetLevel(high); err != nil {
			return err
		}
		high = !high
		time.Sleep(half)
	}
	return b.SetLevel(false)
}

// Close drives the line low, reconfigures it as input with pull-down and
// releases the chip.
func (b *RealBuzzer) Close() error {
	var errs []error

	if b.line != nil {
		if err := b.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("set buzzer low: %w", err))
		}
		if err := b.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure buzzer pin: %w", err))
		}
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

package nfc

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"
)

// SerialReader reads card UIDs from a reader bridge that prints one UID per
// line on a serial port (for example an MFRC522 behind a microcontroller,
// or a USB reader in serial mode).
//
// A background goroutine scans lines; CardPresent and ReadUID never block.
type SerialReader struct {
	dev     io.ReadCloser
	restore func() error
	cards   chan []byte
	pending []byte
}

// OpenSerialReader opens path and starts scanning it. If path is a terminal
// it is switched to raw mode so the line discipline does not echo or
// translate the reader's output.
func OpenSerialReader(path string) (*SerialReader, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open card reader %s: %w", path, err)
	}

	restore := func() error { return nil }
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("raw mode %s: %w", path, err)
		}
		restore = func() error { return term.Restore(fd, state) }
	}

	r := NewStreamReader(f)
	r.restore = restore
	return r, nil
}

// NewStreamReader scans UID lines from any stream.
func NewStreamReader(rc io.ReadCloser) *SerialReader {
	r := &SerialReader{
		dev:     rc,
		restore: func() error { return nil },
		cards:   make(chan []byte, 1),
	}
	go r.scan()
	return r
}

func (r *SerialReader) scan() {
	sc := bufio.NewScanner(r.dev)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		uid, err := ParseUID(line)
		if err != nil {
			log.Printf("nfc: ignoring line: %v", err)
			continue
		}
		// Keep only the newest card if the loop has not polled yet.
		select {
		case r.cards <- uid:
		default:
			select {
			case <-r.cards:
			default:
			}
			select {
			case r.cards <- uid:
			default:
			}
		}
	}
	if err := sc.Err(); err != nil {
		log.Printf("nfc: reader stopped: %v", err)
	}
}

// CardPresent reports whether a UID line has arrived since the last Halt or
// ReadUID.
func (r *SerialReader) CardPresent() bool {
	if r.pending != nil {
		return true
	}
	select {
	case uid := <-r.cards:
		r.pending = uid
		return true
	default:
		return false
	}
}

// ReadUID returns the pending UID, if any.
func (r *SerialReader) ReadUID() ([]byte, bool) {
	if r.pending == nil && !r.CardPresent() {
		return nil, false
	}
	uid := r.pending
	r.pending = nil
	return uid, true
}

// Halt discards any pending or queued UID.
func (r *SerialReader) Halt() {
	r.pending = nil
	select {
	case <-r.cards:
	default:
	}
}

// Close restores the terminal mode and closes the device, which stops the
// scanning goroutine.
func (r *SerialReader) Close() error {
	var errs []error
	if err := r.restore(); err != nil {
		errs = append(errs, fmt.Errorf("restore tty: %w", err))
	}
	if err := r.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

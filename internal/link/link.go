// Package link provides the wireless text notification link.
package link

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Sender delivers one line of text to whoever is listening.
// Delivery is fire-and-forget: an error is reported but nothing is retried.
type Sender interface {
	SendLine(text string) error
}

// SerialLink writes lines to a serial device, typically an HC-05 style
// Bluetooth module bound to /dev/rfcomm0.
type SerialLink struct {
	mu      sync.Mutex
	w       io.WriteCloser
	restore func() error
}

// OpenSerialLink opens path for writing. Terminals are switched to raw mode
// so "\r\n" reaches the phone unchanged.
func OpenSerialLink(path string) (*SerialLink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("open link %s: %w", path, err)
	}

	l := NewWriterLink(f)
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("raw mode %s: %w", path, err)
		}
		l.restore = func() error { return term.Restore(fd, state) }
	}
	return l, nil
}

// NewWriterLink sends lines to any writer.
func NewWriterLink(w io.WriteCloser) *SerialLink {
	return &SerialLink{w: w, restore: func() error { return nil }}
}

// SendLine writes text followed by CRLF.
func (l *SerialLink) SendLine(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.w, text+"\r\n"); err != nil {
		return fmt.Errorf("link write: %w", err)
	}
	return nil
}

// Close restores the terminal and closes the device.
func (l *SerialLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.restore(), l.w.Close())
}

// Fanout sends each line to every sender in order.
type Fanout []Sender

// SendLine delivers text to all senders, even when an earlier one fails.
func (f Fanout) SendLine(text string) error {
	var errs []error
	for _, s := range f {
		if err := s.SendLine(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Sender that drops every line.
var Discard Sender = discard{}

type discard struct{}

func (discard) SendLine(string) error { return nil }

// FakeSender records lines for test assertions.
type FakeSender struct {
	Lines []string

	// Err, if set, is returned by SendLine after recording the line.
	Err error
}

// SendLine records text.
func (f *FakeSender) SendLine(text string) error {
	f.Lines = append(f.Lines, text)
	return f.Err
}

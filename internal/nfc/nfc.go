// Package nfc provides proximity-card reading with hardware abstraction.
// The real implementation reads UID lines from a serial-attached reader.
// The fake implementation allows testing without hardware.
package nfc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrClosed is returned when reading from a closed reader.
var ErrClosed = errors.New("nfc: reader closed")

// Reader reads proximity-card UIDs.
type Reader interface {
	// CardPresent reports whether a new, readable card is in the field.
	CardPresent() bool

	// ReadUID returns the raw UID bytes of the present card.
	// Returns false if no card could be read.
	ReadUID() ([]byte, bool)

	// Halt ends the current card session so the same card is not
	// reported again by the next CardPresent. Calling it twice is the
	// same as calling it once.
	Halt()

	// Close releases the device.
	Close() error
}

// ParseUID parses a reader line into UID bytes. It accepts hex bytes
// separated by spaces, colons or dashes ("04 4A F5", "04:4a:f5"), or a
// single run of hex digits ("044af5").
func ParseUID(line string) ([]byte, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errors.New("empty uid")
	}

	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == ':' || r == '-' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("uid %q: no hex bytes", line)
	}

	if len(fields) == 1 && len(fields[0]) > 2 {
		run := fields[0]
		if len(run)%2 != 0 {
			return nil, fmt.Errorf("uid %q: odd number of hex digits", line)
		}
		fields = fields[:0]
		for i := 0; i < len(run); i += 2 {
			fields = append(fields, run[i:i+2])
		}
	}

	uid := make([]byte, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("uid %q: bad byte %q", line, f)
		}
		uid = append(uid, byte(v))
	}
	return uid, nil
}

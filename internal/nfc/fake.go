package nfc

// FakeReader is a test double that presents scripted cards.
type FakeReader struct {
	// Cards is the queue of UIDs to present, in order. A card is consumed
	// by a successful ReadUID.
	Cards [][]byte

	// Delay is the number of CardPresent polls that report no card before
	// the next queued card enters the field.
	Delay int

	// FailReads makes ReadUID report failure while a card is present.
	FailReads bool

	// Counters for assertions.
	Polls int
	Reads int
	Halts int

	Closed bool

	waited  int
	present bool
}

// NewFakeReader creates a FakeReader that presents cards in order.
func NewFakeReader(cards ...[]byte) *FakeReader {
	return &FakeReader{Cards: cards}
}

// CardPresent reports the next queued card once Delay polls have passed.
func (f *FakeReader) CardPresent() bool {
	f.Polls++
	if f.present {
		return true
	}
	if len(f.Cards) == 0 {
		return false
	}
	if f.waited < f.Delay {
		f.waited++
		return false
	}
	f.present = true
	return true
}

// ReadUID consumes the present card.
func (f *FakeReader) ReadUID() ([]byte, bool) {
	f.Reads++
	if !f.present || f.FailReads {
		return nil, false
	}
	uid := f.Cards[0]
	f.Cards = f.Cards[1:]
	f.present = false
	f.waited = 0
	return uid, true
}

// Halt ends the session of any card in the field; it stays queued but must
// wait Delay polls again before it is reported.
func (f *FakeReader) Halt() {
	f.Halts++
	f.present = false
	f.waited = 0
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

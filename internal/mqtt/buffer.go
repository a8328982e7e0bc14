package mqtt

import "log"

// pendingMsg is a serialized message held while the broker is unreachable.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO: when full, the oldest message is dropped.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type outbox struct {
	msgs    []pendingMsg
	next    int // slot for the next push
	n       int
	dropped int // messages lost since the last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{msgs: make([]pendingMsg, capacity)}
}

func (o *outbox) push(msg pendingMsg) {
	if o.n == len(o.msgs) {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", len(o.msgs))
		}
		o.dropped++
	} else {
		o.n++
	}
	o.msgs[o.next] = msg
	o.next = (o.next + 1) % len(o.msgs)
}

// drain returns held messages oldest first and empties the outbox.
func (o *outbox) drain() []pendingMsg {
	if o.n == 0 {
		return nil
	}

	out := make([]pendingMsg, 0, o.n)
	first := (o.next - o.n + len(o.msgs)) % len(o.msgs)
	for i := 0; i < o.n; i++ {
		out = append(out, o.msgs[(first+i)%len(o.msgs)])
	}

	if o.dropped > 0 {
		log.Printf("mqtt: %d messages were dropped while offline", o.dropped)
	}
	o.next, o.n, o.dropped = 0, 0, 0
	return out
}

func (o *outbox) len() int {
	return o.n
}

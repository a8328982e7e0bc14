// Package status provides a thread-safe status tracker for the entry-gate daemon.
// The control loop writes to it; HTTP handlers and MQTT heartbeats read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/entry-gate/internal/controller"
	"github.com/sweeney/entry-gate/internal/gate"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	OffsetCM     int
	MinHeightCM  int
	MaxRangeCM   int
	CardWindowMs int64
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
	Users        int // allow-list size
}

// Counts tallies iterations by class and card-window outcome since startup.
type Counts struct {
	NoSubject   int
	TooShort    int
	InRange     int
	AtThreshold int
	Granted     int
	Rejected    int
	Timeouts    int
}

// LastEvent describes the most recent iteration that was not NoSubject.
type LastEvent struct {
	Time     time.Time
	Class    string
	HeightCM int
	Outcome  string
	User     string
}

// Observation is what the control loop reports after each iteration.
type Observation struct {
	Time     time.Time
	Class    gate.Class
	HeightCM int
	Outcome  string // one of controller.Label*
	User     string
	Count    uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	PeopleCount   uint64
	Iterations    int
	Counts        Counts
	Last          *LastEvent
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Record folds one iteration into the counters.
// Called from the control loop after every iteration.
func (t *Tracker) Record(o Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Iterations++
	t.snap.PeopleCount = o.Count

	switch o.Class {
	case gate.NoSubject:
		t.snap.Counts.NoSubject++
		return
	case gate.TooShort:
		t.snap.Counts.TooShort++
	case gate.InRange:
		t.snap.Counts.InRange++
	case gate.AtThreshold:
		t.snap.Counts.AtThreshold++
	}

	switch o.Outcome {
	case controller.LabelGranted:
		t.snap.Counts.Granted++
	case controller.LabelRejected:
		t.snap.Counts.Rejected++
	case controller.LabelTimeout:
		t.snap.Counts.Timeouts++
	}

	t.snap.Last = &LastEvent{
		Time:     o.Time,
		Class:    string(o.Class),
		HeightCM: o.HeightCM,
		Outcome:  o.Outcome,
		User:     o.User,
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}

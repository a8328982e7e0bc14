package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	PeopleCount   uint64       `json:"people_count"`
	Iterations    int          `json:"iterations"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Last          *LastJSON    `json:"last,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of iteration counts.
type CountsJSON struct {
	NoSubject   int `json:"no_subject"`
	TooShort    int `json:"too_short"`
	InRange     int `json:"in_range"`
	AtThreshold int `json:"at_threshold"`
	Granted     int `json:"granted"`
	Rejected    int `json:"rejected"`
	Timeouts    int `json:"timeouts"`
}

// LastJSON is the JSON representation of the last detection.
type LastJSON struct {
	Timestamp string `json:"timestamp"`
	Class     string `json:"class"`
	HeightCM  int    `json:"height_cm"`
	Outcome   string `json:"outcome"`
	User      string `json:"user,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	OffsetCM     int    `json:"offset_cm"`
	MinHeightCM  int    `json:"min_height_cm"`
	MaxRangeCM   int    `json:"max_range_cm"`
	CardWindowMs int64  `json:"card_window_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	Users        int    `json:"users"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		PeopleCount:   snap.PeopleCount,
		Iterations:    snap.Iterations,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			NoSubject:   snap.Counts.NoSubject,
			TooShort:    snap.Counts.TooShort,
			InRange:     snap.Counts.InRange,
			AtThreshold: snap.Counts.AtThreshold,
			Granted:     snap.Counts.Granted,
			Rejected:    snap.Counts.Rejected,
			Timeouts:    snap.Counts.Timeouts,
		},
		Config: ConfigJSON{
			OffsetCM:     snap.Config.OffsetCM,
			MinHeightCM:  snap.Config.MinHeightCM,
			MaxRangeCM:   snap.Config.MaxRangeCM,
			CardWindowMs: snap.Config.CardWindowMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			Users:        snap.Config.Users,
		},
	}

	if snap.Last != nil {
		inner.Last = &LastJSON{
			Timestamp: snap.Last.Time.UTC().Format(time.RFC3339),
			Class:     snap.Last.Class,
			HeightCM:  snap.Last.HeightCM,
			Outcome:   snap.Last.Outcome,
			User:      snap.Last.User,
		}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

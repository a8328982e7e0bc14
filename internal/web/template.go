package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/entry-gate/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"clock": func(t time.Time) string {
		return t.Local().Format("15:04:05")
	},
	"outcomeClass": func(outcome string) string {
		switch outcome {
		case "GRANTED":
			return "granted"
		case "REJECTED":
			return "rejected"
		}
		return "neutral"
	},
}).Parse(indexHTML))

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Entry Gate</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.granted { color: green; font-weight: bold; }
.rejected { color: red; font-weight: bold; }
.neutral { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Entry Gate</h1>

<h2>Gate</h2>
<table>
<tr><th>People admitted</th><td id="people-count">{{.PeopleCount}}</td></tr>
{{if .Last}}<tr><th>Last detection</th><td>{{clock .Last.Time}} {{.Last.Class}} ({{.Last.HeightCM}} cm)</td></tr>
<tr><th>Last outcome</th><td class="{{outcomeClass .Last.Outcome}}">{{.Last.Outcome}}{{if .Last.User}} ({{.Last.User}}){{end}}</td></tr>{{else}}<tr><th>Last detection</th><td class="neutral">none</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>No subject</th><td>{{.Counts.NoSubject}}</td></tr>
<tr><th>Too short</th><td>{{.Counts.TooShort}}</td></tr>
<tr><th>In range</th><td>{{.Counts.InRange}}</td></tr>
<tr><th>At threshold</th><td>{{.Counts.AtThreshold}}</td></tr>
<tr><th>Granted</th><td>{{.Counts.Granted}}</td></tr>
<tr><th>Rejected</th><td>{{.Counts.Rejected}}</td></tr>
<tr><th>Timeouts</th><td>{{.Counts.Timeouts}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Iterations</th><td>{{.Iterations}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02 15:04:05"}} UTC</td></tr>
</table>

<h2>Config</h2>
<table>
<tr><th>Sensor offset</th><td>{{.Config.OffsetCM}} cm</td></tr>
<tr><th>Min height</th><td>{{.Config.MinHeightCM}} cm</td></tr>
<tr><th>Max range</th><td>{{.Config.MaxRangeCM}} cm</td></tr>
<tr><th>Card window</th><td>{{.Config.CardWindowMs}} ms</td></tr>
<tr><th>Heartbeat</th><td>{{.Config.HeartbeatMs}} ms</td></tr>
<tr><th>Authorized users</th><td>{{.Config.Users}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	indexTmpl.Execute(w, snap)
}

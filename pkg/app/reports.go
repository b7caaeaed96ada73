package app

import (
	"encoding/json"
	"time"

	"quadmon/pkg/mqtt"
	"quadmon/pkg/tachometer"

	"github.com/womat/debug"
)

// report is the external representation of a tachometer report (mqtt and web services).
type report struct {
	TimeStamp          time.Time
	Pulses             uint64
	Window             float64 // window in seconds
	RotationsPerSecond float64
	Direction          string `json:",omitempty"` // CW or CCW, omitted if not moving
}

func newReport(r tachometer.Report) report {
	rep := report{
		TimeStamp:          r.TimeStamp,
		Pulses:             r.Pulses,
		Window:             r.Window.Seconds(),
		RotationsPerSecond: r.RotationsPerSecond,
	}
	if r.Moving {
		rep.Direction = r.Direction.String()
	}
	return rep
}

// publish is the sink of the reporting loop.
// It writes the report line to the log and sends the report to the mqtt broker.
func (app *App) publish(r tachometer.Report) {
	debug.InfoLog.Print(r.String())
	app.sendMQTT(app.config.MQTT.Topic, newReport(r))
}

// sendMQTT send message struct to the mqtt broker.
// The message is dropped if the mqtt service can't keep up.
func (app *App) sendMQTT(topic string, message interface{}) {
	if !app.mqtt.Connected() || topic == "" {
		return
	}

	debug.TraceLog.Printf("prepare mqtt message %v %v", topic, message)

	b, err := json.Marshal(message)
	if err != nil {
		debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
		return
	}

	select {
	case app.mqtt.C <- mqtt.Message{
		Qos:      0,
		Retained: true,
		Topic:    topic,
		Payload:  b,
	}:
	default:
		debug.ErrorLog.Printf("mqtt queue full, report for topic %v dropped", topic)
	}
}

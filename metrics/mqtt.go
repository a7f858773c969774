package metrics

import (
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/eclipse/paho.mqtt.golang"

	"github.com/tve/scum-tuning/registry"
)

// LogPrintf is the nil-safe logging hook shared across this module; a
// nil value disables logging.
type LogPrintf func(format string, v ...interface{})

// MqttConfig is the broker connection shape, matching
// cmd/mqttradio's MqttConfig field-for-field.
type MqttConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Topic    string
}

// ChannelReport is the JSON payload published for one channel/mode's
// calibration telemetry.
type ChannelReport struct {
	Channel     int    `json:"channel"`
	Mode        string `json:"mode"`
	Coarse      byte   `json:"coarse"`
	Mid         byte   `json:"mid"`
	Fine        byte   `json:"fine"`
	Calibrated  bool   `json:"calibrated"`
	NumFailures int    `json:"num_failures"`
	IFEstimate  int    `json:"if_estimate_avg,omitempty"`
}

// MQTTPublisher republishes calibration state as JSON over MQTT, for
// dashboards that don't scrape Prometheus directly. The connection is
// persistent and reconnects on its own; publishing never blocks on
// broker availability beyond the client library's own queuing.
type MQTTPublisher struct {
	conn  mqtt.Client
	topic string
}

// NewMQTTPublisher connects to the broker described by conf and
// returns a publisher for calibration telemetry.
func NewMQTTPublisher(conf MqttConfig, log LogPrintf) (*MQTTPublisher, error) {
	if log != nil {
		log("metrics: configuring MQTT: %+v", conf)
	}
	mqtt.ERROR = stdlog.New(os.Stderr, "", 0) // paho's own error sink, distinct from our LogPrintf
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", conf.Host, conf.Port))
	opts.ClientID = "scum-tune"
	opts.Username = conf.User
	opts.Password = conf.Password

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("metrics: MQTT connect to %s:%d timed out", conf.Host, conf.Port)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("metrics: MQTT connect: %w", err)
	}
	if log != nil {
		log("metrics: MQTT connected")
	}

	topic := conf.Topic
	if topic == "" {
		topic = "scum-tune/calibration"
	}
	return &MQTTPublisher{conn: conn, topic: topic}, nil
}

// PublishChannelMode republishes one channel/mode's calibration state,
// on the topic "<base>/<channel>/<mode>".
func (p *MQTTPublisher) PublishChannelMode(reg *registry.Registry, channel int, mode registry.ChannelMode) {
	code, ok := reg.GetTuningCode(channel, mode)
	if !ok {
		return
	}
	report := ChannelReport{
		Channel:     channel,
		Mode:        mode.String(),
		Coarse:      code.Coarse,
		Mid:         code.Mid,
		Fine:        code.Fine,
		Calibrated:  reg.Calibrated(channel, mode),
		NumFailures: reg.NumFailures(channel, mode),
	}
	payload, _ := json.Marshal(report)
	topic := fmt.Sprintf("%s/%d/%s", p.topic, channel, mode.String())
	p.conn.Publish(topic, 1, false, payload)
}

// PublishIFEstimate republishes a channel's latest IF-estimate window
// average, on the topic "<base>/<channel>/if-estimate".
func (p *MQTTPublisher) PublishIFEstimate(channel int, avg int) {
	payload, _ := json.Marshal(struct {
		Channel    int `json:"channel"`
		IFEstimate int `json:"if_estimate_avg"`
	}{channel, avg})
	topic := fmt.Sprintf("%s/%d/if-estimate", p.topic, channel)
	p.conn.Publish(topic, 1, false, payload)
}

// Disconnect closes the broker connection, waiting up to 250ms for
// in-flight publishes to drain.
func (p *MQTTPublisher) Disconnect() {
	p.conn.Disconnect(250)
}

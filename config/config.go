// Package config loads the TOML-driven tunables of the frequency-tuning
// subsystem: channel calibration bounds, timeouts, and the MQTT/Prometheus
// endpoints for publishing calibration telemetry.
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tve/scum-tuning/tuning"
)

// Config is the top-level TOML document, modeled on
// cmd/mqttradio's flat Debug/Mqtt/Radio shape.
type Config struct {
	Debug bool

	Mote       MoteConfig
	Mqtt       MqttConfig
	Prometheus PrometheusConfig
}

// MoteConfig holds the calibration subsystem's own tunables, as an
// override surface over the package-level defaults in tuning,
// registry, calibration, and feedback — a config file need only name
// the handful of values a given die or deployment requires tuning.
type MoteConfig struct {
	InitialChannel int    `toml:"initial_channel"`
	CalStart       int    `toml:"cal_start"`
	CalEnd         int    `toml:"cal_end"`
	Mode           string `toml:"mode"` // "bare-metal" or "mac"

	MidPerCoarseTransition  *byte `toml:"mid_per_coarse_transition"`
	MidCodesBetweenChannels *byte `toml:"mid_codes_between_channels"`

	UARTTraceFormat string `toml:"uart_trace_format"` // "text" or "varint"
}

// MqttConfig matches cmd/mqttradio's MqttConfig field-for-field; the
// calibration telemetry publisher reuses the same broker shape.
type MqttConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Topic    string
}

// PrometheusConfig controls the optional /metrics HTTP endpoint.
type PrometheusConfig struct {
	Listen string // e.g. ":9110"; empty disables the endpoint
}

// Defaults returns a Config with the subsystem's built-in tunables:
// initial channel 17, the full 802.15.4 channel range, bare-metal mode.
func Defaults() Config {
	return Config{
		Mote: MoteConfig{
			InitialChannel:  17,
			CalStart:        11,
			CalEnd:          26,
			Mode:            "bare-metal",
			UARTTraceFormat: "text",
		},
	}
}

// Load reads and parses a TOML config file at path, starting from
// Defaults and overlaying whatever the file specifies.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the handful of invariants a malformed config file
// could violate before the subsystem is ever entered, per spec section
// 7's configuration-error policy: "initialization fails loudly and the
// subsystem is not entered".
func (c Config) Validate() error {
	if c.Mote.CalStart > c.Mote.CalEnd {
		return fmt.Errorf("config: cal_start %d > cal_end %d", c.Mote.CalStart, c.Mote.CalEnd)
	}
	if c.Mote.InitialChannel < c.Mote.CalStart || c.Mote.InitialChannel > c.Mote.CalEnd {
		return fmt.Errorf("config: initial_channel %d outside [%d, %d]", c.Mote.InitialChannel, c.Mote.CalStart, c.Mote.CalEnd)
	}
	switch c.Mote.Mode {
	case "bare-metal", "mac":
	default:
		return fmt.Errorf("config: mode %q must be \"bare-metal\" or \"mac\"", c.Mote.Mode)
	}
	switch c.Mote.UARTTraceFormat {
	case "text", "varint", "":
	default:
		return fmt.Errorf("config: uart_trace_format %q must be \"text\" or \"varint\"", c.Mote.UARTTraceFormat)
	}
	return nil
}

// ApplyOverrides pushes any die-specific algebra overrides from the
// config file into the tuning package's mutable tunables. Called once
// at startup, before any TuningCode arithmetic runs.
func (c Config) ApplyOverrides() {
	if c.Mote.MidPerCoarseTransition != nil {
		tuning.MidPerCoarseTransition = *c.Mote.MidPerCoarseTransition
	}
	if c.Mote.MidCodesBetweenChannels != nil {
		tuning.MidCodesBetweenChannels = *c.Mote.MidCodesBetweenChannels
	}
}

// MQTTPublishInterval is how often calibration telemetry is
// republished over MQTT when no new event has occurred, so a
// dashboard doesn't see a channel go stale after its last correction.
const MQTTPublishInterval = 30 * time.Second

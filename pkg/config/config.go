package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	ModeOnce = "once"
	ModeLoop = "loop"

	DriverPeriph = "periph"
	DriverD2R2   = "d2r2"

	SensorReal       = "real"
	SensorSimulation = "simulation"
)

type I2CConfig struct {
	Bus     string `json:"bus"`
	Address int    `json:"address"`
	Driver  string `json:"driver"`
}

type MQTTConfig struct {
	Server            string `json:"server"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientID          string `json:"client_id"`
	StateTopic        string `json:"state_topic"`
	DiscoveryPrefix   string `json:"discovery_prefix,omitempty"`
	DiscoveryName     string `json:"discovery_name,omitempty"`
	DiscoveryUniqueID string `json:"discovery_unique_id,omitempty"`
}

type PrometheusConfig struct {
	Listen string `json:"listen"`
}

type OutputConfig struct {
	Type       string            `json:"type"`
	IntervalMs int               `json:"interval_ms,omitempty"`
	MQTT       *MQTTConfig       `json:"mqtt,omitempty"`
	Prometheus *PrometheusConfig `json:"prometheus,omitempty"`
}

type Config struct {
	I2C              I2CConfig      `json:"i2c"`
	SensorType       string         `json:"sensor_type"`
	Mode             string         `json:"mode"`
	IntervalMs       int            `json:"interval_ms"`
	ConversionWaitMs int            `json:"conversion_wait_ms"`
	PollReady        bool           `json:"poll_ready"`
	ReadyTimeoutMs   int            `json:"ready_timeout_ms"`
	Outputs          []OutputConfig `json:"outputs"`
}

func DefaultConfig() Config {
	return Config{
		I2C:              I2CConfig{Bus: "1", Address: 0x60, Driver: DriverPeriph},
		SensorType:       SensorReal,
		Mode:             ModeOnce,
		IntervalMs:       5000,
		ConversionWaitMs: 1000,
		ReadyTimeoutMs:   1500,
		Outputs:          []OutputConfig{{Type: "console"}},
	}
}

// MinIntervalMs is the shortest loop period that leaves room for both
// conversions of one measurement.
func (c Config) MinIntervalMs() int {
	wait := c.ConversionWaitMs
	if c.PollReady {
		wait = c.ReadyTimeoutMs
	}
	return 2 * wait
}

// LoadFromFlags loads configuration from a JSON file (optional) and the
// process command line. Flags override values present in the JSON file.
func LoadFromFlags() (Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load parses args with fs and applies them over the defaults and the
// optional config file.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	cfgPath := fs.String("config", "", "Path to JSON config file")
	flagI2CBus := fs.String("i2c-bus", "", "I2C bus (e.g., '1' -> /dev/i2c-1)")
	flagI2CAddStr := fs.String("i2c-address", "", "I2C address (decimal or 0x hex)")
	flagI2CDriver := fs.String("i2c-driver", "", "I2C driver: periph|d2r2")
	flagSensorType := fs.String("sensor-type", "", "sensor type: real|simulation")
	flagMode := fs.String("mode", "", "run mode: once|loop")
	flagInterval := fs.Int("interval-ms", -1, "Loop interval in ms")
	flagWait := fs.Int("conversion-wait-ms", -1, "Fixed wait for each conversion in ms")
	flagPoll := fs.String("poll-ready", "", "Poll the data-ready flag instead of waiting (true|false)")
	flagReadyTimeout := fs.Int("ready-timeout-ms", -1, "Data-ready polling timeout in ms")
	flagOutputs := fs.String("outputs", "", "Comma-separated outputs (console,mqtt,prometheus)")
	flagOutputIntervals := fs.String("output-intervals", "", "Comma-separated output intervals e.g. console=1000,mqtt=5000")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagClientID := fs.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := fs.String("mqtt-topic", "", "MQTT state topic")
	flagDiscovery := fs.String("mqtt-discovery-prefix", "", "Home Assistant discovery prefix (e.g. homeassistant)")
	flagPromListen := fs.String("prometheus-listen", "", "Prometheus listen address (e.g. :9110)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagI2CBus != "" {
		cfg.I2C.Bus = *flagI2CBus
	}
	if *flagI2CAddStr != "" {
		v, err := parseIntOrHex(*flagI2CAddStr)
		if err != nil {
			return cfg, fmt.Errorf("i2c-address: %w", err)
		}
		cfg.I2C.Address = v
	}
	if *flagI2CDriver != "" {
		cfg.I2C.Driver = strings.ToLower(*flagI2CDriver)
	}
	if *flagSensorType != "" {
		cfg.SensorType = strings.ToLower(*flagSensorType)
	}
	if *flagMode != "" {
		cfg.Mode = strings.ToLower(*flagMode)
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagWait != -1 {
		cfg.ConversionWaitMs = *flagWait
	}
	if *flagPoll != "" {
		v, err := strconv.ParseBool(*flagPoll)
		if err != nil {
			return cfg, fmt.Errorf("poll-ready: %w", err)
		}
		cfg.PollReady = v
	}
	if *flagReadyTimeout != -1 {
		cfg.ReadyTimeoutMs = *flagReadyTimeout
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: strings.ToLower(p)})
		}
		cfg.Outputs = outs
	}
	if *flagOutputIntervals != "" {
		intervals, err := parseKeyIntMap(*flagOutputIntervals)
		if err != nil {
			return cfg, fmt.Errorf("output-intervals: %w", err)
		}
		for i := range cfg.Outputs {
			if v, ok := intervals[cfg.Outputs[i].Type]; ok {
				cfg.Outputs[i].IntervalMs = v
			}
		}
	}
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" || *flagDiscovery != "" {
		apply := func(m *MQTTConfig) {
			if *flagMQTTServer != "" {
				m.Server = *flagMQTTServer
			}
			if *flagMQTTUser != "" {
				m.Username = *flagMQTTUser
			}
			if *flagMQTTPass != "" {
				m.Password = *flagMQTTPass
			}
			if *flagClientID != "" {
				m.ClientID = *flagClientID
			}
			if *flagTopic != "" {
				m.StateTopic = *flagTopic
			}
			if *flagDiscovery != "" {
				m.DiscoveryPrefix = *flagDiscovery
			}
		}
		// flags apply to every mqtt output; create one if none is configured
		applied := false
		for i := range cfg.Outputs {
			if cfg.Outputs[i].Type == "mqtt" {
				if cfg.Outputs[i].MQTT == nil {
					cfg.Outputs[i].MQTT = &MQTTConfig{}
				}
				apply(cfg.Outputs[i].MQTT)
				applied = true
			}
		}
		if !applied {
			out := OutputConfig{Type: "mqtt", MQTT: &MQTTConfig{}}
			apply(out.MQTT)
			cfg.Outputs = append(cfg.Outputs, out)
		}
	}
	if *flagPromListen != "" {
		applied := false
		for i := range cfg.Outputs {
			if cfg.Outputs[i].Type == "prometheus" {
				cfg.Outputs[i].Prometheus = &PrometheusConfig{Listen: *flagPromListen}
				applied = true
			}
		}
		if !applied {
			cfg.Outputs = append(cfg.Outputs, OutputConfig{Type: "prometheus", Prometheus: &PrometheusConfig{Listen: *flagPromListen}})
		}
	}
	// ensure outputs have interval default
	for i := range cfg.Outputs {
		if cfg.Outputs[i].IntervalMs == 0 {
			cfg.Outputs[i].IntervalMs = cfg.IntervalMs
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.I2C.Address < 0 || c.I2C.Address > 0x7F {
		return fmt.Errorf("i2c address 0x%X is not a 7-bit address", c.I2C.Address)
	}
	switch c.I2C.Driver {
	case DriverPeriph, DriverD2R2:
	default:
		return fmt.Errorf("unknown i2c driver %q", c.I2C.Driver)
	}
	switch c.SensorType {
	case SensorReal, SensorSimulation:
	default:
		return fmt.Errorf("unknown sensor type %q", c.SensorType)
	}
	if c.ConversionWaitMs <= 0 {
		return errors.New("conversion-wait-ms must be > 0")
	}
	if c.PollReady && c.ReadyTimeoutMs <= 0 {
		return errors.New("ready-timeout-ms must be > 0 when polling")
	}
	switch c.Mode {
	case ModeOnce:
	case ModeLoop:
		if c.IntervalMs < c.MinIntervalMs() {
			return fmt.Errorf("interval-ms %d is shorter than one measurement (%d ms)", c.IntervalMs, c.MinIntervalMs())
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if len(c.Outputs) == 0 {
		return errors.New("at least one output is required")
	}
	return nil
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseKeyIntMap parses "name=value" pairs separated by commas.
func parseKeyIntMap(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, p := range parseCSV(s) {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid pair '%s'", p)
		}
		v, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid value in '%s': %w", p, err)
		}
		out[strings.TrimSpace(kv[0])] = v
	}
	return out, nil
}

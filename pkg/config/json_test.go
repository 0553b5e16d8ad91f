package config

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalConfigJSON(t *testing.T) {
	js := `{
        "i2c": { "bus": "1", "address": 96, "driver": "d2r2" },
        "sensor_type": "real",
        "mode": "loop",
        "interval_ms": 10000,
        "poll_ready": true,
        "ready_timeout_ms": 1200,
        "outputs": [
            {"type": "console"},
            {"type": "mqtt", "interval_ms": 30000, "mqtt": {"server": "tcp://localhost:1883", "state_topic": "weather/mpl"}},
            {"type": "prometheus", "prometheus": {"listen": ":9110"}}
        ]
    }`

	var cfg Config
	if err := json.Unmarshal([]byte(js), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.I2C.Address != 96 || cfg.I2C.Driver != "d2r2" {
		t.Fatalf("i2c: %+v", cfg.I2C)
	}
	if cfg.Mode != ModeLoop || cfg.IntervalMs != 10000 {
		t.Fatalf("mode: %q interval %d", cfg.Mode, cfg.IntervalMs)
	}
	if !cfg.PollReady || cfg.ReadyTimeoutMs != 1200 {
		t.Fatalf("polling: %v %d", cfg.PollReady, cfg.ReadyTimeoutMs)
	}
	if len(cfg.Outputs) != 3 {
		t.Fatalf("outputs len: %d", len(cfg.Outputs))
	}
	if cfg.Outputs[1].MQTT == nil || cfg.Outputs[1].MQTT.StateTopic != "weather/mpl" || cfg.Outputs[1].IntervalMs != 30000 {
		t.Fatalf("mqtt output incorrect: %+v", cfg.Outputs[1])
	}
	if cfg.Outputs[2].Prometheus == nil || cfg.Outputs[2].Prometheus.Listen != ":9110" {
		t.Fatalf("prometheus output incorrect: %+v", cfg.Outputs[2])
	}
}

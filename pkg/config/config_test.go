package config

import (
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func load(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	return Load(fs, args)
}

func TestParseKeyIntMap(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]int
		ok   bool
	}{
		{"", map[string]int{}, true},
		{"console=1000,mqtt=5000", map[string]int{"console": 1000, "mqtt": 5000}, true},
		{" console = 10 , prometheus=20", map[string]int{"console": 10, "prometheus": 20}, true},
		{"bad", nil, false},
		{"mqtt=x", nil, false},
	}
	for _, tt := range tests {
		got, err := parseKeyIntMap(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("parseKeyIntMap(%q) ok=%v err=%v", tt.in, tt.ok, err)
		}
		if tt.ok && !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("parseKeyIntMap(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.I2C.Address != 0x60 || cfg.I2C.Bus != "1" || cfg.I2C.Driver != DriverPeriph {
		t.Fatalf("i2c defaults: %+v", cfg.I2C)
	}
	if cfg.Mode != ModeOnce || cfg.ConversionWaitMs != 1000 {
		t.Fatalf("mode/wait defaults: %s %d", cfg.Mode, cfg.ConversionWaitMs)
	}
	if len(cfg.Outputs) != 1 || cfg.Outputs[0].Type != "console" || cfg.Outputs[0].IntervalMs != cfg.IntervalMs {
		t.Fatalf("outputs default: %+v", cfg.Outputs)
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	cfg, err := load(t,
		"-i2c-address", "0x61",
		"-i2c-driver", "D2R2",
		"-mode", "loop",
		"-interval-ms", "3000",
		"-outputs", "console,mqtt",
		"-output-intervals", "mqtt=6000",
		"-mqtt-server", "tcp://broker:1883",
		"-mqtt-discovery-prefix", "homeassistant",
		"-prometheus-listen", ":9110",
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.I2C.Address != 0x61 || cfg.I2C.Driver != DriverD2R2 {
		t.Fatalf("i2c: %+v", cfg.I2C)
	}
	if len(cfg.Outputs) != 3 {
		t.Fatalf("outputs: %+v", cfg.Outputs)
	}
	if cfg.Outputs[0].IntervalMs != 3000 || cfg.Outputs[1].IntervalMs != 6000 {
		t.Fatalf("intervals: %d %d", cfg.Outputs[0].IntervalMs, cfg.Outputs[1].IntervalMs)
	}
	m := cfg.Outputs[1].MQTT
	if m == nil || m.Server != "tcp://broker:1883" || m.DiscoveryPrefix != "homeassistant" {
		t.Fatalf("mqtt: %+v", m)
	}
	p := cfg.Outputs[2]
	if p.Type != "prometheus" || p.Prometheus == nil || p.Prometheus.Listen != ":9110" {
		t.Fatalf("prometheus: %+v", p)
	}
}

func TestLoadFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	js := `{"i2c":{"bus":"2","address":96,"driver":"periph"},"sensor_type":"simulation","conversion_wait_ms":200}`
	if err := os.WriteFile(path, []byte(js), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := load(t, "-config", path, "-i2c-bus", "3")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.I2C.Bus != "3" {
		t.Fatalf("flag should override file bus, got %q", cfg.I2C.Bus)
	}
	if cfg.SensorType != SensorSimulation || cfg.ConversionWaitMs != 200 {
		t.Fatalf("file values lost: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		ok   bool
	}{
		{"defaults", func(*Config) {}, true},
		{"address too wide", func(c *Config) { c.I2C.Address = 0x80 }, false},
		{"unknown driver", func(c *Config) { c.I2C.Driver = "spi" }, false},
		{"unknown sensor", func(c *Config) { c.SensorType = "fake" }, false},
		{"zero wait", func(c *Config) { c.ConversionWaitMs = 0 }, false},
		{"unknown mode", func(c *Config) { c.Mode = "daemon" }, false},
		{"loop too fast", func(c *Config) { c.Mode = ModeLoop; c.IntervalMs = 1999 }, false},
		{"loop minimum", func(c *Config) { c.Mode = ModeLoop; c.IntervalMs = 2000 }, true},
		{"polling timeout bound", func(c *Config) { c.Mode = ModeLoop; c.PollReady = true; c.IntervalMs = 2000 }, false},
		{"no outputs", func(c *Config) { c.Outputs = nil }, false},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mod(&cfg)
		err := cfg.Validate()
		if (err == nil) != tt.ok {
			t.Fatalf("%s: ok=%v err=%v", tt.name, tt.ok, err)
		}
	}
}

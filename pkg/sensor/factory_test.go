package sensor

import (
	"testing"
	"time"

	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*config.Config)
		fake bool
		ok   bool
	}{
		{"simulation", func(c *config.Config) { c.SensorType = config.SensorSimulation }, true, true},
		{"simulation ignores driver", func(c *config.Config) {
			c.SensorType = config.SensorSimulation
			c.I2C.Driver = "spi"
		}, true, true},
		{"unknown driver", func(c *config.Config) { c.I2C.Driver = "spi" }, false, false},
		{"d2r2 bad bus name", func(c *config.Config) {
			c.I2C.Driver = config.DriverD2R2
			c.I2C.Bus = "i2c-one"
		}, false, false},
	}
	for _, tt := range tests {
		cfg := config.DefaultConfig()
		tt.mod(&cfg)
		s, err := New(cfg)
		if (err == nil) != tt.ok {
			t.Fatalf("%s: ok=%v err=%v", tt.name, tt.ok, err)
		}
		if !tt.ok {
			continue
		}
		if _, isFake := s.(*FakeSensor); isFake != tt.fake {
			t.Fatalf("%s: got %T", tt.name, s)
		}
		if _, err := s.Read(); err != nil {
			t.Fatalf("%s: read: %v", tt.name, err)
		}
		_ = s.Close()
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ConversionWaitMs = 250
	cfg.PollReady = true
	cfg.ReadyTimeoutMs = 400
	got := optionsFromConfig(cfg)
	want := Options{ConversionWait: 250 * time.Millisecond, PollReady: true, ReadyTimeout: 400 * time.Millisecond}
	if got != want {
		t.Fatalf("options: got %+v want %+v", got, want)
	}
}

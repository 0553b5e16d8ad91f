package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/config"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/output"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/output/console"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/output/mqtt"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/output/prometheus"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/sensor"
)

type outputEntry struct {
	Type       string
	Output     output.Output
	IntervalMs int
	last       time.Time
}

// newSensor and openOutput are swapped in tests.
var (
	newSensor  = sensor.New
	openOutput = newOutput
)

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatal(err)
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	if err := run(cfg, sigCh); err != nil {
		log.Fatal(err)
	}
}

// run owns the sensor and outputs; both are closed before it returns,
// whether or not the measurement succeeded.
func run(cfg config.Config, stop <-chan os.Signal) error {
	s, err := newSensor(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Printf("main: close sensor: %v", err)
		}
	}()

	interval := computeSensorInterval(cfg)
	entries, err := initOutputs(&cfg, interval)
	if err != nil {
		return err
	}
	defer closeOutputs(entries)

	if cfg.Mode == config.ModeOnce {
		return runOnce(s, entries)
	}

	log.Printf("main: reading every %d ms (sensor=%s, driver=%s, bus=%s, address=0x%02X)",
		interval, cfg.SensorType, cfg.I2C.Driver, cfg.I2C.Bus, cfg.I2C.Address)
	runLoop(s, entries, time.Duration(interval)*time.Millisecond, stop)
	log.Println("main: shutting down")
	return nil
}

// computeSensorInterval returns the loop period in ms, never shorter than
// one full measurement.
func computeSensorInterval(cfg config.Config) int {
	if floor := cfg.MinIntervalMs(); cfg.IntervalMs < floor {
		return floor
	}
	return cfg.IntervalMs
}

func initOutputs(cfg *config.Config, interval int) ([]*outputEntry, error) {
	entries := make([]*outputEntry, 0, len(cfg.Outputs))
	for i := range cfg.Outputs {
		oc := &cfg.Outputs[i]
		if oc.IntervalMs == 0 {
			oc.IntervalMs = interval
		}
		out, err := openOutput(*oc)
		if err != nil {
			closeOutputs(entries)
			return nil, err
		}
		entries = append(entries, &outputEntry{Type: oc.Type, Output: out, IntervalMs: oc.IntervalMs})
	}
	return entries, nil
}

func newOutput(oc config.OutputConfig) (output.Output, error) {
	switch oc.Type {
	case "console":
		return console.NewConsole(), nil
	case "mqtt":
		mc := config.MQTTConfig{}
		if oc.MQTT != nil {
			mc = *oc.MQTT
		}
		return mqtt.NewMQTT(mc)
	case "prometheus":
		pc := config.PrometheusConfig{}
		if oc.Prometheus != nil {
			pc = *oc.Prometheus
		}
		return prometheus.NewPrometheus(pc)
	default:
		return nil, fmt.Errorf("unknown output type %q", oc.Type)
	}
}

func closeOutputs(entries []*outputEntry) {
	for _, e := range entries {
		if err := e.Output.Close(); err != nil {
			log.Printf("main: close %s output: %v", e.Type, err)
		}
	}
}

func runOnce(s sensor.Sensor, entries []*outputEntry) error {
	r, err := s.Read()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	for _, e := range entries {
		if err := e.Output.Publish(r); err != nil {
			return fmt.Errorf("publish %s: %w", e.Type, err)
		}
	}
	return nil
}

// runLoop reads the sensor immediately and then on every tick until stop
// fires. A failed read is logged and the next tick tries again.
func runLoop(s sensor.Sensor, entries []*outputEntry, interval time.Duration, stop <-chan os.Signal) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if r, err := s.Read(); err != nil {
			log.Printf("main: read sensor: %v", err)
		} else {
			publishDue(entries, r, time.Now())
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// publishDue sends r to every output whose own interval has elapsed.
func publishDue(entries []*outputEntry, r sensor.Reading, now time.Time) {
	for _, e := range entries {
		if !e.last.IsZero() && now.Sub(e.last) < time.Duration(e.IntervalMs)*time.Millisecond {
			continue
		}
		if err := e.Output.Publish(r); err != nil {
			log.Printf("main: publish %s: %v", e.Type, err)
			continue
		}
		e.last = now
	}
}

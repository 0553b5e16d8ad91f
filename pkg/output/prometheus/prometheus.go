package prometheus

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/config"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/output"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/sensor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultListen = ":9110"
	namespace     = "mpl3115a2"
)

type PrometheusOutput struct {
	registry     *prometheus.Registry
	altitude     prometheus.Gauge
	temperature  prometheus.Gauge
	pressure     prometheus.Gauge
	readings     prometheus.Counter
	lastReadUnix prometheus.Gauge
	srv          *http.Server
}

// NewPrometheus registers the gauges on a private registry and serves them
// at /metrics on cfg.Listen.
func NewPrometheus(cfg config.PrometheusConfig) (output.Output, error) {
	listen := cfg.Listen
	if listen == "" {
		listen = DefaultListen
	}
	p := newCollectors()

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("prometheus listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	p.srv = &http.Server{Handler: mux}
	go func() {
		if err := p.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("prometheus: serve: %v", err)
		}
	}()
	log.Printf("prometheus: serving metrics on %s/metrics", ln.Addr())
	return p, nil
}

func newCollectors() *PrometheusOutput {
	p := &PrometheusOutput{
		registry: prometheus.NewRegistry(),
		altitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "altitude_meters", Help: "Altitude from the last reading.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "temperature_celsius", Help: "Temperature from the last reading.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pressure_kilopascals", Help: "Barometric pressure from the last reading.",
		}),
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "readings_total", Help: "Number of readings published.",
		}),
		lastReadUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_reading_timestamp_seconds", Help: "Unix time of the last reading.",
		}),
	}
	p.registry.MustRegister(p.altitude, p.temperature, p.pressure, p.readings, p.lastReadUnix)
	return p
}

// Handler exposes the private registry.
func (p *PrometheusOutput) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusOutput) Publish(r sensor.Reading) error {
	p.altitude.Set(r.Altitude)
	p.temperature.Set(r.TemperatureC)
	p.pressure.Set(r.Pressure)
	p.lastReadUnix.Set(float64(r.Timestamp.Unix()))
	p.readings.Inc()
	return nil
}

func (p *PrometheusOutput) Close() error {
	if p.srv != nil {
		return p.srv.Close()
	}
	return nil
}

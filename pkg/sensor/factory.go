package sensor

import (
	"fmt"
	"time"

	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/config"
)

// New builds the sensor selected by cfg.SensorType and cfg.I2C.Driver.
func New(cfg config.Config) (Sensor, error) {
	if cfg.SensorType == config.SensorSimulation {
		return NewFakeSensor(), nil
	}
	var (
		t   Transport
		err error
	)
	switch cfg.I2C.Driver {
	case config.DriverD2R2:
		t, err = OpenD2R2(cfg.I2C.Bus, uint8(cfg.I2C.Address))
	case config.DriverPeriph, "":
		t, err = OpenPeriph(cfg.I2C.Bus, uint16(cfg.I2C.Address))
	default:
		return nil, fmt.Errorf("unknown i2c driver %q", cfg.I2C.Driver)
	}
	if err != nil {
		return nil, err
	}
	return NewMPL3115A2(t, optionsFromConfig(cfg)), nil
}

func optionsFromConfig(cfg config.Config) Options {
	return Options{
		ConversionWait: time.Duration(cfg.ConversionWaitMs) * time.Millisecond,
		PollReady:      cfg.PollReady,
		ReadyTimeout:   time.Duration(cfg.ReadyTimeoutMs) * time.Millisecond,
	}
}

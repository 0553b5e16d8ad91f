package sensor

import "time"

// Reading is one decoded measurement: altitude in meters, temperature in
// Celsius and Fahrenheit and pressure in kPa.
type Reading struct {
	Altitude     float64   `json:"altitude"`
	TemperatureC float64   `json:"temperature_c"`
	TemperatureF float64   `json:"temperature_f"`
	Pressure     float64   `json:"pressure"`
	Timestamp    time.Time `json:"timestamp"`
}

type Sensor interface {
	Read() (Reading, error)
	Close() error
}

// Transport is an I2C connection bound to a single device address.
type Transport interface {
	WriteReg(reg, value byte) error
	ReadRegs(reg byte, n int) ([]byte, error)
	Close() error
}

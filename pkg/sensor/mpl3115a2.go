package sensor

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultAddress is the fixed 7-bit bus address of the MPL3115A2.
	DefaultAddress = 0x60

	regStatus   = 0x00 // status byte followed by the data output block
	regDataCfg  = 0x13
	regControl1 = 0x26

	ctrlAltimeter = 0xB9 // active, OSR=128, altimeter mode
	ctrlBarometer = 0x39 // active, OSR=128, barometer mode
	dataCfgEvents = 0x07 // data-ready events for altitude/pressure/temperature

	statusPTDR = 0x08

	altTempSampleLen  = 6 // status, tHeight msb1, msb, lsb, temp msb, lsb
	pressureSampleLen = 4 // status, pres msb1, msb, lsb

	defaultConversionWait = time.Second
	defaultPollInterval   = 10 * time.Millisecond
)

var (
	ErrInvalidSampleLength = errors.New("invalid sample length")
	ErrConversionTimeout   = errors.New("conversion timeout")
)

// Options tunes how the driver waits for a conversion to complete.
type Options struct {
	// ConversionWait is the fixed delay after a mode change. Zero means one second.
	ConversionWait time.Duration
	// PollReady replaces the fixed delay with polling of the PTDR status bit.
	PollReady    bool
	ReadyTimeout time.Duration
	PollInterval time.Duration
}

type MPL3115A2Sensor struct {
	t     Transport
	opts  Options
	sleep func(time.Duration)
	now   func() time.Time
}

// NewMPL3115A2 binds the driver to t. The device is not touched until Read.
func NewMPL3115A2(t Transport, opts Options) *MPL3115A2Sensor {
	if opts.ConversionWait <= 0 {
		opts.ConversionWait = defaultConversionWait
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = opts.ConversionWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &MPL3115A2Sensor{t: t, opts: opts, sleep: time.Sleep, now: time.Now}
}

func (s *MPL3115A2Sensor) Close() error {
	if s.t != nil {
		return s.t.Close()
	}
	return nil
}

// Read runs one altimeter conversion followed by one barometer conversion.
func (s *MPL3115A2Sensor) Read() (Reading, error) {
	if err := s.ConfigureAltimeterMode(); err != nil {
		return Reading{}, err
	}
	if err := s.WaitForConversion(); err != nil {
		return Reading{}, err
	}
	sample, err := s.ReadAltitudeTemperature()
	if err != nil {
		return Reading{}, err
	}
	altitude, cTemp, fTemp, err := DecodeAltitudeTemperature(sample)
	if err != nil {
		return Reading{}, err
	}

	if err := s.ConfigureBarometerMode(); err != nil {
		return Reading{}, err
	}
	if err := s.WaitForConversion(); err != nil {
		return Reading{}, err
	}
	sample, err = s.ReadPressure()
	if err != nil {
		return Reading{}, err
	}
	pressure, err := DecodePressure(sample)
	if err != nil {
		return Reading{}, err
	}

	return Reading{
		Altitude:     altitude,
		TemperatureC: cTemp,
		TemperatureF: fTemp,
		Pressure:     pressure,
		Timestamp:    s.now(),
	}, nil
}

// ConfigureAltimeterMode enables data-ready events and switches the device
// to active altimeter mode. The control register is written both before and
// after the data configuration register.
func (s *MPL3115A2Sensor) ConfigureAltimeterMode() error {
	writes := [][2]byte{
		{regControl1, ctrlAltimeter},
		{regDataCfg, dataCfgEvents},
		{regControl1, ctrlAltimeter},
	}
	for _, w := range writes {
		if err := s.t.WriteReg(w[0], w[1]); err != nil {
			return fmt.Errorf("write register 0x%02X: %w", w[0], err)
		}
	}
	return nil
}

func (s *MPL3115A2Sensor) ConfigureBarometerMode() error {
	if err := s.t.WriteReg(regControl1, ctrlBarometer); err != nil {
		return fmt.Errorf("write register 0x%02X: %w", regControl1, err)
	}
	return nil
}

// WaitForConversion blocks until a conversion result should be available.
// With polling enabled the timeout is measured in accumulated poll sleeps.
func (s *MPL3115A2Sensor) WaitForConversion() error {
	if !s.opts.PollReady {
		s.sleep(s.opts.ConversionWait)
		return nil
	}
	for waited := time.Duration(0); ; waited += s.opts.PollInterval {
		status, err := s.t.ReadRegs(regStatus, 1)
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		if len(status) > 0 && status[0]&statusPTDR != 0 {
			return nil
		}
		if waited >= s.opts.ReadyTimeout {
			return fmt.Errorf("data ready after %v: %w", waited, ErrConversionTimeout)
		}
		s.sleep(s.opts.PollInterval)
	}
}

func (s *MPL3115A2Sensor) ReadAltitudeTemperature() ([]byte, error) {
	b, err := s.t.ReadRegs(regStatus, altTempSampleLen)
	if err != nil {
		return nil, fmt.Errorf("read altitude/temperature: %w", err)
	}
	return b, nil
}

func (s *MPL3115A2Sensor) ReadPressure() ([]byte, error) {
	b, err := s.t.ReadRegs(regStatus, pressureSampleLen)
	if err != nil {
		return nil, fmt.Errorf("read pressure: %w", err)
	}
	return b, nil
}

// DecodeAltitudeTemperature converts a 6 byte altimeter sample into meters,
// Celsius and Fahrenheit. The sample must be exactly 6 bytes. The low nibble
// of each LSB is not part of the value.
func DecodeAltitudeTemperature(sample []byte) (altitude, cTemp, fTemp float64, err error) {
	if len(sample) != altTempSampleLen {
		return 0, 0, 0, fmt.Errorf("altitude/temperature: got %d bytes, want %d: %w", len(sample), altTempSampleLen, ErrInvalidSampleLength)
	}
	tHeight := (int(sample[1])<<16 + int(sample[2])<<8 + int(sample[3]&0xF0)) / 16
	temp := (int(sample[4])<<8 + int(sample[5]&0xF0)) / 16
	altitude = float64(tHeight) / 16.0
	cTemp = float64(temp) / 16.0
	fTemp = cTemp*1.8 + 32
	return altitude, cTemp, fTemp, nil
}

// DecodePressure converts a 4 byte barometer sample into kPa. Any other length
// is rejected. The 20-bit raw value carries two fractional bits of Pascal.
func DecodePressure(sample []byte) (float64, error) {
	if len(sample) != pressureSampleLen {
		return 0, fmt.Errorf("pressure: got %d bytes, want %d: %w", len(sample), pressureSampleLen, ErrInvalidSampleLength)
	}
	pres := (int(sample[1])<<16 + int(sample[2])<<8 + int(sample[3]&0xF0)) / 16
	return (float64(pres) / 4.0) / 1000.0, nil
}

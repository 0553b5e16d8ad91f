package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

type periphTransport struct {
	dev *i2c.Dev
	bus i2c.BusCloser
}

// OpenPeriph initializes the periph host drivers and opens the named bus.
func OpenPeriph(busName string, addr uint16) (Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	return NewPeriphTransport(bus, addr), nil
}

// NewPeriphTransport wraps an already opened bus. Close closes the bus.
func NewPeriphTransport(bus i2c.BusCloser, addr uint16) Transport {
	return &periphTransport{dev: &i2c.Dev{Addr: addr, Bus: bus}, bus: bus}
}

func (p *periphTransport) WriteReg(reg, value byte) error {
	return p.dev.Tx([]byte{reg, value}, nil)
}

func (p *periphTransport) ReadRegs(reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := p.dev.Tx([]byte{reg}, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *periphTransport) Close() error {
	if p.bus != nil {
		return p.bus.Close()
	}
	return nil
}

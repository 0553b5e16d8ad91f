package sensor

import (
	"fmt"
	"strconv"

	"github.com/d2r2/go-i2c"
	"github.com/d2r2/go-logger"
)

type d2r2Transport struct {
	bus *i2c.I2C
}

// OpenD2R2 opens /dev/i2c-<busName> through the d2r2/go-i2c driver.
func OpenD2R2(busName string, addr uint8) (Transport, error) {
	n, err := strconv.Atoi(busName)
	if err != nil {
		return nil, fmt.Errorf("d2r2 bus %q: %w", busName, err)
	}
	// go-i2c logs every transfer at debug level
	logger.ChangePackageLogLevel("i2c", logger.InfoLevel)
	b, err := i2c.NewI2C(addr, n)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	return &d2r2Transport{bus: b}, nil
}

func (d *d2r2Transport) WriteReg(reg, value byte) error {
	return d.bus.WriteRegU8(reg, value)
}

func (d *d2r2Transport) ReadRegs(reg byte, n int) ([]byte, error) {
	buf, _, err := d.bus.ReadRegBytes(reg, n)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *d2r2Transport) Close() error {
	return d.bus.Close()
}

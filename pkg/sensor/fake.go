package sensor

import (
	"math/rand"
	"sync"
	"time"
)

// FakeSensor synthesizes raw register samples and decodes them the same way
// the hardware driver does.
type FakeSensor struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFakeSensor() *FakeSensor {
	return &FakeSensor{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (f *FakeSensor) Read() (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	altitude := 50 + f.rnd.Float64()*250 // m
	temp := 10 + f.rnd.Float64()*20      // °C
	pressure := 95 + f.rnd.Float64()*10  // kPa

	a, c, fh, err := DecodeAltitudeTemperature(encodeAltitudeTemperature(altitude, temp))
	if err != nil {
		return Reading{}, err
	}
	p, err := DecodePressure(encodePressure(pressure))
	if err != nil {
		return Reading{}, err
	}
	return Reading{Altitude: a, TemperatureC: c, TemperatureF: fh, Pressure: p, Timestamp: time.Now()}, nil
}

func (f *FakeSensor) Close() error { return nil }

// encodeAltitudeTemperature builds the 6 byte block the device returns in
// altimeter mode. Values are truncated to 1/16 unit.
func encodeAltitudeTemperature(altitude, tempC float64) []byte {
	h := uint32(altitude*16) << 4
	t := uint16(tempC*16) << 4
	return []byte{statusPTDR, byte(h >> 16), byte(h >> 8), byte(h) & 0xF0, byte(t >> 8), byte(t) & 0xF0}
}

// encodePressure builds the 4 byte block returned in barometer mode.
func encodePressure(kPa float64) []byte {
	p := uint32(kPa*1000*4) << 4
	return []byte{statusPTDR, byte(p >> 16), byte(p >> 8), byte(p) & 0xF0}
}

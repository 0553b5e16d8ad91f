package output

import "github.com/ericogr/mpl3115a2-to-mqtt/pkg/sensor"

type Output interface {
	Publish(sensor.Reading) error
	Close() error
}

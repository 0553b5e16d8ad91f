package console

import (
	"fmt"
	"io"
	"os"

	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/output"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/sensor"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(r sensor.Reading) error {
	return Report(os.Stdout, r)
}

func (c *ConsoleOutput) Close() error { return nil }

// Report writes pressure, altitude and both temperatures, one per line, with
// two decimals.
func Report(w io.Writer, r sensor.Reading) error {
	_, err := fmt.Fprintf(w,
		"Pressure is : %.2f kPa\nAltitude is : %.2f m\nTemperature in Celsius is : %.2f C\nTemperature in Fahrenheit is : %.2f F\n",
		r.Pressure, r.Altitude, r.TemperatureC, r.TemperatureF)
	return err
}

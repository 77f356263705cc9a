package hal

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/armazcape/armazd/internal/hal/charts"
)

// ADC and voltage divider constants for the cape's thermistor inputs.
const (
	adcMax      = 4095.0
	adcRefVolts = 1.8
	dividerOhms = 4700.0
	// openCircuitOhms is reported when the sensed voltage pins to a
	// rail, i.e. the thermistor is missing or shorted.
	openCircuitOhms = 10000000.0
)

// Thermistor reads a temperature through an IIO sysfs ADC channel.
type Thermistor struct {
	name    string
	rawPath string
	chart   *charts.Chart
}

// NewThermistor binds a thermistor to an ADC channel below the given
// IIO device directory (e.g. /sys/bus/iio/devices/iio:device0).
func NewThermistor(devicePath string, channel int, name string, chart *charts.Chart) *Thermistor {
	return &Thermistor{
		name:    name,
		rawPath: filepath.Join(devicePath, fmt.Sprintf("in_voltage%d_raw", channel)),
		chart:   chart,
	}
}

func (t *Thermistor) Name() string { return t.name }

// Read samples the ADC and converts to degrees celsius via the divider
// equation and the NTC chart.
func (t *Thermistor) Read() (float64, error) {
	b, err := os.ReadFile(t.rawPath)
	if err != nil {
		return 0, SensorReadError{Sensor: t.name, Err: err}
	}
	raw, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, SensorReadError{Sensor: t.name, Err: fmt.Errorf("bad adc value: %w", err)}
	}

	volts := (raw / adcMax) * adcRefVolts
	return t.chart.Celsius(voltageToResistance(volts)), nil
}

// voltageToResistance solves the divider for the thermistor leg.
func voltageToResistance(volts float64) float64 {
	if volts <= 0 || math.Abs(volts-adcRefVolts) < 0.001 {
		return openCircuitOhms
	}
	return dividerOhms / ((adcRefVolts / volts) - 1.0)
}

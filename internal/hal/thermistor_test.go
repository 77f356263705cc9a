package hal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/armazcape/armazd/internal/hal/charts"
)

// writeRaw emulates the IIO sysfs ADC file for channel 0.
func writeRaw(t *testing.T, dir, value string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_voltage0_raw"), []byte(value), 0o644))
}

// rawForOhms inverts the divider equation to find the ADC count that
// senses the given thermistor resistance.
func rawForOhms(ohms float64) string {
	volts := adcRefVolts * ohms / (dividerOhms + ohms)
	return fmt.Sprintf("%d", int(volts/adcRefVolts*adcMax))
}

func TestThermistorRead(t *testing.T) {
	dir := t.TempDir()
	chart, err := charts.Default()
	require.NoError(t, err)

	th := NewThermistor(dir, 0, "TH0", chart)

	// 10k ohms is the chart's 25C anchor.
	writeRaw(t, dir, rawForOhms(10000))
	got, err := th.Read()
	require.NoError(t, err)
	require.InDelta(t, 25.0, got, 0.5)

	// Lower resistance reads hotter.
	writeRaw(t, dir, rawForOhms(5327))
	hot, err := th.Read()
	require.NoError(t, err)
	require.InDelta(t, 40.0, hot, 0.5)
}

func TestThermistorReadMissingFile(t *testing.T) {
	chart, err := charts.Default()
	require.NoError(t, err)
	th := NewThermistor(t.TempDir(), 0, "TH0", chart)

	_, err = th.Read()
	var sre SensorReadError
	require.True(t, errors.As(err, &sre))
	require.Equal(t, "TH0", sre.Sensor)
}

func TestThermistorReadGarbage(t *testing.T) {
	dir := t.TempDir()
	chart, err := charts.Default()
	require.NoError(t, err)
	th := NewThermistor(dir, 0, "TH0", chart)

	writeRaw(t, dir, "not-a-number")
	_, err = th.Read()
	var sre SensorReadError
	require.True(t, errors.As(err, &sre))
}

// A railed input (0V or full scale) must read as open circuit, which
// the chart clamps to its coldest anchor instead of exploding.
func TestThermistorRailedInput(t *testing.T) {
	dir := t.TempDir()
	chart, err := charts.Default()
	require.NoError(t, err)
	th := NewThermistor(dir, 0, "TH0", chart)

	writeRaw(t, dir, "0")
	got, err := th.Read()
	require.NoError(t, err)
	require.InDelta(t, chart.Points[0].Celsius, got, 0.01)

	writeRaw(t, dir, "4095")
	got, err = th.Read()
	require.NoError(t, err)
	require.InDelta(t, chart.Points[0].Celsius, got, 0.01)
}

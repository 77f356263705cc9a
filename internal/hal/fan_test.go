package hal

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// newFanDir emulates an exported pwm channel under a pwmchip directory.
func newFanDir(t *testing.T) string {
	t.Helper()
	chip := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(chip, "pwm0"), 0o755))
	return chip
}

func readDuty(t *testing.T, chip string) int {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(chip, "pwm0", "duty_cycle"))
	require.NoError(t, err)
	ns, err := strconv.Atoi(string(b))
	require.NoError(t, err)
	return ns
}

func TestNewFanInitializesChannel(t *testing.T) {
	chip := newFanDir(t)
	_, err := NewFan(chip, 0, "F0")
	require.NoError(t, err)

	period, err := os.ReadFile(filepath.Join(chip, "pwm0", "period"))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(pwmPeriodNS), string(period))

	enable, err := os.ReadFile(filepath.Join(chip, "pwm0", "enable"))
	require.NoError(t, err)
	require.Equal(t, "1", string(enable))
	require.Equal(t, 0, readDuty(t, chip))
}

func TestFanSetDutyCycle(t *testing.T) {
	chip := newFanDir(t)
	f, err := NewFan(chip, 0, "F0")
	require.NoError(t, err)

	require.NoError(t, f.SetDutyCycle(0.5))
	require.Equal(t, pwmPeriodNS/2, readDuty(t, chip))

	require.NoError(t, f.SetDutyCycle(1))
	require.Equal(t, pwmPeriodNS, readDuty(t, chip))

	require.NoError(t, f.SetDutyCycle(0))
	require.Equal(t, 0, readDuty(t, chip))
}

func TestFanClampsOutOfRange(t *testing.T) {
	chip := newFanDir(t)
	f, err := NewFan(chip, 0, "F0")
	require.NoError(t, err)

	require.NoError(t, f.SetDutyCycle(1.7))
	require.Equal(t, pwmPeriodNS, readDuty(t, chip))

	require.NoError(t, f.SetDutyCycle(-0.3))
	require.Equal(t, 0, readDuty(t, chip))
}

// Non-zero demands below the floor spin at the floor; zero stays zero.
func TestFanMinSpeedFloor(t *testing.T) {
	chip := newFanDir(t)
	f, err := NewFan(chip, 0, "F0")
	require.NoError(t, err)
	f.SetMinSpeed(0.2)

	require.NoError(t, f.SetDutyCycle(0.05))
	require.Equal(t, int(0.2*float64(pwmPeriodNS)), readDuty(t, chip))

	require.NoError(t, f.SetDutyCycle(0))
	require.Equal(t, 0, readDuty(t, chip))
}

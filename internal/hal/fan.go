package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// pwmPeriodNS yields the 1560 Hz PWM frequency the fans are rated for.
const pwmPeriodNS = 641025

// Fan drives a PWM fan through a sysfs pwmchip channel.
type Fan struct {
	name     string
	dir      string
	periodNS int
	minSpeed float64
}

// NewFan exports and enables a PWM channel below the given chip
// directory (e.g. /sys/class/pwm/pwmchip4) and parks it at zero duty.
func NewFan(chipPath string, channel int, name string) (*Fan, error) {
	f := &Fan{
		name:     name,
		dir:      filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
		periodNS: pwmPeriodNS,
	}

	if _, err := os.Stat(f.dir); os.IsNotExist(err) {
		if err := writeSysfs(filepath.Join(chipPath, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("export pwm channel %d: %w", channel, err)
		}
	}
	if err := writeSysfs(filepath.Join(f.dir, "period"), strconv.Itoa(f.periodNS)); err != nil {
		return nil, fmt.Errorf("fan %s: set period: %w", name, err)
	}
	if err := writeSysfs(filepath.Join(f.dir, "duty_cycle"), "0"); err != nil {
		return nil, fmt.Errorf("fan %s: zero duty: %w", name, err)
	}
	if err := writeSysfs(filepath.Join(f.dir, "enable"), "1"); err != nil {
		return nil, fmt.Errorf("fan %s: enable: %w", name, err)
	}
	return f, nil
}

func (f *Fan) Name() string { return f.name }

// SetMinSpeed sets the duty floor applied to any non-zero demand, so a
// commanded fan never stalls below its startup torque.
func (f *Fan) SetMinSpeed(min float64) {
	if min < 0 {
		min = 0
	}
	if min > 1 {
		min = 1
	}
	f.minSpeed = min
}

// SetDutyCycle applies a duty in [0, 1], clamping out-of-range demands
// and honoring the minimum speed floor.
func (f *Fan) SetDutyCycle(duty float64) error {
	if duty < 0 {
		duty = 0
	}
	if duty > 1 {
		duty = 1
	}
	if duty > 0 && duty < f.minSpeed {
		duty = f.minSpeed
	}

	ns := int(duty * float64(f.periodNS))
	if err := writeSysfs(filepath.Join(f.dir, "duty_cycle"), strconv.Itoa(ns)); err != nil {
		return fmt.Errorf("fan %s: set duty: %w", f.name, err)
	}
	return nil
}

func writeSysfs(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

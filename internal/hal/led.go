package hal

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Led controls one sysfs LED (a directory below /sys/class/leds).
type Led struct {
	name     string
	function string
	dir      string
}

// NewLed binds a LED directory. function tags what the LED signals
// ("status", "error", ...) and is matched against configuration.
func NewLed(dir, name, function string) *Led {
	return &Led{name: name, function: function, dir: dir}
}

func (l *Led) Name() string     { return l.name }
func (l *Led) Function() string { return l.function }

// SetTrigger selects the kernel trigger ("none", "timer", ...).
func (l *Led) SetTrigger(trigger string) error {
	if err := writeSysfs(filepath.Join(l.dir, "trigger"), trigger); err != nil {
		return fmt.Errorf("led %s: set trigger %q: %w", l.name, trigger, err)
	}
	return nil
}

// SetBlinkDelays sets the timer trigger on/off delays in milliseconds.
func (l *Led) SetBlinkDelays(ms int) error {
	for _, f := range []string{"delay_on", "delay_off"} {
		if err := writeSysfs(filepath.Join(l.dir, f), strconv.Itoa(ms)); err != nil {
			return fmt.Errorf("led %s: set %s: %w", l.name, f, err)
		}
	}
	return nil
}

// On drives the LED solid on (trigger must be "none").
func (l *Led) On() error {
	if err := writeSysfs(filepath.Join(l.dir, "brightness"), "255"); err != nil {
		return fmt.Errorf("led %s: on: %w", l.name, err)
	}
	return nil
}

// Off extinguishes the LED.
func (l *Led) Off() error {
	if err := writeSysfs(filepath.Join(l.dir, "brightness"), "0"); err != nil {
		return fmt.Errorf("led %s: off: %w", l.name, err)
	}
	return nil
}

package daemon

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/armazcape/armazd/internal/hal"
	"github.com/armazcape/armazd/internal/hal/charts"
	"github.com/armazcape/armazd/internal/logfields"
	"github.com/armazcape/armazd/internal/watcher"
)

// Sysfs and evdev defaults for the cape. Every path is overridable in
// configuration, which is also how the tests point the daemon at a
// fake sysfs tree.
const (
	defaultIIODevicePath = "/sys/bus/iio/devices/iio:device0"
	defaultPWMChipPath   = "/sys/class/pwm/pwmchip0"
	defaultInputDevPath  = "/dev/input/event1"
)

// configureLeds binds the [leds] section: got_leds entries with
// file_Ln, function_Ln and an optional trigger_Ln.
func (d *Daemon) configureLeds() error {
	count := d.cfg.GetInt("leds", "got_leds", 0)
	for n := 0; n < count; n++ {
		dir := d.cfg.Get("leds", fmt.Sprintf("file_L%d", n), "")
		if dir == "" {
			return fmt.Errorf("led L%d: no file configured", n)
		}
		name := fmt.Sprintf("L%d", n)
		function := d.cfg.Get("leds", fmt.Sprintf("function_L%d", n), "status")
		led := hal.NewLed(dir, name, function)

		if trigger := d.cfg.Get("leds", fmt.Sprintf("trigger_L%d", n), ""); trigger != "" {
			if err := led.SetTrigger(trigger); err != nil {
				slog.Error("LED trigger setup failed", logfields.Error(err))
			}
		}
		d.leds = append(d.leds, led)
	}
	if count > 0 {
		slog.Info("LEDs configured", slog.Int("count", count))
	}
	return nil
}

// setStatusLeds blinks the status-function LEDs at the given period.
// LED write failures are cosmetic and only logged.
func (d *Daemon) setStatusLeds(trigger string, blinkMs int) {
	for _, led := range d.leds {
		if led.Function() != "status" {
			continue
		}
		if err := led.SetTrigger(trigger); err != nil {
			slog.Error("LED trigger failed", logfields.Error(err))
			continue
		}
		if err := led.SetBlinkDelays(blinkMs); err != nil {
			slog.Error("LED blink setup failed", logfields.Error(err))
		}
	}
}

// setAllLeds switches every LED to the given kernel trigger.
func (d *Daemon) setAllLeds(trigger string) {
	for _, led := range d.leds {
		if err := led.SetTrigger(trigger); err != nil {
			slog.Error("LED trigger failed", logfields.Error(err))
		}
	}
}

// configureHardware builds the thermistors, fans, thermal watchers and
// switches from configuration. Configured hardware that cannot be
// bound is fatal; a cape that cannot cool itself must not come up.
func (d *Daemon) configureHardware() error {
	thermistors, err := d.buildThermistors()
	if err != nil {
		return err
	}
	fans, err := d.buildFans()
	if err != nil {
		return err
	}
	d.buildTempWatchers(thermistors, fans)
	return d.buildSwitches()
}

func (d *Daemon) buildThermistors() ([]*hal.Thermistor, error) {
	count := d.cfg.GetInt("thermistors", "got_thermistors", 0)
	if count == 0 {
		return nil, nil
	}

	chart, err := charts.Default()
	if err != nil {
		return nil, fmt.Errorf("load thermistor chart: %w", err)
	}
	devicePath := d.cfg.Get("thermistors", "device_path", defaultIIODevicePath)

	out := make([]*hal.Thermistor, 0, count)
	for n := 0; n < count; n++ {
		channel := d.cfg.GetInt("thermistors", fmt.Sprintf("port_TH%d", n), -1)
		if channel < 0 {
			return nil, fmt.Errorf("thermistor TH%d: no port configured", n)
		}
		name := fmt.Sprintf("TH%d", n)
		out = append(out, hal.NewThermistor(devicePath, channel, name, chart))
		slog.Info("Thermistor configured",
			slog.String("name", name),
			slog.Int("channel", channel))
	}
	return out, nil
}

func (d *Daemon) buildFans() ([]*hal.Fan, error) {
	count := d.cfg.GetInt("fans", "got_fans", 0)
	if count == 0 {
		return nil, nil
	}
	chipPath := d.cfg.Get("fans", "chip_path", defaultPWMChipPath)

	out := make([]*hal.Fan, 0, count)
	for n := 0; n < count; n++ {
		channel := d.cfg.GetInt("fans", fmt.Sprintf("address_F%d", n), -1)
		if channel < 0 {
			return nil, fmt.Errorf("fan F%d: no address configured", n)
		}
		name := fmt.Sprintf("F%d", n)
		fan, err := hal.NewFan(chipPath, channel, name)
		if err != nil {
			return nil, fmt.Errorf("fan %s: %w", name, err)
		}
		fan.SetMinSpeed(d.cfg.GetFloat("fans", fmt.Sprintf("min_speed_F%d", n), 0))
		out = append(out, fan)
		slog.Info("Fan configured",
			slog.String("name", name),
			slog.Int("channel", channel))
	}
	d.fans = out
	return out, nil
}

// buildTempWatchers pairs thermistors with fans through the
// [temperature_watchers] connect_THt_to_Ff options. A thermistor with
// no fan still gets a log-only watcher so over-temperature alerts keep
// working on fanless variants.
func (d *Daemon) buildTempWatchers(thermistors []*hal.Thermistor, fans []*hal.Fan) {
	for t, therm := range thermistors {
		cfg := watcher.TempConfig{
			Name:     therm.Name(),
			Target:   d.cfg.GetFloat("thermistors", fmt.Sprintf("target_temperature_TH%d", t), 50),
			Max:      d.cfg.GetFloat("thermistors", fmt.Sprintf("max_temperature_TH%d", t), 75),
			Interval: d.secondsOption("thermistors", fmt.Sprintf("update_interval_TH%d", t), 5),
		}

		var fan hal.Actuator
		for f := range fans {
			if d.cfg.GetBool("temperature_watchers", fmt.Sprintf("connect_TH%d_to_F%d", t, f), false) {
				fan = fans[f]
				break
			}
		}
		if fan == nil {
			slog.Info("Thermistor has no fan, watcher is log-only",
				logfields.Watcher(cfg.Name))
		}

		d.watchers = append(d.watchers,
			watcher.NewTempWatcher(cfg, therm, fan, d.dispatcher, d.eventInletID(), d.recorder))
	}
}

// buildSwitches binds the [switches] section: keycode_ESWn entries on a
// shared evdev device, each raising its configured function trigger.
func (d *Daemon) buildSwitches() error {
	if d.cfg.GetBool("switches", "disable", false) {
		return nil
	}
	devicePath := d.cfg.Get("switches", "inputdev_path", defaultInputDevPath)
	interval := d.millisOption("switches", "poll_interval", 100)

	for n := 0; d.cfg.HasOption("switches", fmt.Sprintf("keycode_ESW%d", n)); n++ {
		keycode := d.cfg.GetInt("switches", fmt.Sprintf("keycode_ESW%d", n), 0)
		name := d.cfg.Get("switches", fmt.Sprintf("name_ESW%d", n), fmt.Sprintf("ESW%d", n))
		function := d.cfg.Get("switches", fmt.Sprintf("function_ESW%d", n), "")
		if function == "" {
			slog.Warn("Switch has no function, skipping",
				logfields.Watcher(name))
			continue
		}

		input, err := hal.OpenKeySwitch(devicePath, uint16(keycode), name)
		if err != nil {
			return err
		}
		d.switches = append(d.switches, input)

		if err := d.registerTriggerAlias(function); err != nil {
			return err
		}

		cfg := watcher.SwitchConfig{
			Name:     name,
			Function: function,
			Key:      strings.TrimPrefix(function, "machine."),
			Invert:   d.cfg.GetBool("switches", fmt.Sprintf("invert_ESW%d", n), false),
			Interval: interval,
		}
		d.watchers = append(d.watchers,
			watcher.NewSwitchWatcher(cfg, input, d.dispatcher, d.eventInletID(), d.recorder))
		slog.Info("Switch configured",
			logfields.Watcher(name),
			slog.Int("keycode", keycode),
			logfields.Trigger(function))
	}
	return nil
}

// secondsOption reads a duration given in (possibly fractional) seconds.
func (d *Daemon) secondsOption(section, key string, fallback float64) time.Duration {
	return time.Duration(d.cfg.GetFloat(section, key, fallback) * float64(time.Second))
}

// millisOption reads a duration given in milliseconds.
func (d *Daemon) millisOption(section, key string, fallback int) time.Duration {
	return time.Duration(d.cfg.GetInt(section, key, fallback)) * time.Millisecond
}

package watcher

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/hal"
	"github.com/armazcape/armazd/internal/logfields"
	"github.com/armazcape/armazd/internal/machine"
	"github.com/armazcape/armazd/internal/metrics"
)

// PID coefficients, fixed per watcher instance. Tuned on the bench for
// the cape's fan/thermistor pairs; not re-tunable mid-run.
const (
	coeffG  = 1.0
	coeffTi = 0.1
	coeffTd = 0.1

	// errSumLimit bounds the integral term so a long excursion cannot
	// wind the controller up past full duty.
	errSumLimit = 1000.0
)

// TempWatcher closes a PID loop from one thermistor to one fan and
// raises a machine.temperature_exceeded trigger on the bus when the
// sample passes the configured maximum. The fan write is a direct
// hardware write; only the alert goes through the dispatcher.
type TempWatcher struct {
	name     string
	sensor   hal.Sensor
	fan      hal.Actuator // nil in log-only mode
	target   float64
	max      float64
	interval time.Duration

	errLast float64
	errSum  float64

	bus      Bus
	inletID  string
	recorder metrics.Recorder
}

// TempConfig carries the per-watcher settings resolved from the
// configuration files.
type TempConfig struct {
	Name     string
	Target   float64 // regulation setpoint in celsius
	Max      float64 // alert threshold in celsius
	Interval time.Duration
}

// NewTempWatcher builds a thermal watcher. fan may be nil, leaving a
// log-only watcher that still raises over-temperature triggers.
func NewTempWatcher(cfg TempConfig, sensor hal.Sensor, fan hal.Actuator, b Bus, inletID string, rec metrics.Recorder) *TempWatcher {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &TempWatcher{
		name:     cfg.Name,
		sensor:   sensor,
		fan:      fan,
		target:   cfg.Target,
		max:      cfg.Max,
		interval: cfg.Interval,
		bus:      b,
		inletID:  inletID,
		recorder: rec,
	}
}

// Name returns the watcher identity used in triggers and metrics.
func (w *TempWatcher) Name() string { return w.name }

// Interval returns the tick period.
func (w *TempWatcher) Interval() time.Duration { return w.interval }

// Tick runs one control cycle. A failed sensor read skips the cycle
// entirely: PID state and fan duty hold, and the read is retried on the
// next scheduled tick only.
func (w *TempWatcher) Tick() {
	temp, err := w.sensor.Read()
	if err != nil {
		slog.Error("Temperature read failed, skipping tick",
			logfields.Watcher(w.name),
			logfields.Error(err))
		w.recorder.IncWatcherTick(w.name, "sensor_error")
		return
	}
	w.recorder.ObserveTemperature(w.name, temp)

	duty := w.pid(temp)
	if w.fan != nil {
		if err := w.fan.SetDutyCycle(duty); err != nil {
			slog.Error("Fan write failed",
				logfields.Watcher(w.name),
				logfields.Error(err))
		} else {
			w.recorder.SetFanDuty(w.fan.Name(), duty)
		}
	}

	if temp > w.max {
		w.trigger(temp)
	}
	w.recorder.IncWatcherTick(w.name, "ok")
}

// pid advances the controller state and returns a duty cycle in [0, 1].
// The error sign makes a sample above the setpoint demand more airflow.
func (w *TempWatcher) pid(temp float64) float64 {
	e := temp - w.target

	w.errSum += e
	if w.errSum > errSumLimit {
		w.errSum = errSumLimit
	} else if w.errSum < -errSumLimit {
		w.errSum = -errSumLimit
	}

	delta := e - w.errLast
	w.errLast = e

	// Terms are in percent of full duty.
	percent := coeffG*e + coeffTi*w.errSum + coeffTd*delta
	duty := percent / 100.0
	if duty < 0 {
		return 0
	}
	if duty > 1 {
		return 1
	}
	return duty
}

// trigger submits the over-temperature alert, fire and forget.
func (w *TempWatcher) trigger(temp float64) {
	value := strconv.FormatFloat(temp, 'f', 1, 64)
	c := bus.New(
		machine.TriggerTemperatureExceeded,
		"alert:"+w.name,
		[]string{w.name, value},
		bus.ReplyRoute{ProcessorID: w.inletID, Address: w.name},
	)
	if err := w.bus.Submit(w.inletID, c); err != nil {
		slog.Error("Failed to submit temperature trigger",
			logfields.Watcher(w.name),
			logfields.Error(err))
		return
	}
	w.recorder.IncTrigger(machine.TriggerTemperatureExceeded)
	slog.Warn("Temperature exceeded",
		logfields.Watcher(w.name),
		slog.Float64("celsius", temp),
		slog.Float64("max", w.max))
}

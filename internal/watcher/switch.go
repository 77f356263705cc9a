package watcher

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/foundation"
	"github.com/armazcape/armazd/internal/hal"
	"github.com/armazcape/armazd/internal/logfields"
	"github.com/armazcape/armazd/internal/metrics"
)

// SwitchConfig carries one switch's settings from configuration.
type SwitchConfig struct {
	Name string
	// Function is the trigger alias submitted on an edge, e.g.
	// "machine.drive_enable". It must be registered on the bus.
	Function string
	// Key is the function's short name used for the store path
	// (switch:<key>).
	Key string
	// Invert flips the electrical level before it becomes a state.
	Invert   bool
	Interval time.Duration
}

// SwitchWatcher polls a digital input and submits the configured
// function trigger when, and only when, the observed state differs from
// the last submitted one. Submission is fire and forget.
type SwitchWatcher struct {
	cfg   SwitchConfig
	input hal.DigitalInput
	last  foundation.Option[bool]

	bus      Bus
	inletID  string
	recorder metrics.Recorder
}

// NewSwitchWatcher builds a switch edge watcher.
func NewSwitchWatcher(cfg SwitchConfig, input hal.DigitalInput, b Bus, inletID string, rec metrics.Recorder) *SwitchWatcher {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SwitchWatcher{
		cfg:      cfg,
		input:    input,
		last:     foundation.None[bool](),
		bus:      b,
		inletID:  inletID,
		recorder: rec,
	}
}

// Name returns the switch name from configuration.
func (w *SwitchWatcher) Name() string { return w.cfg.Name }

// Interval returns the poll period.
func (w *SwitchWatcher) Interval() time.Duration { return w.cfg.Interval }

// Tick polls the input once. A toggle that lands back on the previous
// state within one poll interval produces no trigger.
func (w *SwitchWatcher) Tick() {
	w.input.Poll().Match(func(raw bool) {
		state := raw != w.cfg.Invert
		if w.last.IsSome() && w.last.Unwrap() == state {
			return
		}
		w.last = foundation.Some(state)
		w.trigger(state)
	}, func() {
		// No edge since the last poll.
	})
}

func (w *SwitchWatcher) trigger(state bool) {
	c := bus.New(
		w.cfg.Function,
		"switch:"+w.cfg.Key,
		[]string{w.cfg.Key, strconv.FormatBool(state)},
		bus.ReplyRoute{ProcessorID: w.inletID, Address: w.cfg.Name},
	)
	if err := w.bus.Submit(w.inletID, c); err != nil {
		slog.Error("Failed to submit switch trigger",
			logfields.Watcher(w.cfg.Name),
			logfields.Error(err))
		return
	}
	w.recorder.IncTrigger(w.cfg.Function)
	slog.Info("Switch state changed",
		logfields.Watcher(w.cfg.Name),
		logfields.Trigger(w.cfg.Function),
		slog.Bool("state", state))
}

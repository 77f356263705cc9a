// Package daemon wires configuration, hardware, the command bus, the
// protocol processors and the watchers into one runnable control node.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/config"
	"github.com/armazcape/armazd/internal/events"
	"github.com/armazcape/armazd/internal/foundation"
	"github.com/armazcape/armazd/internal/hal"
	"github.com/armazcape/armazd/internal/logfields"
	"github.com/armazcape/armazd/internal/machine"
	"github.com/armazcape/armazd/internal/metrics"
	"github.com/armazcape/armazd/internal/netif"
	"github.com/armazcape/armazd/internal/processor"
	"github.com/armazcape/armazd/internal/version"
	"github.com/armazcape/armazd/internal/watcher"
)

const configDebounce = 2 * time.Second

// tickable is the common surface of the scheduled watchers.
type tickable interface {
	Name() string
	Interval() time.Duration
	Tick()
}

// Daemon owns every long-lived component of the control node.
type Daemon struct {
	cfg        *config.Config
	store      *machine.Store
	registry   *bus.Registry
	dispatcher *bus.Dispatcher
	recorder   metrics.Recorder

	processors []processor.Processor
	watchers   []tickable
	scheduler  *watcher.Scheduler
	sink       *events.Sink

	leds     []*hal.Led
	fans     []*hal.Fan
	switches []*hal.KeySwitch

	cfgWatcher      *config.Watcher
	metricsListener *metrics.Listener
}

// New assembles a daemon from merged configuration. Configuration and
// registration errors (duplicate aliases, missing required hardware)
// are fatal here; nothing has started yet.
func New(cfg *config.Config) foundation.Result[*Daemon, error] {
	d := &Daemon{
		cfg:      cfg,
		store:    machine.NewStore(),
		registry: bus.NewRegistry(),
		recorder: metrics.Nop{},
	}

	slog.Info("Assembling armazd", slog.String("version", version.Version))

	if addr := cfg.Get("metrics", "listen", ""); addr != "" {
		reg := prom.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(reg)
		d.metricsListener = metrics.NewListener(addr, reg)
	}

	d.seedStore()
	if err := d.registerCommands(); err != nil {
		return foundation.Err[*Daemon](err)
	}

	d.dispatcher = bus.NewDispatcher(d.store, d.registry,
		bus.WithRecorder(d.recorder),
		bus.WithQueueSize(cfg.GetInt("system", "queue_size", 64)))
	if err := d.dispatcher.AddProcessor(events.ProcessorID); err != nil {
		return foundation.Err[*Daemon](err)
	}

	if err := d.configureLeds(); err != nil {
		return foundation.Err[*Daemon](err)
	}
	d.setStatusLeds("timer", 500)

	d.configureNetwork()

	if err := d.configureHardware(); err != nil {
		return foundation.Err[*Daemon](err)
	}
	if err := d.configureProcessors(); err != nil {
		return foundation.Err[*Daemon](err)
	}

	outlet, err := d.dispatcher.Outlet(events.ProcessorID)
	if err != nil {
		return foundation.Err[*Daemon](err)
	}
	d.sink = events.NewSink(events.Config{
		NATSURL:       cfg.Get("events", "nats_url", ""),
		SubjectPrefix: cfg.Get("events", "subject_prefix", ""),
	}, outlet, d.recorder)

	sched, err := watcher.NewScheduler()
	if err != nil {
		return foundation.Err[*Daemon](err)
	}
	d.scheduler = sched

	cw, err := config.NewWatcher(cfg.Paths(), configDebounce, d.submitConfigChanged)
	if err != nil {
		return foundation.Err[*Daemon](err)
	}
	d.cfgWatcher = cw

	return foundation.Ok[*Daemon, error](d)
}

// Start brings the daemon online: fans forced to full duty until the
// watchers take over, dispatcher consumers running, transports open,
// watcher loops scheduled.
func (d *Daemon) Start(ctx context.Context) error {
	for _, f := range d.fans {
		if err := f.SetDutyCycle(1); err != nil {
			slog.Error("Failed to force fan to full duty", logfields.Error(err))
		}
	}

	if err := d.dispatcher.Start(); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	d.sink.Start()

	for _, p := range d.processors {
		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("start processor %s: %w", p.ID(), err)
		}
	}

	for _, w := range d.watchers {
		if err := d.scheduler.AddPeriodic(w.Name(), w.Interval(), w.Tick); err != nil {
			return fmt.Errorf("schedule watcher %s: %w", w.Name(), err)
		}
	}
	d.scheduler.Start()
	d.cfgWatcher.Start(ctx)

	if d.metricsListener != nil {
		d.metricsListener.Start()
	}

	d.setStatusLeds("timer", 50)
	slog.Info("armazd ready",
		slog.Int("watchers", len(d.watchers)),
		slog.Int("processors", len(d.processors)),
		slog.Any("aliases", d.registry.Aliases()))
	return nil
}

// Stop winds the daemon down in dependency order: transports and
// watchers first so nothing submits into a closing bus, then the
// dispatcher drain, then the hardware park position (fans off, LEDs
// solid on).
func (d *Daemon) Stop(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, p := range d.processors {
		keep(p.Stop(ctx))
	}
	d.cfgWatcher.Stop()
	keep(d.scheduler.Stop())
	keep(d.dispatcher.Stop(ctx))
	d.sink.Wait()

	if d.metricsListener != nil {
		keep(d.metricsListener.Stop(ctx))
	}

	for _, s := range d.switches {
		keep(s.Close())
	}
	for _, f := range d.fans {
		keep(f.SetDutyCycle(0))
	}
	d.setAllLeds("none")
	for _, led := range d.leds {
		keep(led.On())
	}

	slog.Info("armazd stopped")
	return firstErr
}

// Store exposes the machine state for tests and diagnostics.
func (d *Daemon) Store() *machine.Store { return d.store }

// Dispatcher exposes the bus for tests and diagnostics.
func (d *Daemon) Dispatcher() *bus.Dispatcher { return d.dispatcher }

// seedStore populates the identity entries operators read first.
func (d *Daemon) seedStore() {
	d.store.Set(machine.Path{"machine", "version"}, version.Version)
	if sn := d.cfg.Get("machine", "serialnumber", ""); sn != "" {
		d.store.Set(machine.Path{"machine", "serialnumber"}, sn)
	}
	if variant := d.cfg.Get("machine", "variant", ""); variant != "" {
		d.store.Set(machine.Path{"machine", "variant"}, variant)
	}
}

// configureNetwork brings the operator interface up. Failures are
// logged, never fatal: a cape with a broken link must still answer on
// serial.
func (d *Daemon) configureNetwork() {
	iface := d.cfg.Get("machine", "interface", "")
	if iface == "" {
		return
	}
	slog.Info("Configuring interface", logfields.Interface(iface))
	if err := netif.EnsureUp(iface, d.cfg.Get("machine", "ip_address", "")); err != nil {
		slog.Error("Interface configuration failed",
			logfields.Interface(iface),
			logfields.Error(err))
	}
}

// submitConfigChanged records a configuration edit on the bus.
func (d *Daemon) submitConfigChanged() {
	c := bus.New(machine.TriggerConfigChanged, "config:changed",
		[]string{"config", "true"},
		bus.ReplyRoute{ProcessorID: events.ProcessorID, Address: "config"})
	if err := d.dispatcher.Submit(events.ProcessorID, c); err != nil {
		slog.Error("Failed to submit config change trigger", logfields.Error(err))
		return
	}
	d.recorder.IncTrigger(machine.TriggerConfigChanged)
}

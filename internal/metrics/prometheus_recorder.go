package metrics

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once         sync.Once
	commands     *prom.CounterVec
	inletDepth   *prom.GaugeVec
	triggers     *prom.CounterVec
	watcherTicks *prom.CounterVec
	temperature  *prom.GaugeVec
	fanDuty      *prom.GaugeVec
	events       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.commands = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "armazd",
			Name:      "commands_total",
			Help:      "Dispatched commands by processor, alias and result",
		}, []string{"processor", "alias", "result"})
		pr.inletDepth = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "armazd",
			Name:      "inlet_depth",
			Help:      "Queued commands per processor inlet",
		}, []string{"processor"})
		pr.triggers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "armazd",
			Name:      "triggers_total",
			Help:      "Hardware triggers submitted to the bus by alias",
		}, []string{"alias"})
		pr.watcherTicks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "armazd",
			Name:      "watcher_ticks_total",
			Help:      "Watcher cycles by outcome",
		}, []string{"watcher", "result"})
		pr.temperature = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "armazd",
			Name:      "temperature_celsius",
			Help:      "Last temperature sample per watcher",
		}, []string{"watcher"})
		pr.fanDuty = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "armazd",
			Name:      "fan_duty_cycle",
			Help:      "Last duty cycle applied per fan (0..1)",
		}, []string{"fan"})
		pr.events = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "armazd",
			Name:      "events_published_total",
			Help:      "Exported trigger event records by subject",
		}, []string{"subject"})
		reg.MustRegister(pr.commands, pr.inletDepth, pr.triggers, pr.watcherTicks, pr.temperature, pr.fanDuty, pr.events)
	})
	return pr
}

func (p *PrometheusRecorder) IncCommand(processor, alias, result string) {
	if p == nil || p.commands == nil {
		return
	}
	p.commands.WithLabelValues(processor, alias, result).Inc()
}

func (p *PrometheusRecorder) SetInletDepth(processor string, depth int) {
	if p == nil || p.inletDepth == nil {
		return
	}
	p.inletDepth.WithLabelValues(processor).Set(float64(depth))
}

func (p *PrometheusRecorder) IncTrigger(alias string) {
	if p == nil || p.triggers == nil {
		return
	}
	p.triggers.WithLabelValues(alias).Inc()
}

func (p *PrometheusRecorder) IncWatcherTick(watcher, result string) {
	if p == nil || p.watcherTicks == nil {
		return
	}
	p.watcherTicks.WithLabelValues(watcher, result).Inc()
}

func (p *PrometheusRecorder) ObserveTemperature(watcher string, celsius float64) {
	if p == nil || p.temperature == nil {
		return
	}
	p.temperature.WithLabelValues(watcher).Set(celsius)
}

func (p *PrometheusRecorder) SetFanDuty(fan string, duty float64) {
	if p == nil || p.fanDuty == nil {
		return
	}
	p.fanDuty.WithLabelValues(fan).Set(duty)
}

func (p *PrometheusRecorder) IncEventPublished(subject string) {
	if p == nil || p.events == nil {
		return
	}
	p.events.WithLabelValues(subject).Inc()
}

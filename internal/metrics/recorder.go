// Package metrics defines the instrumentation surface of the daemon and
// its Prometheus-backed implementation.
package metrics

// Recorder receives instrumentation events from the bus, the watchers
// and the hardware layer. Implementations must be safe for concurrent
// use and tolerate a nil receiver so call sites stay unguarded.
type Recorder interface {
	// IncCommand counts a dispatched command by originating processor
	// and outcome ("ok" or "error").
	IncCommand(processor, alias, result string)
	// SetInletDepth records the queue depth of a processor's inlet.
	SetInletDepth(processor string, depth int)
	// IncTrigger counts a hardware trigger submission by alias.
	IncTrigger(alias string)
	// IncWatcherTick counts a watcher cycle by outcome ("ok", "sensor_error").
	IncWatcherTick(watcher, result string)
	// ObserveTemperature records the last temperature sample in celsius.
	ObserveTemperature(watcher string, celsius float64)
	// SetFanDuty records the last duty cycle applied to a fan (0..1).
	SetFanDuty(fan string, duty float64)
	// IncEventPublished counts exported trigger event records.
	IncEventPublished(subject string)
}

// Nop is a Recorder that discards everything. Used when the metrics
// listener is not configured.
type Nop struct{}

func (Nop) IncCommand(string, string, string)  {}
func (Nop) SetInletDepth(string, int)          {}
func (Nop) IncTrigger(string)                  {}
func (Nop) IncWatcherTick(string, string)      {}
func (Nop) ObserveTemperature(string, float64) {}
func (Nop) SetFanDuty(string, float64)         {}
func (Nop) IncEventPublished(string)           {}

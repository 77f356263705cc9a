// Package haltest provides in-memory hardware fakes for watcher and
// daemon tests.
package haltest

import (
	"sync"

	"github.com/armazcape/armazd/internal/foundation"
	"github.com/armazcape/armazd/internal/hal"
)

// Sensor is a settable fake hal.Sensor.
type Sensor struct {
	name string

	mu    sync.Mutex
	value float64
	err   error
}

func NewSensor(name string, value float64) *Sensor {
	return &Sensor{name: name, value: value}
}

func (s *Sensor) Name() string { return s.name }

func (s *Sensor) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, hal.SensorReadError{Sensor: s.name, Err: s.err}
	}
	return s.value, nil
}

// SetValue changes the next sample.
func (s *Sensor) SetValue(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}

// Fail makes subsequent reads return a SensorReadError wrapping err,
// or succeed again when err is nil.
func (s *Sensor) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Fan records every duty cycle applied to it.
type Fan struct {
	name string

	mu     sync.Mutex
	duties []float64
}

func NewFan(name string) *Fan {
	return &Fan{name: name}
}

func (f *Fan) Name() string { return f.name }

func (f *Fan) SetDutyCycle(duty float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duties = append(f.duties, duty)
	return nil
}

// Duties returns a copy of all applied duty cycles in order.
func (f *Fan) Duties() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]float64, len(f.duties))
	copy(out, f.duties)
	return out
}

// Last returns the most recently applied duty cycle, or 0.
func (f *Fan) Last() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.duties) == 0 {
		return 0
	}
	return f.duties[len(f.duties)-1]
}

// Input is a scripted fake hal.DigitalInput. Like the evdev switch, a
// Poll drains every event queued since the previous poll and reports
// only the final state; None means nothing happened.
type Input struct {
	name string

	mu    sync.Mutex
	queue []bool
}

func NewInput(name string) *Input {
	return &Input{name: name}
}

func (i *Input) Name() string { return i.name }

// Push queues raw edge events to be drained by the next poll.
func (i *Input) Push(states ...bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.queue = append(i.queue, states...)
}

func (i *Input) Poll() foundation.Option[bool] {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.queue) == 0 {
		return foundation.None[bool]()
	}
	last := i.queue[len(i.queue)-1]
	i.queue = i.queue[:0]
	return foundation.Some(last)
}

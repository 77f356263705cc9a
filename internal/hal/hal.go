// Package hal provides the hardware collaborator contracts of the
// daemon and their sysfs/evdev implementations for the cape board.
package hal

import (
	"fmt"

	"github.com/armazcape/armazd/internal/foundation"
)

// Sensor reads one analog quantity, e.g. a thermistor temperature.
type Sensor interface {
	Name() string
	// Read returns the current sample. Failures are reported as
	// SensorReadError; the caller decides the retry policy.
	Read() (float64, error)
}

// Actuator drives one PWM output, e.g. a fan.
type Actuator interface {
	Name() string
	// SetDutyCycle applies a duty cycle in [0, 1].
	SetDutyCycle(duty float64) error
}

// DigitalInput exposes an edge-detected boolean input. Poll never
// blocks: None means no new event since the last call.
type DigitalInput interface {
	Name() string
	Poll() foundation.Option[bool]
}

// SensorReadError reports a failed hardware sample. Recoverable: the
// owning watcher skips the tick and retries on its next schedule.
type SensorReadError struct {
	Sensor string
	Err    error
}

func (e SensorReadError) Error() string {
	return fmt.Sprintf("sensor %s read failed: %v", e.Sensor, e.Err)
}

func (e SensorReadError) Unwrap() error { return e.Err }

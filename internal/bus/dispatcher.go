package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/armazcape/armazd/internal/logfields"
	"github.com/armazcape/armazd/internal/machine"
	"github.com/armazcape/armazd/internal/metrics"
)

// State tracks the dispatcher lifecycle.
type State int

const (
	StateRegistered State = iota // processors may still be added
	StateActive                  // consumers draining inlets
	StateStopped                 // inlets closed, consumers exited
)

const defaultQueueSize = 64

// endpoint is the channel pair bound to one processor identifier.
type endpoint struct {
	id     string
	inlet  chan Command
	outlet chan Command
}

// Dispatcher owns one inlet/outlet channel pair per registered
// processor and runs one consumer goroutine per inlet, so every
// processor's command stream makes forward progress independently.
// Replies on a single stream keep submission order.
type Dispatcher struct {
	registry  *Registry
	store     *machine.Store
	recorder  metrics.Recorder
	queueSize int

	mu        sync.Mutex
	endpoints map[string]*endpoint
	state     State

	wg         sync.WaitGroup
	submitters sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets the inlet/outlet buffer depth. A full inlet blocks
// the producer rather than dropping; commands and hardware triggers
// must not be lost silently.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithRecorder wires the instrumentation sink.
func WithRecorder(rec metrics.Recorder) Option {
	return func(d *Dispatcher) {
		if rec != nil {
			d.recorder = rec
		}
	}
}

// NewDispatcher creates a dispatcher over the given store and registry.
func NewDispatcher(store *machine.Store, registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		store:     store,
		recorder:  metrics.Nop{},
		queueSize: defaultQueueSize,
		endpoints: make(map[string]*endpoint),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddProcessor binds an inlet/outlet pair for the given processor
// identifier. Registration is only allowed before Start.
func (d *Dispatcher) AddProcessor(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateRegistered {
		return fmt.Errorf("add processor %q: %w", id, ErrAlreadyActive)
	}
	if _, exists := d.endpoints[id]; exists {
		return fmt.Errorf("add processor %q: %w", id, ErrDuplicateProcessor)
	}
	d.endpoints[id] = &endpoint{
		id:     id,
		inlet:  make(chan Command, d.queueSize),
		outlet: make(chan Command, d.queueSize),
	}
	slog.Debug("Processor registered on bus", logfields.Processor(id))
	return nil
}

// Inlet returns the submission channel for a processor. Producers block
// when the inlet is full (bounded backpressure, never silent drop).
func (d *Dispatcher) Inlet(id string) (chan<- Command, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ep, ok := d.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("inlet %q: %w", id, ErrUnknownProcessor)
	}
	return ep.inlet, nil
}

// Outlet returns the reply channel for a processor. The channel is
// closed once the dispatcher has fully stopped.
func (d *Dispatcher) Outlet(id string) (<-chan Command, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ep, ok := d.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("outlet %q: %w", id, ErrUnknownProcessor)
	}
	return ep.outlet, nil
}

// Submit enqueues a command on a processor's inlet. Used by event
// producers, which submit triggers exactly like a protocol client.
// A submit racing Stop fails with ErrNotActive; the inlets only close
// once every accepted submit has landed.
func (d *Dispatcher) Submit(id string, c Command) error {
	d.mu.Lock()
	ep, ok := d.endpoints[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("inlet %q: %w", id, ErrUnknownProcessor)
	}
	if d.state == StateStopped {
		d.mu.Unlock()
		return fmt.Errorf("submit to %q: %w", id, ErrNotActive)
	}
	d.submitters.Add(1)
	d.mu.Unlock()
	defer d.submitters.Done()

	ep.inlet <- c
	d.recorder.SetInletDepth(id, len(ep.inlet))
	return nil
}

// Start transitions every registered processor to active, spawning one
// consumer per inlet. No processor may be added afterwards.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateRegistered {
		return ErrAlreadyActive
	}
	d.state = StateActive

	for _, ep := range d.endpoints {
		d.wg.Add(1)
		go d.consume(ep)
	}
	slog.Info("Dispatcher started", slog.Int("processors", len(d.endpoints)))
	return nil
}

// Stop closes all inlets, lets in-flight commands drain and waits for
// the consumers to exit, bounded by the context deadline. Submitters
// already accepted are joined before the inlets close; outlets are
// closed only after every consumer has stopped, since any consumer may
// route a reply to any outlet.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateActive {
		d.mu.Unlock()
		return ErrNotActive
	}
	d.state = StateStopped
	d.mu.Unlock()

	// Consumers are still draining, so no accepted submit can block
	// forever here.
	d.submitters.Wait()

	d.mu.Lock()
	for _, ep := range d.endpoints {
		close(ep.inlet)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("dispatcher drain: %w", ctx.Err())
	}

	d.mu.Lock()
	for _, ep := range d.endpoints {
		close(ep.outlet)
	}
	d.mu.Unlock()

	slog.Info("Dispatcher stopped")
	return nil
}

// consume drains one processor's inlet until it is closed.
func (d *Dispatcher) consume(ep *endpoint) {
	defer d.wg.Done()

	slog.Debug("Dispatcher consumer started", logfields.Processor(ep.id))
	for cmd := range ep.inlet {
		d.recorder.SetInletDepth(ep.id, len(ep.inlet))
		d.route(ep.id, d.dispatch(cmd))
	}
	slog.Debug("Dispatcher consumer stopped", logfields.Processor(ep.id))
}

// dispatch runs one command through canonicalization, resolution and
// handler execution, always producing exactly one reply.
func (d *Dispatcher) dispatch(cmd Command) Command {
	target, err := machine.ParsePath(cmd.Target)
	if err != nil {
		d.recorder.IncCommand(cmd.Route.ProcessorID, cmd.Name, "error")
		return cmd.Error(err)
	}

	handler, err := d.registry.Resolve(cmd.Name)
	if err != nil {
		d.recorder.IncCommand(cmd.Route.ProcessorID, cmd.Name, "error")
		return cmd.Error(err)
	}

	began := time.Now()
	replyArgs, err := d.invoke(handler, target, cmd)
	if err != nil {
		slog.Debug("Command failed",
			logfields.CommandID(cmd.ID),
			logfields.Command(cmd.Name),
			logfields.UID(cmd.UID()),
			logfields.Error(err))
		d.recorder.IncCommand(cmd.Route.ProcessorID, cmd.Name, "error")
		return cmd.Error(err)
	}

	slog.Debug("Command dispatched",
		logfields.CommandID(cmd.ID),
		logfields.Command(cmd.Name),
		logfields.UID(cmd.UID()),
		logfields.Path(target.String()),
		logfields.DurationMS(float64(time.Since(began))/float64(time.Millisecond)))
	d.recorder.IncCommand(cmd.Route.ProcessorID, cmd.Name, "ok")
	return cmd.Ok(replyArgs...)
}

// invoke runs the handler with panic isolation: a panicking handler
// costs the caller an error reply, never the consumer goroutine.
func (d *Dispatcher) invoke(h Handler, target machine.Path, cmd Command) (args []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s: internal error: %v", cmd.Name, r)
		}
	}()
	return h(target, cmd.Args)
}

// route pushes a reply to the outlet named by its reply route. consumerID
// only serves diagnostics; replies follow the route, not the consumer.
func (d *Dispatcher) route(consumerID string, reply Command) {
	d.mu.Lock()
	ep, ok := d.endpoints[reply.Route.ProcessorID]
	d.mu.Unlock()

	if !ok {
		slog.Warn("Dropping reply for unknown processor",
			logfields.Processor(reply.Route.ProcessorID),
			logfields.Command(reply.Name),
			slog.String("consumer", consumerID))
		return
	}
	ep.outlet <- reply
}

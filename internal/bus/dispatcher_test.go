package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/armazcape/armazd/internal/machine"
)

// newTestBus builds a started dispatcher with the machine command
// surface and the given processor ids registered.
func newTestBus(t *testing.T, ids ...string) (*Dispatcher, *machine.Store) {
	t.Helper()

	store := machine.NewStore()
	reg := NewRegistry()
	require.NoError(t, reg.Register(machine.AliasSet, machine.SetCommand(store)))
	require.NoError(t, reg.Register(machine.AliasGet, machine.GetCommand(store)))
	require.NoError(t, reg.Register(machine.AliasPing, machine.PingCommand()))

	d := NewDispatcher(store, reg, WithQueueSize(16))
	for _, id := range ids {
		require.NoError(t, d.AddProcessor(id))
	}
	require.NoError(t, d.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Stop(ctx)
	})
	return d, store
}

func awaitReply(t *testing.T, outlet <-chan Command) Command {
	t.Helper()
	select {
	case reply, ok := <-outlet:
		require.True(t, ok, "outlet closed before reply")
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
		return Command{}
	}
}

func TestDispatchSetThenGet(t *testing.T) {
	d, _ := newTestBus(t, "serial")
	outlet, err := d.Outlet("serial")
	require.NoError(t, err)

	route := ReplyRoute{ProcessorID: "serial", Address: "ttyO4"}
	require.NoError(t, d.Submit("serial", New("machine.set", "drive.velocity", []string{"drive.velocity", "12.5"}, route)))

	reply := awaitReply(t, outlet)
	require.Equal(t, "machine.set.ok", reply.Name)
	require.Equal(t, []string{"drive.velocity", "12.5"}, reply.Args)

	require.NoError(t, d.Submit("serial", New("machine.get", "drive.velocity", []string{"drive.velocity"}, route)))
	reply = awaitReply(t, outlet)
	require.Equal(t, "machine.get.ok", reply.Name)
	require.Equal(t, []string{"drive.velocity", "12.5"}, reply.Args)
}

func TestDispatchUnknownKey(t *testing.T) {
	d, _ := newTestBus(t, "serial")
	outlet, _ := d.Outlet("serial")

	route := ReplyRoute{ProcessorID: "serial"}
	require.NoError(t, d.Submit("serial", New("machine.get", "drive.unset_key", []string{"drive.unset_key"}, route)))

	reply := awaitReply(t, outlet)
	require.Equal(t, "machine.get.error", reply.Name)
	require.Len(t, reply.Args, 1)
	require.Contains(t, reply.Args[0], "unknown key")
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, _ := newTestBus(t, "osc")
	outlet, _ := d.Outlet("osc")

	route := ReplyRoute{ProcessorID: "osc"}
	require.NoError(t, d.Submit("osc", New("machine.warp", "machine.warp", nil, route)))

	reply := awaitReply(t, outlet)
	require.Equal(t, "machine.warp.error", reply.Name)
	require.Contains(t, reply.Args[0], "unknown command")
}

func TestDispatchMalformedPath(t *testing.T) {
	d, _ := newTestBus(t, "osc")
	outlet, _ := d.Outlet("osc")

	route := ReplyRoute{ProcessorID: "osc"}
	require.NoError(t, d.Submit("osc", New("machine.get", ":::", []string{":::"}, route)))

	reply := awaitReply(t, outlet)
	require.Equal(t, "machine.get.error", reply.Name)
	require.Contains(t, reply.Args[0], "malformed path")
}

func TestDispatchArityError(t *testing.T) {
	d, _ := newTestBus(t, "serial")
	outlet, _ := d.Outlet("serial")

	route := ReplyRoute{ProcessorID: "serial"}
	require.NoError(t, d.Submit("serial", New("machine.set", "drive.velocity", []string{"drive.velocity"}, route)))

	reply := awaitReply(t, outlet)
	require.Equal(t, "machine.set.error", reply.Name)
	require.Contains(t, reply.Args[0], "invalid number of arguments")
}

// A panicking handler must cost the caller exactly one error reply, not
// the consumer goroutine.
func TestDispatchHandlerPanic(t *testing.T) {
	store := machine.NewStore()
	reg := NewRegistry()
	require.NoError(t, reg.Register("machine.explode", func(machine.Path, []string) ([]string, error) {
		panic("wires crossed")
	}))
	require.NoError(t, reg.Register(machine.AliasPing, machine.PingCommand()))

	d := NewDispatcher(store, reg)
	require.NoError(t, d.AddProcessor("osc"))
	require.NoError(t, d.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Stop(ctx)
	}()

	outlet, _ := d.Outlet("osc")
	route := ReplyRoute{ProcessorID: "osc"}
	require.NoError(t, d.Submit("osc", New("machine.explode", "machine.explode", nil, route)))

	reply := awaitReply(t, outlet)
	require.Equal(t, "machine.explode.error", reply.Name)
	require.Contains(t, reply.Args[0], "internal error")

	// The consumer survived and keeps serving.
	require.NoError(t, d.Submit("osc", New("machine.ping", "machine.ping", nil, route)))
	reply = awaitReply(t, outlet)
	require.Equal(t, "machine.ping.ok", reply.Name)
}

// Replies on one processor's stream keep submission order.
func TestDispatchPerInletOrdering(t *testing.T) {
	d, _ := newTestBus(t, "serial")
	outlet, _ := d.Outlet("serial")

	route := ReplyRoute{ProcessorID: "serial"}
	const n = 10
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("seq.k%d", i)
		require.NoError(t, d.Submit("serial", New("machine.set", key, []string{key, fmt.Sprint(i)}, route)))
	}

	for i := 0; i < n; i++ {
		reply := awaitReply(t, outlet)
		require.Equal(t, "machine.set.ok", reply.Name)
		require.Equal(t, fmt.Sprintf("seq.k%d", i), reply.Args[0])
	}
}

// Concurrent writers on distinct paths via distinct processors lose no
// updates, and each reply lands on its own originating outlet.
func TestDispatchConcurrentProcessors(t *testing.T) {
	ids := []string{"osc", "serial", "events"}
	d, store := newTestBus(t, ids...)

	const perProc = 20
	var wg sync.WaitGroup
	for _, id := range ids {
		outlet, err := d.Outlet(id)
		require.NoError(t, err)

		wg.Add(1)
		go func(id string, outlet <-chan Command) {
			defer wg.Done()
			route := ReplyRoute{ProcessorID: id}
			for i := 0; i < perProc; i++ {
				key := fmt.Sprintf("%s.k%d", id, i)
				if err := d.Submit(id, New("machine.set", key, []string{key, id}, route)); err != nil {
					t.Error(err)
					return
				}
			}
			for i := 0; i < perProc; i++ {
				reply := <-outlet
				if !strings.HasPrefix(reply.Args[0], id+".") {
					t.Errorf("reply for %q leaked onto outlet %q", reply.Args[0], id)
				}
			}
		}(id, outlet)
	}
	wg.Wait()

	for _, id := range ids {
		for i := 0; i < perProc; i++ {
			v, err := store.Get(machine.Path{id, fmt.Sprintf("k%d", i)})
			require.NoError(t, err)
			require.Equal(t, id, v)
		}
	}
}

func TestAddProcessorAfterStart(t *testing.T) {
	d, _ := newTestBus(t, "serial")
	require.ErrorIs(t, d.AddProcessor("late"), ErrAlreadyActive)
}

func TestDuplicateProcessor(t *testing.T) {
	d := NewDispatcher(machine.NewStore(), NewRegistry())
	require.NoError(t, d.AddProcessor("osc"))
	require.ErrorIs(t, d.AddProcessor("osc"), ErrDuplicateProcessor)
}

func TestUnknownProcessorEndpoints(t *testing.T) {
	d := NewDispatcher(machine.NewStore(), NewRegistry())
	_, err := d.Inlet("ghost")
	require.ErrorIs(t, err, ErrUnknownProcessor)
	_, err = d.Outlet("ghost")
	require.ErrorIs(t, err, ErrUnknownProcessor)
	require.ErrorIs(t, d.Submit("ghost", Command{}), ErrUnknownProcessor)
}

// Stop must deliver replies for every command accepted before the inlet
// closed, then close the outlets.
func TestStopDrainsInFlight(t *testing.T) {
	store := machine.NewStore()
	reg := NewRegistry()
	require.NoError(t, reg.Register(machine.AliasSet, machine.SetCommand(store)))

	d := NewDispatcher(store, reg, WithQueueSize(32))
	require.NoError(t, d.AddProcessor("serial"))
	require.NoError(t, d.Start())

	outlet, _ := d.Outlet("serial")
	route := ReplyRoute{ProcessorID: "serial"}
	const n = 16
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("drain.k%d", i)
		require.NoError(t, d.Submit("serial", New("machine.set", key, []string{key, "1"}, route)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	got := 0
	for reply := range outlet {
		require.Equal(t, "machine.set.ok", reply.Name)
		got++
	}
	require.Equal(t, n, got)

	require.ErrorIs(t, d.Stop(ctx), ErrNotActive)
}

// A submit racing shutdown must fail cleanly, never send on a closed
// inlet.
func TestSubmitAfterStop(t *testing.T) {
	d := NewDispatcher(machine.NewStore(), NewRegistry())
	require.NoError(t, d.AddProcessor("serial"))
	require.NoError(t, d.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	route := ReplyRoute{ProcessorID: "serial"}
	err := d.Submit("serial", New("machine.ping", "machine.ping", nil, route))
	require.ErrorIs(t, err, ErrNotActive)
}

// Submits racing Stop from another goroutine either land before the
// inlets close or fail with ErrNotActive; neither outcome may panic.
func TestSubmitDuringStop(t *testing.T) {
	store := machine.NewStore()
	reg := NewRegistry()
	require.NoError(t, reg.Register(machine.AliasSet, machine.SetCommand(store)))

	d := NewDispatcher(store, reg, WithQueueSize(4))
	require.NoError(t, d.AddProcessor("events"))
	require.NoError(t, d.Start())

	outlet, _ := d.Outlet("events")
	delivered := make(chan int, 1)
	go func() {
		n := 0
		for range outlet {
			n++
		}
		delivered <- n
	}()

	route := ReplyRoute{ProcessorID: "events"}
	result := make(chan struct {
		accepted int
		err      error
	}, 1)
	go func() {
		n := 0
		var submitErr error
		for i := 0; i < 200; i++ {
			if err := d.Submit("events", New("machine.set", "race.key", []string{"race.key", "1"}, route)); err != nil {
				submitErr = err
				break
			}
			n++
		}
		result <- struct {
			accepted int
			err      error
		}{n, submitErr}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	r := <-result
	if r.err != nil {
		require.ErrorIs(t, r.err, ErrNotActive)
	}
	require.Equal(t, r.accepted, <-delivered, "every accepted submit must be replied")
}

package osc

import (
	"context"
	"net"
	"testing"
	"time"

	gosc "github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/require"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/machine"
)

// freeUDPPort grabs an ephemeral port for the server under test.
func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())
	return port
}

// newLoopback wires a full bus behind an OSC server and returns a
// client socket pointed at it.
func newLoopback(t *testing.T) *net.UDPConn {
	t.Helper()

	store := machine.NewStore()
	reg := bus.NewRegistry()
	require.NoError(t, reg.Register(machine.AliasSet, machine.SetCommand(store)))
	require.NoError(t, reg.Register(machine.AliasGet, machine.GetCommand(store)))

	d := bus.NewDispatcher(store, reg)
	require.NoError(t, d.AddProcessor(ID))
	inlet, err := d.Inlet(ID)
	require.NoError(t, err)
	outlet, err := d.Outlet(ID)
	require.NoError(t, err)

	srv := NewServer(Config{ListenPort: freeUDPPort(t)}, inlet, outlet)
	require.NoError(t, d.Start())
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
		_ = d.Stop(ctx)
	})

	client, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: srv.cfg.ListenPort})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sendMessage(t *testing.T, client *net.UDPConn, addr string, args ...interface{}) {
	t.Helper()
	msg := gosc.NewMessage(addr)
	for _, a := range args {
		msg.Append(a)
	}
	data, err := msg.MarshalBinary()
	require.NoError(t, err)
	_, err = client.Write(data)
	require.NoError(t, err)
}

func readMessage(t *testing.T, client *net.UDPConn) *gosc.Message {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 65535)
	n, err := client.Read(buf)
	require.NoError(t, err)
	packet, err := gosc.ParsePacket(string(buf[:n]))
	require.NoError(t, err)
	msg, ok := packet.(*gosc.Message)
	require.True(t, ok)
	return msg
}

func TestOscSetGetRoundTrip(t *testing.T) {
	client := newLoopback(t)

	sendMessage(t, client, "/machine/set", "drive.velocity", "12.5")
	reply := readMessage(t, client)
	require.Equal(t, "/machine/set/ok", reply.Address)
	require.Equal(t, []interface{}{"drive.velocity", "12.5"}, reply.Arguments)

	sendMessage(t, client, "/machine/get", "drive.velocity")
	reply = readMessage(t, client)
	require.Equal(t, "/machine/get/ok", reply.Address)
	require.Equal(t, []interface{}{"drive.velocity", "12.5"}, reply.Arguments)
}

func TestOscUnknownKeyError(t *testing.T) {
	client := newLoopback(t)

	sendMessage(t, client, "/machine/get", "drive.unset_key")
	reply := readMessage(t, client)
	require.Equal(t, "/machine/get/error", reply.Address)
	require.Len(t, reply.Arguments, 1)
	require.Contains(t, reply.Arguments[0].(string), "unknown key")
}

func TestOscTypedArgumentsStringified(t *testing.T) {
	client := newLoopback(t)

	sendMessage(t, client, "/machine/set", "drive.torque", int32(80))
	reply := readMessage(t, client)
	require.Equal(t, "/machine/set/ok", reply.Address)
	require.Equal(t, []interface{}{"drive.torque", "80"}, reply.Arguments)
}

// Addresses outside the machine tree are answered on the transport
// without ever reaching the dispatcher.
func TestOscForeignAddressRejected(t *testing.T) {
	client := newLoopback(t)

	sendMessage(t, client, "/debug/dump")
	reply := readMessage(t, client)
	require.Equal(t, "/error", reply.Address)
	require.Contains(t, reply.Arguments[0].(string), "unsupported osc address")
}

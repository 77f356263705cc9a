package osc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	gosc "github.com/hypebeast/go-osc/osc"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/logfields"
)

// ID is the processor identifier registered with the dispatcher.
const ID = "osc"

// Defaults match the deployed operator tooling.
const (
	DefaultListenPort = 6969
	DefaultReplyPort  = 6970
)

// Config holds the transport settings resolved from the [osc] section.
type Config struct {
	ListenPort int
	// ReplyPort overrides the destination port for replies. Zero means
	// answer to the packet's source port.
	ReplyPort int
}

// Server is the UDP/OSC protocol processor. The inbound half decodes
// packets into commands on the dispatcher inlet; the outbound half
// renders replies from the outlet back to the originating address.
type Server struct {
	cfg    Config
	inlet  chan<- bus.Command
	outlet <-chan bus.Command

	conn   *net.UDPConn
	readWG sync.WaitGroup
}

// NewServer builds the processor over its dispatcher channel pair.
func NewServer(cfg Config, inlet chan<- bus.Command, outlet <-chan bus.Command) *Server {
	if cfg.ListenPort == 0 {
		cfg.ListenPort = DefaultListenPort
	}
	return &Server{cfg: cfg, inlet: inlet, outlet: outlet}
}

// ID implements processor.Processor.
func (s *Server) ID() string { return ID }

// Start binds the UDP socket and runs both directions.
func (s *Server) Start(_ context.Context) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: s.cfg.ListenPort})
	if err != nil {
		return fmt.Errorf("osc: listen udp :%d: %w", s.cfg.ListenPort, err)
	}
	s.conn = conn
	slog.Info("OSC processor listening", logfields.Address(conn.LocalAddr().String()))

	s.readWG.Add(1)
	go s.readLoop()
	go s.writeLoop()
	return nil
}

// Stop closes the socket, ending the inbound half. The outbound half
// exits once the dispatcher closes the outlet.
func (s *Server) Stop(_ context.Context) error {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.readWG.Wait()
	return nil
}

func (s *Server) readLoop() {
	defer s.readWG.Done()

	buf := make([]byte, 65535)
	for {
		n, sender, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Error("OSC read failed", logfields.Error(err))
			}
			return
		}

		packet, err := gosc.ParsePacket(string(buf[:n]))
		if err != nil {
			// No address to answer a frame we cannot even parse.
			slog.Warn("Dropping unparseable OSC packet",
				logfields.Address(sender.String()),
				logfields.Error(err))
			continue
		}
		s.handlePacket(packet, sender)
	}
}

func (s *Server) handlePacket(packet gosc.Packet, sender *net.UDPAddr) {
	switch p := packet.(type) {
	case *gosc.Message:
		s.handleMessage(p, sender)
	case *gosc.Bundle:
		for _, msg := range p.Messages {
			s.handleMessage(msg, sender)
		}
	}
}

// handleMessage translates one OSC message into a command. Messages
// with addresses outside the machine tree are answered immediately on
// the transport and never enqueued.
func (s *Server) handleMessage(msg *gosc.Message, sender *net.UDPAddr) {
	replyAddr := s.replyAddress(sender)

	alias, err := AliasFromAddress(msg.Address)
	if err != nil {
		slog.Warn("Rejecting OSC message",
			logfields.Address(sender.String()),
			logfields.Error(err))
		s.send(replyAddr, gosc.NewMessage("/error", err.Error()))
		return
	}

	args := StringifyArguments(msg.Arguments)
	target := alias
	if len(args) > 0 {
		target = args[0]
	}

	cmd := bus.New(alias, target, args, bus.ReplyRoute{
		ProcessorID: ID,
		Address:     replyAddr,
	})
	slog.Debug("OSC command received",
		logfields.CommandID(cmd.ID),
		logfields.Command(alias),
		logfields.Address(replyAddr))
	s.inlet <- cmd
}

func (s *Server) writeLoop() {
	for reply := range s.outlet {
		s.send(reply.Route.Address, ReplyMessage(reply.Name, reply.Args))
	}
	slog.Debug("OSC outbound loop stopped")
}

func (s *Server) send(addr string, msg *gosc.Message) {
	dst, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		slog.Error("Bad OSC reply address", logfields.Address(addr), logfields.Error(err))
		return
	}
	data, err := msg.MarshalBinary()
	if err != nil {
		slog.Error("OSC encode failed", logfields.Error(err))
		return
	}
	if _, err := s.conn.WriteToUDP(data, dst); err != nil {
		slog.Error("OSC send failed", logfields.Address(addr), logfields.Error(err))
	}
}

// replyAddress picks the destination for replies: the sender host, on
// the configured reply port when set.
func (s *Server) replyAddress(sender *net.UDPAddr) string {
	port := sender.Port
	if s.cfg.ReplyPort != 0 {
		port = s.cfg.ReplyPort
	}
	return net.JoinHostPort(sender.IP.String(), strconv.Itoa(port))
}

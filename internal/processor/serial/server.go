package serial

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	bugst "go.bug.st/serial"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/logfields"
)

// ID is the processor identifier registered with the dispatcher.
const ID = "serial"

// DefaultBaudRate matches the cape's UART wiring.
const DefaultBaudRate = 115200

// Config holds the transport settings resolved from the [serial]
// section.
type Config struct {
	Device   string
	BaudRate int
	// SerialNumber prefixes outbound frames when set.
	SerialNumber string
}

// Server is the serial protocol processor. It reads CRLF-delimited
// frames from the port, submits them as commands, and renders replies
// from its outlet back onto the port.
type Server struct {
	cfg    Config
	port   io.ReadWriteCloser
	inlet  chan<- bus.Command
	outlet <-chan bus.Command

	writeMu sync.Mutex
	readWG  sync.WaitGroup
}

// NewServer builds the processor over an already-open port. Tests
// inject an in-memory pipe here.
func NewServer(cfg Config, port io.ReadWriteCloser, inlet chan<- bus.Command, outlet <-chan bus.Command) *Server {
	return &Server{cfg: cfg, port: port, inlet: inlet, outlet: outlet}
}

// Open opens the configured UART and builds the processor on it.
func Open(cfg Config, inlet chan<- bus.Command, outlet <-chan bus.Command) (*Server, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	port, err := bugst.Open(cfg.Device, &bugst.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	return NewServer(cfg, port, inlet, outlet), nil
}

// ID implements processor.Processor.
func (s *Server) ID() string { return ID }

// Start runs both directions.
func (s *Server) Start(_ context.Context) error {
	slog.Info("Serial processor started", logfields.Device(s.cfg.Device))
	s.readWG.Add(1)
	go s.readLoop()
	go s.writeLoop()
	return nil
}

// Stop closes the port, ending the inbound half. The outbound half
// exits once the dispatcher closes the outlet.
func (s *Server) Stop(_ context.Context) error {
	_ = s.port.Close()
	s.readWG.Wait()
	return nil
}

func (s *Server) readLoop() {
	defer s.readWG.Done()

	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		frame, err := ParseFrame(scanner.Text())
		if err != nil {
			// Not even a command name to address an error reply to;
			// answer on the wire directly, never enqueue.
			s.write(RenderFrame(s.cfg.SerialNumber, "error", []string{err.Error()}))
			continue
		}

		target := frame.Command
		if len(frame.Args) > 0 {
			target = frame.Args[0]
		}
		cmd := bus.New(frame.Command, target, frame.Args, bus.ReplyRoute{
			ProcessorID: ID,
			Address:     s.cfg.Device,
		})
		slog.Debug("Serial command received",
			logfields.CommandID(cmd.ID),
			logfields.Command(frame.Command))
		s.inlet <- cmd
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("Serial read loop ended", logfields.Error(err))
	}
}

func (s *Server) writeLoop() {
	for reply := range s.outlet {
		s.write(RenderFrame(s.cfg.SerialNumber, reply.Name, reply.Args))
	}
	slog.Debug("Serial outbound loop stopped")
}

func (s *Server) write(line string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.port.Write([]byte(line)); err != nil {
		slog.Error("Serial write failed", logfields.Error(err))
	}
}

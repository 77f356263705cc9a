// Package events drains the internal-events outlet: every trigger
// outcome is logged and, when configured, exported as a JSON record
// over NATS.
package events

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/logfields"
	"github.com/armazcape/armazd/internal/metrics"
)

// ProcessorID is the dispatcher endpoint for hardware-generated
// triggers. Watchers submit to its inlet; the sink drains its outlet.
const ProcessorID = "events"

// DefaultSubjectPrefix namespaces exported records.
const DefaultSubjectPrefix = "armazd.events"

// Config holds the [events] section settings.
type Config struct {
	// NATSURL enables export when non-empty.
	NATSURL       string
	SubjectPrefix string
}

// Record is one exported trigger outcome.
type Record struct {
	Trigger    string    `json:"trigger"`
	Result     string    `json:"result"`
	Args       []string  `json:"args,omitempty"`
	Diagnostic string    `json:"diagnostic,omitempty"`
	Time       time.Time `json:"time"`
}

// Sink consumes trigger replies until the dispatcher closes the outlet.
type Sink struct {
	cfg      Config
	outlet   <-chan bus.Command
	conn     *nats.Conn
	recorder metrics.Recorder
	wg       sync.WaitGroup
}

// NewSink builds the sink. A NATS connection failure degrades to
// log-only operation; trigger handling never depends on the broker.
func NewSink(cfg Config, outlet <-chan bus.Command, rec metrics.Recorder) *Sink {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	s := &Sink{cfg: cfg, outlet: outlet, recorder: rec}

	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1))
		if err != nil {
			slog.Error("NATS connect failed, event export disabled",
				logfields.Address(cfg.NATSURL),
				logfields.Error(err))
		} else {
			s.conn = conn
			slog.Info("Event export enabled",
				logfields.Address(cfg.NATSURL),
				logfields.Subject(cfg.SubjectPrefix))
		}
	}
	return s
}

// Start begins draining in the background.
func (s *Sink) Start() {
	s.wg.Add(1)
	go s.drain()
}

// Wait blocks until the outlet has been fully drained, then releases
// the broker connection.
func (s *Sink) Wait() {
	s.wg.Wait()
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Sink) drain() {
	defer s.wg.Done()

	for reply := range s.outlet {
		trigger := TriggerName(reply.Name)
		rec := Record{
			Trigger: trigger,
			Result:  "ok",
			Args:    reply.Args,
			Time:    time.Now().UTC(),
		}
		if reply.IsError() {
			rec.Result = "error"
			rec.Args = nil
			if len(reply.Args) > 0 {
				rec.Diagnostic = reply.Args[0]
			}
			slog.Warn("Trigger failed",
				logfields.Trigger(trigger),
				slog.String("diagnostic", rec.Diagnostic))
		} else {
			slog.Info("Trigger handled",
				logfields.Trigger(trigger),
				logfields.Args(reply.Args))
		}
		s.publish(rec)
	}
	slog.Debug("Event sink stopped")
}

func (s *Sink) publish(rec Record) {
	if s.conn == nil {
		return
	}
	subject := s.cfg.SubjectPrefix + "." + rec.Trigger
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("Event record encode failed", logfields.Error(err))
		return
	}
	if err := s.conn.Publish(subject, data); err != nil {
		slog.Error("Event publish failed",
			logfields.Subject(subject),
			logfields.Error(err))
		return
	}
	s.recorder.IncEventPublished(subject)
}

// TriggerName strips the reply markers off a reply command name,
// recovering the trigger alias.
func TriggerName(replyName string) string {
	name := strings.TrimSuffix(replyName, bus.OkSuffix)
	return strings.TrimSuffix(name, bus.ErrorSuffix)
}

package daemon

import (
	"fmt"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/events"
	"github.com/armazcape/armazd/internal/processor"
	"github.com/armazcape/armazd/internal/processor/osc"
	"github.com/armazcape/armazd/internal/processor/serial"
)

const defaultSerialDevice = "/dev/ttyO1"

// configureProcessors binds the enabled protocol transports to the bus.
// Each transport is an independent dispatcher endpoint; disabling one in
// configuration leaves the others untouched.
func (d *Daemon) configureProcessors() error {
	if !d.cfg.GetBool("osc", "disable", false) {
		inlet, outlet, err := d.bindEndpoint(osc.ID)
		if err != nil {
			return err
		}
		d.processors = append(d.processors, osc.NewServer(osc.Config{
			ListenPort: d.cfg.GetInt("osc", "listen_port", osc.DefaultListenPort),
			ReplyPort:  d.cfg.GetInt("osc", "reply_port", osc.DefaultReplyPort),
		}, inlet, outlet))
	}

	if !d.cfg.GetBool("serial", "disable", false) {
		inlet, outlet, err := d.bindEndpoint(serial.ID)
		if err != nil {
			return err
		}
		srv, err := serial.Open(serial.Config{
			Device:       d.cfg.Get("serial", "device", defaultSerialDevice),
			BaudRate:     d.cfg.GetInt("serial", "baudrate", serial.DefaultBaudRate),
			SerialNumber: d.cfg.Get("machine", "serialnumber", ""),
		}, inlet, outlet)
		if err != nil {
			return err
		}
		d.processors = append(d.processors, srv)
	}

	return nil
}

// bindEndpoint registers a processor identifier on the dispatcher and
// returns its channel pair.
func (d *Daemon) bindEndpoint(id string) (chan<- bus.Command, <-chan bus.Command, error) {
	if err := d.dispatcher.AddProcessor(id); err != nil {
		return nil, nil, fmt.Errorf("bind %s: %w", id, err)
	}
	inlet, err := d.dispatcher.Inlet(id)
	if err != nil {
		return nil, nil, err
	}
	outlet, err := d.dispatcher.Outlet(id)
	if err != nil {
		return nil, nil, err
	}
	return inlet, outlet, nil
}

// eventInletID names the dispatcher endpoint the watchers submit to.
func (d *Daemon) eventInletID() string { return events.ProcessorID }

// Processors lists the bound transports, for tests and diagnostics.
func (d *Daemon) Processors() []processor.Processor { return d.processors }

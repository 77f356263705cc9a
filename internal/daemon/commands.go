package daemon

import (
	"errors"

	"github.com/armazcape/armazd/internal/bus"
	"github.com/armazcape/armazd/internal/machine"
)

// registerCommands installs the stable machine.* surface plus the
// trigger aliases the watchers submit.
func (d *Daemon) registerCommands() error {
	handlers := map[string]bus.Handler{
		machine.AliasSet:     machine.SetCommand(d.store),
		machine.AliasGet:     machine.GetCommand(d.store),
		machine.AliasPing:    machine.PingCommand(),
		machine.AliasVersion: machine.VersionCommand(d.store),

		machine.TriggerTemperatureExceeded: machine.RecordTrigger(machine.TriggerTemperatureExceeded, d.store),
		machine.TriggerConfigChanged:       machine.RecordTrigger(machine.TriggerConfigChanged, d.store),
	}
	for alias, h := range handlers {
		if err := d.registry.Register(alias, h); err != nil {
			return err
		}
	}
	return nil
}

// registerTriggerAlias installs a RecordTrigger handler for a
// configured switch function. Two switches may share one function, so
// an already-registered alias is not an error.
func (d *Daemon) registerTriggerAlias(alias string) error {
	err := d.registry.Register(alias, machine.RecordTrigger(alias, d.store))
	var dup bus.DuplicateAliasError
	if errors.As(err, &dup) {
		return nil
	}
	return err
}

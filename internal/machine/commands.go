package machine

import "fmt"

// Stable command alias surface. Renaming any of these breaks deployed
// operator tooling.
const (
	AliasSet     = "machine.set"
	AliasGet     = "machine.get"
	AliasPing    = "machine.ping"
	AliasVersion = "machine.version"

	// Trigger aliases submitted by hardware watchers, never by operators.
	TriggerTemperatureExceeded = "machine.temperature_exceeded"
	TriggerConfigChanged       = "machine.config_changed"
)

// ArityError reports an argument count mismatch for a command alias.
type ArityError struct {
	Alias string
	Want  int
	Got   int
}

func (e ArityError) Error() string {
	return fmt.Sprintf("invalid number of arguments for %s: want %d, got %d", e.Alias, e.Want, e.Got)
}

// SetCommand returns the machine.set handler: writes args[1] at the
// target path and echoes (key, value) back to the caller.
func SetCommand(store *Store) func(Path, []string) ([]string, error) {
	return func(target Path, args []string) ([]string, error) {
		if len(args) != 2 {
			return nil, ArityError{Alias: AliasSet, Want: 2, Got: len(args)}
		}
		store.Set(target, args[1])
		return []string{args[0], args[1]}, nil
	}
}

// GetCommand returns the machine.get handler: reads the target path and
// echoes (key, value). A path never written yields UnknownKeyError.
func GetCommand(store *Store) func(Path, []string) ([]string, error) {
	return func(target Path, args []string) ([]string, error) {
		if len(args) != 1 {
			return nil, ArityError{Alias: AliasGet, Want: 1, Got: len(args)}
		}
		v, err := store.Get(target)
		if err != nil {
			return nil, err
		}
		return []string{args[0], v}, nil
	}
}

// PingCommand returns the machine.ping handler. No arguments, no store
// access; the reply is the liveness signal.
func PingCommand() func(Path, []string) ([]string, error) {
	return func(_ Path, args []string) ([]string, error) {
		if len(args) != 0 {
			return nil, ArityError{Alias: AliasPing, Want: 0, Got: len(args)}
		}
		return nil, nil
	}
}

// VersionCommand returns the machine.version handler, replying with the
// daemon version seeded into the store at startup.
func VersionCommand(store *Store) func(Path, []string) ([]string, error) {
	return func(_ Path, args []string) ([]string, error) {
		if len(args) != 0 {
			return nil, ArityError{Alias: AliasVersion, Want: 0, Got: len(args)}
		}
		v, err := store.Get(Path{"machine", "version"})
		if err != nil {
			return nil, err
		}
		return []string{v}, nil
	}
}

// RecordTrigger returns the handler shared by all watcher trigger
// aliases: records args[1] (the new state or sample) at the target path
// under (source, value) arguments, so trigger history is observable via
// machine.get.
func RecordTrigger(alias string, store *Store) func(Path, []string) ([]string, error) {
	return func(target Path, args []string) ([]string, error) {
		if len(args) != 2 {
			return nil, ArityError{Alias: alias, Want: 2, Got: len(args)}
		}
		store.Set(target, args[1])
		return []string{args[0], args[1]}, nil
	}
}

package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyProcessor  = "processor"
	KeyCommand    = "command"
	KeyCommandID  = "command_id"
	KeyUID        = "uid"
	KeyPath       = "path"
	KeyArgs       = "args"
	KeyWatcher    = "watcher"
	KeyTrigger    = "trigger"
	KeyDurationMS = "duration_ms"
	KeyAddress    = "address"
	KeyDevice     = "device"
	KeyInterface  = "interface"
	KeySubject    = "subject"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Processor(id string) slog.Attr    { return slog.String(KeyProcessor, id) }
func Command(name string) slog.Attr    { return slog.String(KeyCommand, name) }
func CommandID(id string) slog.Attr    { return slog.String(KeyCommandID, id) }
func UID(uid string) slog.Attr         { return slog.String(KeyUID, uid) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Args(a []string) slog.Attr        { return slog.Any(KeyArgs, a) }
func Watcher(name string) slog.Attr    { return slog.String(KeyWatcher, name) }
func Trigger(name string) slog.Attr    { return slog.String(KeyTrigger, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Address(addr string) slog.Attr    { return slog.String(KeyAddress, addr) }
func Device(dev string) slog.Attr      { return slog.String(KeyDevice, dev) }
func Interface(iface string) slog.Attr { return slog.String(KeyInterface, iface) }
func Subject(s string) slog.Attr       { return slog.String(KeySubject, s) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

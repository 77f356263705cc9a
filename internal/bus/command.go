// Package bus implements the protocol-agnostic command dispatch bus:
// normalized commands, the alias registry and the per-processor
// inlet/outlet dispatcher.
package bus

import (
	"strings"

	"github.com/google/uuid"
)

// Reply name markers appended to the originating alias.
const (
	OkSuffix    = ".ok"
	ErrorSuffix = ".error"
)

// ReplyRoute identifies where a reply must be delivered: the processor
// that created the command and the transport address it arrived from.
// The dispatcher only ever looks at ProcessorID; Address is opaque and
// interpreted by the processor's outbound half.
type ReplyRoute struct {
	ProcessorID string
	Address     string
}

// Command is the protocol-independent representation of one request,
// reply or hardware trigger. Arguments are stringly typed at the bus
// boundary; handlers perform their own coercion.
type Command struct {
	// ID is a per-command uuid used only for log correlation.
	ID string
	// Name is the command alias, e.g. "machine.set". Replies carry the
	// alias suffixed with ".ok" or ".error".
	Name string
	// Target is the raw key being addressed, in either dotted or colon
	// delimited form. The dispatcher canonicalizes it before lookup.
	Target string
	// Args are the positional arguments.
	Args []string
	// Route addresses the reply back to the originating transport.
	Route ReplyRoute
}

// New builds a command with a fresh correlation ID.
func New(name, target string, args []string, route ReplyRoute) Command {
	return Command{
		ID:     uuid.NewString(),
		Name:   name,
		Target: target,
		Args:   args,
		Route:  route,
	}
}

// UID derives the exchange key used to match a reply to its request:
// the alias with the first ok/error marker stripped, joined with the
// first argument. Ping-style commands correlate on the alias alone.
// The derivation is a wire-compatibility convention; do not tidy it.
func (c Command) UID() string {
	clean := strings.Replace(c.Name, OkSuffix, "", 1)
	clean = strings.Replace(clean, ErrorSuffix, "", 1)
	if strings.Contains(clean, "ping") || len(c.Args) == 0 {
		return clean
	}
	return clean + " " + c.Args[0]
}

// Ok builds the success reply for this command, echoing the reply
// arguments produced by the handler.
func (c Command) Ok(args ...string) Command {
	return Command{
		ID:     c.ID,
		Name:   c.Name + OkSuffix,
		Target: c.Target,
		Args:   args,
		Route:  c.Route,
	}
}

// Error builds the failure reply, carrying a human-readable diagnostic
// as the sole argument.
func (c Command) Error(err error) Command {
	return Command{
		ID:     c.ID,
		Name:   c.Name + ErrorSuffix,
		Target: c.Target,
		Args:   []string{err.Error()},
		Route:  c.Route,
	}
}

// IsOk reports whether the command is a success reply.
func (c Command) IsOk() bool {
	return strings.HasSuffix(c.Name, OkSuffix)
}

// IsError reports whether the command is an error reply.
func (c Command) IsError() bool {
	return strings.HasSuffix(c.Name, ErrorSuffix)
}

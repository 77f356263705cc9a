// Package serial adapts the line-oriented serial transport to the
// command bus.
package serial

import (
	"fmt"
	"strings"
)

// Wire framing: CRLF-terminated lines of colon-separated fields.
// Inbound:  command[:arg]...
// Outbound: [serial#:]command[:arg]...
// Keys travel dotted on this transport, which keeps ':' unambiguous.
const (
	FieldSep   = ":"
	Terminator = "\r\n"
)

// Frame is one parsed inbound line.
type Frame struct {
	Command string
	Args    []string
}

// ParseFrame splits a line (terminator already stripped) into command
// and arguments.
func ParseFrame(line string) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Frame{}, fmt.Errorf("empty serial frame")
	}
	fields := strings.Split(line, FieldSep)
	f := Frame{Command: fields[0]}
	if len(fields) > 1 {
		f.Args = fields[1:]
	}
	return f, nil
}

// RenderFrame builds the outbound line for a reply. The serial number
// field is omitted when the cape has none configured.
func RenderFrame(serialNumber, command string, args []string) string {
	fields := make([]string, 0, len(args)+2)
	if serialNumber != "" {
		fields = append(fields, serialNumber)
	}
	fields = append(fields, command)
	fields = append(fields, args...)
	return strings.Join(fields, FieldSep) + Terminator
}

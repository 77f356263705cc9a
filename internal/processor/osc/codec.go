// Package osc adapts the UDP addressed-message (OSC) transport to the
// command bus.
package osc

import (
	"fmt"
	"strconv"
	"strings"

	gosc "github.com/hypebeast/go-osc/osc"
)

// AliasFromAddress maps an OSC address to a command alias:
// /machine/set -> machine.set. Addresses outside the machine tree are
// rejected before anything reaches the dispatcher.
func AliasFromAddress(address string) (string, error) {
	alias := strings.ReplaceAll(strings.Trim(address, "/"), "/", ".")
	if alias == "" {
		return "", fmt.Errorf("empty osc address")
	}
	if alias != "machine" && !strings.HasPrefix(alias, "machine.") {
		return "", fmt.Errorf("unsupported osc address %q", address)
	}
	return alias, nil
}

// AddressFromAlias is the inverse mapping used for replies:
// machine.set.ok -> /machine/set/ok.
func AddressFromAlias(alias string) string {
	return "/" + strings.ReplaceAll(alias, ".", "/")
}

// StringifyArguments flattens typed OSC arguments into the bus's
// stringly-typed form. Handlers own any further coercion.
func StringifyArguments(args []interface{}) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case nil:
			out = append(out, "")
		case string:
			out = append(out, v)
		case bool:
			out = append(out, strconv.FormatBool(v))
		case int32:
			out = append(out, strconv.FormatInt(int64(v), 10))
		case int64:
			out = append(out, strconv.FormatInt(v, 10))
		case float32:
			out = append(out, strconv.FormatFloat(float64(v), 'f', -1, 32))
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

// ReplyMessage renders a reply command as an OSC message. Reply
// arguments stay strings on the wire.
func ReplyMessage(name string, args []string) *gosc.Message {
	msg := gosc.NewMessage(AddressFromAlias(name))
	for _, a := range args {
		msg.Append(a)
	}
	return msg
}

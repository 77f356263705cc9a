package bus

import (
	"errors"
	"fmt"
)

// UnknownCommandError reports a command name with no registered handler.
// It becomes an error reply to the caller, never a crash.
type UnknownCommandError struct {
	Name string
}

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// DuplicateAliasError reports a second registration of the same alias.
// Registration happens at startup only, so this is a configuration bug
// and fatal by policy.
type DuplicateAliasError struct {
	Alias string
}

func (e DuplicateAliasError) Error() string {
	return fmt.Sprintf("alias %q already registered", e.Alias)
}

// Dispatcher lifecycle errors.
var (
	ErrAlreadyActive      = errors.New("dispatcher already active")
	ErrNotActive          = errors.New("dispatcher not active")
	ErrDuplicateProcessor = errors.New("processor already registered")
	ErrUnknownProcessor   = errors.New("unknown processor")
)

package registry

import (
	"errors"
	"fmt"
)

// ErrRegistryFrozen is returned by Register once the registry has been
// installed as the application's invocation target.
var ErrRegistryFrozen = errors.New("registry is frozen: commands can only be registered during bootstrap")

// DuplicateCommandError indicates a second registration under an existing name.
type DuplicateCommandError struct {
	Name string
}

func (e *DuplicateCommandError) Error() string {
	return fmt.Sprintf("command '%s' already registered", e.Name)
}

// InvalidCommandError indicates a handler whose shape the registry cannot call.
type InvalidCommandError struct {
	Name   string
	Reason string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command '%s': %s", e.Name, e.Reason)
}

// UnknownCommandError indicates an invocation of a name nobody registered.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command '%s'", e.Name)
}

// ArgumentDecodeError indicates the invocation payload does not fit the
// handler's input shape.
type ArgumentDecodeError struct {
	Command string
	Err     error
}

func (e *ArgumentDecodeError) Error() string {
	return fmt.Sprintf("invalid arguments for command '%s': %v", e.Command, e.Err)
}

func (e *ArgumentDecodeError) Unwrap() error {
	return e.Err
}

// CommandError wraps a failure raised by a handler, including a recovered panic.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command '%s' failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Error kinds as reported to the UI layer.
const (
	KindUnknownCommand = "unknown_command"
	KindArgumentDecode = "argument_decode"
	KindCommandFailed  = "command_failed"
	KindInternal       = "internal"
)

// Kind classifies an invocation error for the wire.
func Kind(err error) string {
	var (
		unknown *UnknownCommandError
		decode  *ArgumentDecodeError
		failed  *CommandError
	)
	switch {
	case errors.As(err, &unknown):
		return KindUnknownCommand
	case errors.As(err, &decode):
		return KindArgumentDecode
	case errors.As(err, &failed):
		return KindCommandFailed
	default:
		return KindInternal
	}
}

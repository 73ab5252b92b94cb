package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vk/deskshell/internal/ctxlog"
)

// Invoke runs the command registered under name with the given JSON
// arguments and returns its JSON-encoded result.
//
// Every failure is local to this call: an unknown name, a payload that does
// not fit the handler input, an error returned by the handler, or a panic
// inside it all come back as errors and never affect other invocations.
func (r *Registry) Invoke(ctx context.Context, name string, args []byte) (result json.RawMessage, err error) {
	logger := ctxlog.FromContext(ctx).With("command", name)

	cmd, ok := r.lookup(name)
	if !ok {
		logger.Warn("Invocation of unknown command.")
		return nil, &UnknownCommandError{Name: name}
	}

	callArgs := []reflect.Value{reflect.ValueOf(ctx)}
	if cmd.inputType != nil {
		input := cmd.NewInput()
		if err := decodeArgs(args, cmd.inputType, input); err != nil {
			logger.Debug("Argument decoding failed.", "error", err)
			return nil, &ArgumentDecodeError{Command: name, Err: err}
		}
		callArgs = append(callArgs, reflect.ValueOf(input))
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Command handler panicked.", "panic", rec)
			result = nil
			err = &CommandError{Command: name, Err: fmt.Errorf("handler panicked: %v", rec)}
		}
	}()

	logger.Debug("Calling command handler.")
	results := cmd.fn.Call(callArgs)

	if errResult := results[len(results)-1].Interface(); errResult != nil {
		return nil, &CommandError{Command: name, Err: errResult.(error)}
	}
	if !cmd.hasOutput {
		return nullJSON, nil
	}

	encoded, err := encodeResult(results[0].Interface())
	if err != nil {
		return nil, fmt.Errorf("command '%s': failed to encode result: %w", name, err)
	}
	logger.Debug("Command handler finished.")
	return encoded, nil
}

package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// compile performs a strict check of the handler signature against the
// declared input, and caches the reflected function for Invoke.
func (c *RegisteredCommand) compile(name string) error {
	if c == nil || c.Fn == nil {
		return &InvalidCommandError{Name: name, Reason: "handler function is nil"}
	}

	fn := reflect.ValueOf(c.Fn)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return &InvalidCommandError{Name: name, Reason: fmt.Sprintf("handler must be a function, got %s", ft)}
	}
	if ft.IsVariadic() {
		return &InvalidCommandError{Name: name, Reason: "handler must not be variadic"}
	}

	if ft.NumIn() < 1 || ft.NumIn() > 2 || ft.In(0) != contextType {
		return &InvalidCommandError{Name: name, Reason: fmt.Sprintf("handler must take (context.Context) or (context.Context, *Input), got %s", ft)}
	}

	switch ft.NumOut() {
	case 1:
		if ft.Out(0) != errorType {
			return &InvalidCommandError{Name: name, Reason: "single-result handler must return error"}
		}
		c.hasOutput = false
	case 2:
		if ft.Out(1) != errorType {
			return &InvalidCommandError{Name: name, Reason: "second result must be error"}
		}
		c.hasOutput = true
	default:
		return &InvalidCommandError{Name: name, Reason: fmt.Sprintf("handler must return (Out, error) or error, got %s", ft)}
	}

	if ft.NumIn() == 1 {
		if c.NewInput != nil {
			return &InvalidCommandError{Name: name, Reason: "NewInput is set but the handler takes no input"}
		}
		c.fn = fn
		c.inputType = nil
		return nil
	}

	if c.NewInput == nil {
		return &InvalidCommandError{Name: name, Reason: "handler takes an input but NewInput is nil"}
	}
	argType := ft.In(1)
	if argType.Kind() != reflect.Ptr || argType.Elem().Kind() != reflect.Struct {
		return &InvalidCommandError{Name: name, Reason: fmt.Sprintf("handler input must be a pointer to a struct, got %s", argType)}
	}
	sample := c.NewInput()
	if reflect.TypeOf(sample) != argType {
		return &InvalidCommandError{Name: name, Reason: fmt.Sprintf("NewInput returns %T but the handler expects %s", sample, argType)}
	}

	// The input struct must map cleanly onto a cty object type, otherwise
	// no payload could ever decode into it.
	if _, err := gocty.ImpliedType(reflect.Zero(argType.Elem()).Interface()); err != nil {
		return &InvalidCommandError{Name: name, Reason: fmt.Sprintf("could not imply cty type from input %s: %v", argType.Elem(), err)}
	}

	c.fn = fn
	c.inputType = argType.Elem()
	return nil
}

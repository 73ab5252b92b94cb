package registry

import (
	"reflect"
)

// RegisteredCommand holds the compiled Go parts of a command.
//
// Fn must be one of:
//
//	func(context.Context, *In) (Out, error)
//	func(context.Context) (Out, error)
//	func(context.Context, *In) error
//	func(context.Context) error
//
// NewInput returns a fresh *In for every invocation and is required exactly
// when Fn takes an input.
type RegisteredCommand struct {
	NewInput func() any
	Fn       any

	fn        reflect.Value
	inputType reflect.Type
	hasOutput bool
}

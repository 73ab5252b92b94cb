package greet

import (
	"context"
	"fmt"

	"github.com/vk/deskshell/internal/ctxlog"
	"github.com/vk/deskshell/internal/registry"
)

// CommandName is the name the frontend invokes.
const CommandName = "greet"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the greet command.
type Input struct {
	Name string `cty:"name"`
}

// Greet formats the greeting. It accepts any name, including the empty one.
func Greet(ctx context.Context, input *Input) (string, error) {
	ctxlog.FromContext(ctx).Debug("Greeting.", "name", input.Name)
	return fmt.Sprintf("Hello, %s! You've been greeted from Rust!", input.Name), nil
}

// Register registers the handler with the registry.
func (m *Module) Register(r registry.Registrar) error {
	return r.Register(CommandName, &registry.RegisteredCommand{
		NewInput: func() any { return new(Input) },
		Fn:       Greet,
	})
}

// Package plugin defines the contract for native capabilities that are
// compiled into the application and attached during bootstrap.
package plugin

import (
	"context"

	"github.com/vk/deskshell/internal/registry"
)

// Plugin is a native capability attached to the application at startup.
//
// Init runs during the AttachPlugins step; an error aborts bootstrap. After
// every plugin initialised, Register is called with a registrar scoped to
// "plugin:<Name()>|" so plugin commands never collide with app commands.
type Plugin interface {
	Name() string
	Init(ctx context.Context) error
	registry.Module
}

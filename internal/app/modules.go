package app

import (
	"github.com/vk/deskshell/internal/plugin"
	"github.com/vk/deskshell/internal/registry"
	"github.com/vk/deskshell/modules/greet"
	"github.com/vk/deskshell/modules/opener"
)

// CoreModules is the definitive list of command modules compiled into the
// deskshell binary.
var CoreModules = []registry.Module{
	&greet.Module{},
}

// CorePlugins returns fresh instances of the plugins compiled into the
// deskshell binary.
func CorePlugins() []plugin.Plugin {
	return []plugin.Plugin{
		opener.New(),
	}
}

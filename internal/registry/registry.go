package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/deskshell/internal/ctxlog"
)

// Registrar is the write side of the registry handed to modules.
type Registrar interface {
	Register(name string, cmd *RegisteredCommand) error
}

// Module is the interface that all command modules must implement to be registered.
type Module interface {
	Register(r Registrar) error
}

// Registry holds all the registered commands for a single application instance.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*RegisteredCommand
	frozen   bool
	logger   *slog.Logger
}

// New creates and initializes a new Registry instance.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		commands: make(map[string]*RegisteredCommand),
		logger:   logger,
	}
}

// Register adds a command under name. The handler shape is checked here so
// that a broken handler fails startup instead of the first invocation.
func (r *Registry) Register(name string, cmd *RegisteredCommand) error {
	if name == "" {
		return &InvalidCommandError{Name: name, Reason: "command name is empty"}
	}
	if err := cmd.compile(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, exists := r.commands[name]; exists {
		return &DuplicateCommandError{Name: name}
	}
	r.logger.Debug("Registering command.", "name", name)
	r.commands[name] = cmd
	return nil
}

// RegisterModules registers every module in order, stopping at the first failure.
func (r *Registry) RegisterModules(ctx context.Context, modules ...Module) error {
	logger := ctxlog.FromContext(ctx)
	for _, mod := range modules {
		if err := mod.Register(r); err != nil {
			return err
		}
	}
	logger.Debug("All command modules registered.", "modules", len(modules), "commands", r.Len())
	return nil
}

// Freeze closes the registry for registration. Invocations are unaffected.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Commands returns the registered command names in sorted order.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (*RegisteredCommand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Scoped returns a Registrar that registers every command under prefix+name.
func (r *Registry) Scoped(prefix string) Registrar {
	return &scoped{prefix: prefix, parent: r}
}

type scoped struct {
	prefix string
	parent Registrar
}

func (s *scoped) Register(name string, cmd *RegisteredCommand) error {
	return s.parent.Register(s.prefix+name, cmd)
}

// PluginScope is the command prefix used for a plugin's commands.
func PluginScope(plugin string) string {
	return "plugin:" + plugin + "|"
}

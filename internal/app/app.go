package app

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/vk/deskshell/internal/buildmode"
	"github.com/vk/deskshell/internal/config"
	"github.com/vk/deskshell/internal/ctxlog"
	"github.com/vk/deskshell/internal/plugin"
	"github.com/vk/deskshell/internal/registry"
)

// App is the process-wide application context. It is created once by
// NewBuilder and passed explicitly to everything that needs it.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	config   *config.Model
	profile  buildmode.Profile
	registry *registry.Registry
	plugins  []plugin.Plugin

	mu      sync.RWMutex
	windows map[string]Window
	order   []string
}

func newApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")
	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctxlog.WithLogger(context.Background(), logger),
		config:   cfg.Model,
		profile:  cfg.Profile,
		registry: registry.New(logger),
		windows:  make(map[string]Window),
	}
}

// Registry returns the application's command registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Model {
	return a.config
}

// Profile returns the build profile the application bootstrapped with.
func (a *App) Profile() buildmode.Profile {
	return a.profile
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Plugins returns the attached plugins in attach order.
func (a *App) Plugins() []plugin.Plugin {
	return append([]plugin.Plugin(nil), a.plugins...)
}

// Window looks up an open window by label.
func (a *App) Window(label string) (Window, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	w, ok := a.windows[label]
	return w, ok
}

// Windows returns the open windows in creation order.
func (a *App) Windows() []Window {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Window, 0, len(a.order))
	for _, label := range a.order {
		out = append(out, a.windows[label])
	}
	return out
}

// WindowClosed implements Observer.
func (a *App) WindowClosed(label string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.windows[label]; !ok {
		return
	}
	delete(a.windows, label)
	for i, l := range a.order {
		if l == label {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	a.logger.Debug("Window removed from application.", "label", label)
}

func (a *App) addWindow(w Window) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.windows[w.Label()]; !exists {
		a.order = append(a.order, w.Label())
	}
	a.windows[w.Label()] = w
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/vk/deskshell/internal/bridge"
	"github.com/vk/deskshell/internal/buildmode"
	"github.com/vk/deskshell/internal/ctxlog"
	"github.com/vk/deskshell/internal/dispatch"
	"github.com/vk/deskshell/internal/plugin"
	"github.com/vk/deskshell/internal/registry"
)

const shutdownTimeout = 5 * time.Second

// Stage is one step of the bootstrap sequence.
type Stage int

const (
	StageInit Stage = iota
	StageAttachPlugins
	StageAttachCommandRegistry
	StageConditionalSetup
	StageRun
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "Init"
	case StageAttachPlugins:
		return "AttachPlugins"
	case StageAttachCommandRegistry:
		return "AttachCommandRegistry"
	case StageConditionalSetup:
		return "ConditionalSetup"
	case StageRun:
		return "Run"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Builder drives the bootstrap sequence. Each step runs at most once and
// only after the previous one; the first error sticks and turns every
// later step into a no-op.
type Builder struct {
	app    *App
	stages []Stage
	err    error
	hooks  []setupHook
}

// NewBuilder performs Init: it builds the logger and the application
// context. A nil cfg is an error reported by every later step.
func NewBuilder(outW io.Writer, cfg *Config) *Builder {
	if cfg == nil || cfg.Model == nil {
		return &Builder{err: errors.New("bootstrap: configuration is required")}
	}
	a := newApp(outW, cfg)
	a.logger.Debug("Application context created.", "profile", cfg.Profile.String(), "product", cfg.Model.App.ProductName)
	return &Builder{app: a, stages: []Stage{StageInit}}
}

// App returns the application context, or nil if Init failed.
func (b *Builder) App() *App {
	return b.app
}

// Err returns the sticky error, if any.
func (b *Builder) Err() error {
	return b.err
}

// Stages returns the steps executed so far, in order.
func (b *Builder) Stages() []Stage {
	return append([]Stage(nil), b.stages...)
}

// advance records s as executed if it is the next step.
func (b *Builder) advance(s Stage) bool {
	if b.err != nil {
		return false
	}
	last := b.stages[len(b.stages)-1]
	if s != last+1 {
		b.err = &StageError{Attempted: s, Last: last}
		return false
	}
	b.stages = append(b.stages, s)
	return true
}

// Plugins performs AttachPlugins: every plugin is initialised in order. A
// failing plugin aborts bootstrap with *PluginInitError.
func (b *Builder) Plugins(plugins ...plugin.Plugin) *Builder {
	if !b.advance(StageAttachPlugins) {
		return b
	}
	a := b.app
	seen := make(map[string]struct{}, len(plugins))
	for _, p := range plugins {
		name := p.Name()
		if _, dup := seen[name]; dup {
			b.err = &PluginInitError{Plugin: name, Err: errors.New("plugin attached more than once")}
			return b
		}
		seen[name] = struct{}{}

		a.logger.Debug("Initialising plugin.", "plugin", name)
		if err := p.Init(ctxlog.With(a.ctx, "plugin", name)); err != nil {
			b.err = &PluginInitError{Plugin: name, Err: err}
			return b
		}
		a.plugins = append(a.plugins, p)
	}
	a.logger.Debug("Plugins attached.", "count", len(a.plugins))
	return b
}

// Commands performs AttachCommandRegistry: registers the modules and the
// attached plugins' commands, then freezes the registry so it can serve
// invocations.
func (b *Builder) Commands(modules ...registry.Module) *Builder {
	if !b.advance(StageAttachCommandRegistry) {
		return b
	}
	a := b.app
	if err := a.registry.RegisterModules(a.ctx, modules...); err != nil {
		b.err = fmt.Errorf("failed to register commands: %w", err)
		return b
	}
	for _, p := range a.Plugins() {
		if err := p.Register(a.registry.Scoped(registry.PluginScope(p.Name()))); err != nil {
			b.err = fmt.Errorf("failed to register commands of plugin '%s': %w", p.Name(), err)
			return b
		}
	}
	a.registry.Freeze()
	a.logger.Debug("Command registry installed.", "count", a.registry.Len(), "commands", a.registry.Commands())
	return b
}

// Setup performs ConditionalSetup. The Diagnostic profile installs the
// hooks that run once the windows exist; Production installs none.
func (b *Builder) Setup() *Builder {
	if !b.advance(StageConditionalSetup) {
		return b
	}
	a := b.app
	if a.Profile() != buildmode.Diagnostic {
		a.logger.Debug("Production profile, no diagnostic setup installed.")
		return b
	}

	b.hooks = append(b.hooks, setupHook{name: "devtools", run: openDevtools})
	if build := a.Config().Build; build.FrontendDist != "" && build.DevURL == "" {
		b.hooks = append(b.hooks, setupHook{name: "devreload", run: watchFrontend})
	}
	a.logger.Debug("Diagnostic setup installed.", "hooks", len(b.hooks))
	return b
}

// Run performs the final step: it starts the dispatcher and the bridge,
// starts rt, creates the configured windows, runs the setup hooks and
// blocks in the runtime's event loop. Everything started is stopped before
// Run returns.
func (b *Builder) Run(ctx context.Context, rt Runtime) error {
	if !b.advance(StageRun) {
		return b.err
	}
	if rt == nil {
		b.err = &RuntimeStartError{Part: "runtime", Err: errors.New("no runtime given")}
		return b.err
	}
	b.err = b.run(ctx, rt)
	return b.err
}

func (b *Builder) run(ctx context.Context, rt Runtime) error {
	a := b.app
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg := a.Config()

	disp := dispatch.New(ctx, a.registry, cfg.Bridge.Workers, cfg.Bridge.QueueSize)
	defer func() {
		if err := disp.Close(); err != nil {
			a.logger.Error("Dispatcher shutdown failed.", "error", err)
		}
	}()

	srv, err := bridge.New(ctx, bridge.Config{
		Address:      cfg.Bridge.Address,
		FrontendDist: cfg.Build.FrontendDist,
		DevURL:       cfg.Build.DevURL,
	}, disp)
	if err != nil {
		return &RuntimeStartError{Part: "bridge", Err: err}
	}
	if err := srv.Start(ctx); err != nil {
		return &RuntimeStartError{Part: "bridge", Err: err}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Close(shutdownCtx)
	}()

	if err := rt.Start(ctx, a); err != nil {
		return &RuntimeStartError{Part: "runtime", Err: err}
	}
	defer func() {
		if err := rt.Close(); err != nil {
			a.logger.Warn("Runtime shutdown failed.", "error", err)
		}
	}()

	primary := cfg.PrimaryWindow()
	for _, w := range cfg.Windows {
		spec := WindowSpec{
			Label:   w.Label,
			Title:   w.Title,
			URL:     resolveURL(srv.URL(), w.URL),
			Width:   w.Width,
			Height:  w.Height,
			Primary: w == primary,
		}
		win, err := rt.CreateWindow(ctx, spec)
		if err != nil {
			return &RuntimeStartError{Part: fmt.Sprintf("window '%s'", w.Label), Err: err}
		}
		a.addWindow(win)
	}

	for _, h := range b.hooks {
		a.logger.Debug("Running setup hook.", "hook", h.name)
		stop, err := h.run(ctx, a)
		if err != nil {
			return err
		}
		if stop != nil {
			defer stop()
		}
	}

	a.logger.Info("Application running.", "url", srv.URL(), "windows", len(cfg.Windows), "plugins", len(a.Plugins()), "profile", a.Profile().String())
	if err := rt.Loop(ctx); err != nil {
		return fmt.Errorf("runtime event loop failed: %w", err)
	}
	a.logger.Info("Application event loop finished.")
	return nil
}

// resolveURL makes a window URL absolute against the bridge base URL.
func resolveURL(base, target string) string {
	if u, err := url.Parse(target); err == nil && u.Scheme != "" {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return strings.TrimSuffix(base, "/") + target
}

// Bootstrap runs the full sequence with the compiled-in modules and plugins.
func Bootstrap(ctx context.Context, outW io.Writer, cfg *Config, rt Runtime) error {
	return NewBuilder(outW, cfg).
		Plugins(CorePlugins()...).
		Commands(CoreModules...).
		Setup().
		Run(ctx, rt)
}

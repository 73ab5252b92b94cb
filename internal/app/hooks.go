package app

import (
	"context"

	"github.com/vk/deskshell/internal/ctxlog"
	"github.com/vk/deskshell/internal/devreload"
)

// setupHook runs after the windows exist. A non-nil stop is called when Run
// returns.
type setupHook struct {
	name string
	run  func(ctx context.Context, a *App) (stop func(), err error)
}

// openDevtools attaches the DevTools overlay to the configured window. A
// missing window is fatal; failing to open the overlay is not.
func openDevtools(ctx context.Context, a *App) (func(), error) {
	label := a.Config().Build.DevtoolsWindow
	w, ok := a.Window(label)
	if !ok {
		return nil, &DiagnosticWindowMissingError{Label: label}
	}
	if err := w.OpenDevtools(ctx); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to open devtools.", "window", label, "error", err)
		return nil, nil
	}
	ctxlog.FromContext(ctx).Info("Devtools opened.", "window", label)
	return nil, nil
}

// watchFrontend reloads every window when the frontend dist changes.
func watchFrontend(ctx context.Context, a *App) (func(), error) {
	logger := ctxlog.FromContext(ctx)
	w, err := devreload.New(a.Config().Build.FrontendDist, 0, func(ctx context.Context) {
		for _, win := range a.Windows() {
			if err := win.Reload(ctx); err != nil {
				logger.Warn("Failed to reload window.", "window", win.Label(), "error", err)
			}
		}
	})
	if err != nil {
		logger.Warn("Frontend reload watcher not started.", "error", err)
		return nil, nil
	}
	w.Start(ctx)
	return func() {
		if err := w.Stop(); err != nil {
			logger.Debug("Frontend watcher stop failed.", "error", err)
		}
	}, nil
}

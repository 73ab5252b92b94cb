// Package headless is a UI runtime without native windows. The bridge keeps
// serving the frontend, which any browser can load; optionally the primary
// window is opened in the system browser.
package headless

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pkg/browser"
	"github.com/vk/deskshell/internal/app"
	"github.com/vk/deskshell/internal/ctxlog"
)

// Options configures the headless runtime.
type Options struct {
	// Open opens the primary window's URL with OpenURL.
	Open bool
	// OpenURL defaults to the system browser.
	OpenURL func(url string) error
}

// Runtime implements app.Runtime with logical windows only.
type Runtime struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	started  bool
	obs      app.Observer
	windows  map[string]*Window
	primary  string
	done     chan struct{}
	doneOnce sync.Once
}

var _ app.Runtime = (*Runtime)(nil)

// New returns an unstarted runtime.
func New(opts Options) *Runtime {
	if opts.OpenURL == nil {
		opts.OpenURL = browser.OpenURL
	}
	return &Runtime{
		opts:    opts,
		logger:  slog.Default(),
		windows: make(map[string]*Window),
		done:    make(chan struct{}),
	}
}

// Start records the observer.
func (r *Runtime) Start(ctx context.Context, obs app.Observer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("headless runtime already started")
	}
	r.started = true
	r.obs = obs
	r.logger = ctxlog.FromContext(ctx).With("runtime", "headless")
	r.logger.Debug("Headless runtime started.")
	return nil
}

// CreateWindow registers a logical window.
func (r *Runtime) CreateWindow(ctx context.Context, spec app.WindowSpec) (app.Window, error) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil, errors.New("headless runtime not started")
	}
	w := &Window{label: spec.Label, url: spec.URL, runtime: r}
	r.windows[spec.Label] = w
	if spec.Primary {
		r.primary = spec.Label
	}
	r.mu.Unlock()

	r.logger.Info("Window available.", "label", spec.Label, "url", spec.URL, "primary", spec.Primary)
	if spec.Primary && r.opts.Open {
		if err := r.opts.OpenURL(spec.URL); err != nil {
			r.logger.Warn("Failed to open window in the system browser.", "label", spec.Label, "error", err)
		}
	}
	return w, nil
}

// Loop blocks until the primary window is closed or ctx is done.
func (r *Runtime) Loop(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-r.done:
	}
	return nil
}

// Close releases nothing; it exists to satisfy app.Runtime.
func (r *Runtime) Close() error {
	return nil
}

func (r *Runtime) closeWindow(label string) {
	r.mu.Lock()
	_, ok := r.windows[label]
	delete(r.windows, label)
	primary := label == r.primary
	obs := r.obs
	r.mu.Unlock()
	if !ok {
		return
	}

	if obs != nil {
		obs.WindowClosed(label)
	}
	if primary {
		r.doneOnce.Do(func() { close(r.done) })
	}
}

// Window is a logical window: a label bound to a bridge URL.
type Window struct {
	label   string
	url     string
	runtime *Runtime
}

var _ app.Window = (*Window)(nil)

func (w *Window) Label() string { return w.label }

// OpenDevtools has nothing to attach to; it tells the user where to inspect.
func (w *Window) OpenDevtools(ctx context.Context) error {
	w.runtime.logger.Info("Devtools requested; open the window URL in a browser and use its inspector.", "label", w.label, "url", w.url)
	return nil
}

func (w *Window) Reload(ctx context.Context) error {
	w.runtime.logger.Debug("Reload requested for headless window.", "label", w.label)
	return nil
}

func (w *Window) Close() error {
	w.runtime.closeWindow(w.label)
	return nil
}

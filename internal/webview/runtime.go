// Package webview is the windowed UI runtime. It drives a Chromium instance
// over the DevTools protocol and shows each application window as its own
// browser window.
package webview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/vk/deskshell/internal/app"
	"github.com/vk/deskshell/internal/ctxlog"
)

// ErrNotStarted is returned by operations that need a running browser.
var ErrNotStarted = errors.New("webview runtime not started")

// Options configures the browser process.
type Options struct {
	// BrowserBin is the Chromium executable. Empty lets rod find or
	// download one.
	BrowserBin string
	// Headless runs Chromium without visible windows.
	Headless bool
}

// Runtime implements app.Runtime on top of go-rod.
type Runtime struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	launcher   *launcher.Launcher
	browser    *rod.Browser
	controlURL string
	obs        app.Observer
	windows    map[proto.TargetTargetID]*Window
	primary    proto.TargetTargetID
}

var _ app.Runtime = (*Runtime)(nil)

// New returns an unstarted runtime.
func New(opts Options) *Runtime {
	return &Runtime{
		opts:    opts,
		logger:  slog.Default(),
		windows: make(map[proto.TargetTargetID]*Window),
	}
}

// Start launches the browser and connects to it.
func (r *Runtime) Start(ctx context.Context, obs app.Observer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return errors.New("webview runtime already started")
	}
	r.logger = ctxlog.FromContext(ctx).With("runtime", "webview")

	l := launcher.New().
		Headless(r.opts.Headless).
		Set(flags.Flag("no-startup-window"))
	if r.opts.BrowserBin != "" {
		l = l.Bin(r.opts.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect to browser: %w", err)
	}
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(browser); err != nil {
		_ = browser.Close()
		l.Kill()
		return fmt.Errorf("enable target discovery: %w", err)
	}

	r.launcher = l
	r.browser = browser
	r.controlURL = controlURL
	r.obs = obs
	r.logger.Info("Browser connected.", "control_url", controlURL)
	return nil
}

// CreateWindow opens spec.URL in a new browser window.
func (r *Runtime) CreateWindow(ctx context.Context, spec app.WindowSpec) (app.Window, error) {
	r.mu.Lock()
	browser := r.browser
	r.mu.Unlock()
	if browser == nil {
		return nil, ErrNotStarted
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: spec.URL, NewWindow: true})
	if err != nil {
		return nil, fmt.Errorf("create window '%s': %w", spec.Label, err)
	}
	w := &Window{label: spec.Label, page: page, runtime: r}

	if err := w.resize(spec.Width, spec.Height); err != nil {
		r.logger.Warn("Failed to size window.", "label", spec.Label, "error", err)
	}
	if spec.Title != "" {
		w.setTitle(spec.Title)
	}

	r.mu.Lock()
	r.windows[page.TargetID] = w
	if spec.Primary {
		r.primary = page.TargetID
	}
	r.mu.Unlock()

	r.logger.Debug("Window created.", "label", spec.Label, "url", spec.URL, "target_id", page.TargetID)
	return w, nil
}

// Loop blocks until the primary window is destroyed or ctx is done.
func (r *Runtime) Loop(ctx context.Context) error {
	r.mu.Lock()
	browser := r.browser
	r.mu.Unlock()
	if browser == nil {
		return ErrNotStarted
	}

	r.logger.Debug("Entering webview event loop.")
	wait := browser.Context(ctx).EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		label, primary := r.forget(e.TargetID)
		if label == "" {
			return false
		}
		r.logger.Info("Window closed.", "label", label)
		if r.obs != nil {
			r.obs.WindowClosed(label)
		}
		return primary
	})
	wait()
	r.logger.Debug("Webview event loop finished.")
	return nil
}

// Close shuts the browser down and removes its profile directory.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Cleanup()
	r.browser = nil
	r.launcher = nil
	r.windows = make(map[proto.TargetTargetID]*Window)
	r.primary = ""
	return err
}

func (r *Runtime) forget(id proto.TargetTargetID) (label string, primary bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[id]
	if !ok {
		return "", false
	}
	delete(r.windows, id)
	return w.label, id == r.primary
}

// inspectorURL builds the DevTools frontend URL that inspects targetID on
// the browser reachable at controlURL.
func inspectorURL(controlURL string, targetID proto.TargetTargetID) (string, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return "", fmt.Errorf("parse control url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("control url '%s' has no host", controlURL)
	}
	if targetID == "" {
		return "", errors.New("empty target id")
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	q := url.Values{}
	q.Set("ws", u.Host+"/devtools/page/"+string(targetID))
	return fmt.Sprintf("%s://%s/devtools/inspector.html?%s", scheme, u.Host, q.Encode()), nil
}

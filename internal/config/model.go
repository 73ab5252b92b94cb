package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Runtime kinds.
const (
	RuntimeWebview  = "webview"
	RuntimeHeadless = "headless"
)

// Model is the unified, format-agnostic representation of the application
// configuration.
type Model struct {
	App     App
	Build   Build
	Windows []*Window
	Bridge  Bridge
	Runtime Runtime
}

// App holds product metadata.
type App struct {
	ProductName string
	Version     string
	Identifier  string
}

// Build points at the frontend the windows load.
type Build struct {
	// FrontendDist is a directory of built assets served by the bridge.
	FrontendDist string
	// DevURL, when set, is proxied instead of serving FrontendDist.
	DevURL string
	// DevtoolsWindow is the label of the window that gets the DevTools
	// overlay in diagnostic builds. Defaults to the first window.
	DevtoolsWindow string
}

// Window describes one window created at startup.
type Window struct {
	Label  string
	Title  string
	URL    string
	Width  int
	Height int
}

// Bridge configures the loopback IPC server and its dispatcher.
type Bridge struct {
	Address   string
	Workers   int
	QueueSize int
}

// Runtime selects and configures the UI runtime.
type Runtime struct {
	Kind       string
	BrowserBin string
	// Open makes the headless runtime open the first window in the
	// system browser.
	Open bool
	// Headless runs the webview runtime's browser without visible windows.
	Headless bool
}

// Default returns the configuration used when no file is given.
func Default() *Model {
	return &Model{
		App: App{
			ProductName: "deskshell",
			Version:     "0.1.0",
			Identifier:  "dev.deskshell.app",
		},
		Windows: []*Window{{
			Label:  "main",
			Title:  "deskshell",
			URL:    "/",
			Width:  800,
			Height: 600,
		}},
		Bridge: Bridge{
			Address:   "127.0.0.1:0",
			Workers:   4,
			QueueSize: 64,
		},
		Runtime: Runtime{Kind: RuntimeWebview},
	}
}

// PrimaryWindow returns the first configured window.
func (m *Model) PrimaryWindow() *Window {
	if len(m.Windows) == 0 {
		return nil
	}
	return m.Windows[0]
}

// Validate checks the model and fills in derived defaults.
func (m *Model) Validate() error {
	var errs []string

	if strings.TrimSpace(m.App.ProductName) == "" {
		errs = append(errs, "app.product_name must not be empty")
	}
	if _, err := semver.StrictNewVersion(m.App.Version); err != nil {
		errs = append(errs, fmt.Sprintf("app.version %q is not a valid semantic version: %v", m.App.Version, err))
	}

	if len(m.Windows) == 0 {
		errs = append(errs, "at least one window must be configured")
	}
	seen := make(map[string]struct{}, len(m.Windows))
	for _, w := range m.Windows {
		if w.Label == "" {
			errs = append(errs, "window label must not be empty")
			continue
		}
		if _, dup := seen[w.Label]; dup {
			errs = append(errs, fmt.Sprintf("window '%s' is declared more than once", w.Label))
		}
		seen[w.Label] = struct{}{}
		if w.Width < 0 || w.Height < 0 {
			errs = append(errs, fmt.Sprintf("window '%s' has negative dimensions", w.Label))
		}
		if w.URL == "" {
			w.URL = "/"
		}
		if w.Title == "" {
			w.Title = m.App.ProductName
		}
	}
	if primary := m.PrimaryWindow(); m.Build.DevtoolsWindow == "" && primary != nil {
		m.Build.DevtoolsWindow = primary.Label
	}

	if m.Bridge.Workers <= 0 {
		errs = append(errs, "bridge.workers must be positive")
	}
	if m.Bridge.QueueSize < 0 {
		errs = append(errs, "bridge.queue_size must not be negative")
	}
	switch m.Runtime.Kind {
	case RuntimeWebview, RuntimeHeadless:
	default:
		errs = append(errs, fmt.Sprintf("runtime.kind must be '%s' or '%s', got '%s'", RuntimeWebview, RuntimeHeadless, m.Runtime.Kind))
	}

	if len(errs) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

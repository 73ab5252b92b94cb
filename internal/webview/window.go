package webview

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/vk/deskshell/internal/app"
	"github.com/ysmood/gson"
)

const titleWait = 5 * time.Second

// Window is one browser window showing an application page.
type Window struct {
	label   string
	page    *rod.Page
	runtime *Runtime
}

var _ app.Window = (*Window)(nil)

// Label returns the configured window label.
func (w *Window) Label() string { return w.label }

// OpenDevtools opens the DevTools inspector for this window in a window of
// its own.
func (w *Window) OpenDevtools(ctx context.Context) error {
	w.runtime.mu.Lock()
	browser, controlURL := w.runtime.browser, w.runtime.controlURL
	w.runtime.mu.Unlock()
	if browser == nil {
		return ErrNotStarted
	}

	inspector, err := inspectorURL(controlURL, w.page.TargetID)
	if err != nil {
		return err
	}
	if _, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: inspector, NewWindow: true}); err != nil {
		return fmt.Errorf("open devtools for '%s': %w", w.label, err)
	}
	return nil
}

// Reload reloads the window's page.
func (w *Window) Reload(ctx context.Context) error {
	if err := w.page.Context(ctx).Reload(); err != nil {
		return fmt.Errorf("reload '%s': %w", w.label, err)
	}
	return nil
}

// Close closes the browser window. The runtime reports it as closed once
// the browser confirms.
func (w *Window) Close() error {
	return w.page.Close()
}

func (w *Window) resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	return w.page.SetWindow(&proto.BrowserBounds{
		Width:       gson.Int(width),
		Height:      gson.Int(height),
		WindowState: proto.BrowserWindowStateNormal,
	})
}

// setTitle applies the configured title once the page has loaded, unless
// the page sets one itself.
func (w *Window) setTitle(title string) {
	go func() {
		page := w.page.Timeout(titleWait)
		if err := page.WaitLoad(); err != nil {
			w.runtime.logger.Debug("Window did not finish loading before title update.", "label", w.label, "error", err)
			return
		}
		if _, err := page.Eval(`(t) => { if (!document.title) document.title = t }`, title); err != nil {
			w.runtime.logger.Debug("Failed to set window title.", "label", w.label, "error", err)
		}
	}()
}

package app

import "context"

// WindowSpec is what a Runtime needs to open a window. URL is absolute.
type WindowSpec struct {
	Label  string
	Title  string
	URL    string
	Width  int
	Height int
	// Primary marks the window whose closing ends the event loop.
	Primary bool
}

// Observer receives window lifecycle notifications from a Runtime.
type Observer interface {
	WindowClosed(label string)
}

// Runtime is the UI event loop the application hands control to.
type Runtime interface {
	// Start brings the runtime up; no window exists yet.
	Start(ctx context.Context, obs Observer) error
	// CreateWindow opens one window. Only called after Start.
	CreateWindow(ctx context.Context, spec WindowSpec) (Window, error)
	// Loop blocks until the primary window closes or ctx is done.
	Loop(ctx context.Context) error
	// Close releases everything Start acquired.
	Close() error
}

// Window is a UI surface owned by a Runtime.
type Window interface {
	Label() string
	// OpenDevtools attaches the diagnostic overlay to the window.
	OpenDevtools(ctx context.Context) error
	Reload(ctx context.Context) error
	Close() error
}

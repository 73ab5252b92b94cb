package app

import "fmt"

// PluginInitError is returned when a plugin fails to initialise during
// AttachPlugins.
type PluginInitError struct {
	Plugin string
	Err    error
}

func (e *PluginInitError) Error() string {
	return fmt.Sprintf("plugin '%s' failed to initialise: %v", e.Plugin, e.Err)
}

func (e *PluginInitError) Unwrap() error {
	return e.Err
}

// RuntimeStartError is returned when Run cannot bring up one of its parts.
type RuntimeStartError struct {
	// Part names what failed: "bridge", "runtime" or "window '<label>'".
	Part string
	Err  error
}

func (e *RuntimeStartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Part, e.Err)
}

func (e *RuntimeStartError) Unwrap() error {
	return e.Err
}

// DiagnosticWindowMissingError is returned by the diagnostic setup when the
// window that should receive the DevTools overlay does not exist.
type DiagnosticWindowMissingError struct {
	Label string
}

func (e *DiagnosticWindowMissingError) Error() string {
	return fmt.Sprintf("diagnostic setup: window '%s' does not exist", e.Label)
}

// StageError is returned when a bootstrap step is called out of order or
// more than once.
type StageError struct {
	Attempted Stage
	// Last is the most recent step that completed.
	Last Stage
}

func (e *StageError) Error() string {
	if e.Attempted == e.Last {
		return fmt.Sprintf("bootstrap step %s called more than once", e.Attempted)
	}
	return fmt.Sprintf("bootstrap step %s called out of order: expected %s next", e.Attempted, e.Last+1)
}

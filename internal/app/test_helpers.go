package app

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/vk/deskshell/internal/buildmode"
	"github.com/vk/deskshell/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// NewTestConfig returns a validated config for the given profile, with the
// bridge on a free loopback port.
func NewTestConfig(t *testing.T, profile buildmode.Profile) *Config {
	t.Helper()
	model := config.Default()
	model.Bridge.Address = "127.0.0.1:0"
	cfg, err := NewConfig(Config{LogLevel: "debug", Profile: profile, Model: model})
	if err != nil {
		t.Fatalf("test config is invalid: %v", err)
	}
	return cfg
}

// SetupBuilderTest creates a builder whose log output is captured.
func SetupBuilderTest(t *testing.T, cfg *Config) (*Builder, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	b := NewBuilder(logBuffer, cfg)

	t.Cleanup(func() {
		if os.Getenv("DESKSHELL_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return b, logBuffer
}

// FakeRuntime is an in-memory Runtime that records what the bootstrapper
// asks of it. Loop returns immediately unless Block is set.
type FakeRuntime struct {
	StartErr  error
	CreateErr map[string]error
	// DevtoolsErr is returned by every window's OpenDevtools.
	DevtoolsErr error
	Block       bool

	mu       sync.Mutex
	started  bool
	closed   bool
	looped   bool
	created  []WindowSpec
	devtools []string
	reloads  []string
}

var _ Runtime = (*FakeRuntime)(nil)

func (f *FakeRuntime) Start(ctx context.Context, obs Observer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	f.started = true
	return nil
}

func (f *FakeRuntime) CreateWindow(ctx context.Context, spec WindowSpec) (Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CreateErr[spec.Label]; err != nil {
		return nil, err
	}
	f.created = append(f.created, spec)
	return &fakeWindow{label: spec.Label, rt: f}, nil
}

func (f *FakeRuntime) Loop(ctx context.Context) error {
	f.mu.Lock()
	f.looped = true
	block := f.Block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
	}
	return nil
}

func (f *FakeRuntime) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Started reports whether Start succeeded.
func (f *FakeRuntime) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Closed reports whether Close was called.
func (f *FakeRuntime) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Looped reports whether Loop was entered.
func (f *FakeRuntime) Looped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.looped
}

// Created returns the specs of the windows created so far.
func (f *FakeRuntime) Created() []WindowSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WindowSpec(nil), f.created...)
}

// Devtools returns the labels of windows that had devtools opened.
func (f *FakeRuntime) Devtools() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.devtools...)
}

// Reloads returns the labels of windows that were reloaded.
func (f *FakeRuntime) Reloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reloads...)
}

type fakeWindow struct {
	label string
	rt    *FakeRuntime
}

func (w *fakeWindow) Label() string { return w.label }

func (w *fakeWindow) OpenDevtools(ctx context.Context) error {
	w.rt.mu.Lock()
	defer w.rt.mu.Unlock()
	if w.rt.DevtoolsErr != nil {
		return w.rt.DevtoolsErr
	}
	w.rt.devtools = append(w.rt.devtools, w.label)
	return nil
}

func (w *fakeWindow) Reload(ctx context.Context) error {
	w.rt.mu.Lock()
	defer w.rt.mu.Unlock()
	w.rt.reloads = append(w.rt.reloads, w.label)
	return nil
}

func (w *fakeWindow) Close() error { return nil }

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/deskshell/internal/buildmode"
	"github.com/vk/deskshell/internal/config"
	"github.com/vk/deskshell/internal/registry"
	"github.com/vk/deskshell/modules/greet"
)

type stubPlugin struct {
	name    string
	initErr error
}

func (p *stubPlugin) Name() string { return p.name }

func (p *stubPlugin) Init(ctx context.Context) error { return p.initErr }

func (p *stubPlugin) Register(r registry.Registrar) error {
	return r.Register("ping", &registry.RegisteredCommand{
		Fn: func(ctx context.Context) (string, error) { return "pong", nil },
	})
}

func TestBootstrap_ExecutesStagesInOrder(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	cfg := NewTestConfig(t, buildmode.Production)
	b, _ := SetupBuilderTest(t, cfg)
	rt := &FakeRuntime{}

	// --- Act ---
	err := b.Plugins(&stubPlugin{name: "stub"}).
		Commands(&greet.Module{}).
		Setup().
		Run(context.Background(), rt)

	// --- Assert ---
	require.NoError(t, err)
	wantStages := []Stage{StageInit, StageAttachPlugins, StageAttachCommandRegistry, StageConditionalSetup, StageRun}
	if diff := cmp.Diff(wantStages, b.Stages()); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"greet", "plugin:stub|ping"}, b.App().Registry().Commands())
	require.True(t, b.App().Registry().Frozen())
	require.True(t, rt.Looped())
	require.True(t, rt.Closed())

	created := rt.Created()
	require.Len(t, created, 1)
	require.Equal(t, "main", created[0].Label)
	require.True(t, strings.HasPrefix(created[0].URL, "http://127.0.0.1:"), "window URL %q is not on the bridge", created[0].URL)
}

func TestBootstrap_CoreCommandsAreRegistered(t *testing.T) {
	t.Parallel()
	cfg := NewTestConfig(t, buildmode.Production)
	rt := &FakeRuntime{}

	err := Bootstrap(context.Background(), &SafeBuffer{}, cfg, rt)

	require.NoError(t, err)
	require.True(t, rt.Looped())
}

func TestRun_ProductionNeverOpensDevtools(t *testing.T) {
	t.Parallel()
	for _, count := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d windows", count), func(t *testing.T) {
			t.Parallel()
			// --- Arrange ---
			cfg := NewTestConfig(t, buildmode.Production)
			for i := 1; i < count; i++ {
				label := fmt.Sprintf("extra-%d", i)
				cfg.Model.Windows = append(cfg.Model.Windows, &config.Window{Label: label, URL: "/" + label})
			}
			cfg.Model.Build.DevtoolsWindow = cfg.Model.Windows[count-1].Label
			b, _ := SetupBuilderTest(t, cfg)
			rt := &FakeRuntime{}

			// --- Act ---
			err := b.Plugins().Commands(&greet.Module{}).Setup().Run(context.Background(), rt)

			// --- Assert ---
			require.NoError(t, err)
			require.Len(t, rt.Created(), count)
			require.Empty(t, rt.Devtools())
		})
	}
}

func TestRun_OnlyFirstWindowIsPrimary(t *testing.T) {
	t.Parallel()
	cfg := NewTestConfig(t, buildmode.Production)
	cfg.Model.Windows = append(cfg.Model.Windows, &config.Window{Label: "about", URL: "/about"})
	b, _ := SetupBuilderTest(t, cfg)
	rt := &FakeRuntime{}

	err := b.Plugins().Commands(&greet.Module{}).Setup().Run(context.Background(), rt)

	require.NoError(t, err)
	created := rt.Created()
	require.Len(t, created, 2)
	require.True(t, created[0].Primary)
	require.False(t, created[1].Primary)
}

func TestRun_DiagnosticOpensDevtoolsOnMainWindow(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	cfg := NewTestConfig(t, buildmode.Diagnostic)
	cfg.Model.Windows = append(cfg.Model.Windows, &config.Window{Label: "about", URL: "/about"})
	b, _ := SetupBuilderTest(t, cfg)
	rt := &FakeRuntime{}

	// --- Act ---
	err := b.Plugins().Commands(&greet.Module{}).Setup().Run(context.Background(), rt)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{"main"}, rt.Devtools())
	require.Len(t, rt.Created(), 2)
}

func TestRun_DiagnosticMissingWindowIsFatal(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	cfg := NewTestConfig(t, buildmode.Diagnostic)
	cfg.Model.Build.DevtoolsWindow = "inspector"
	b, _ := SetupBuilderTest(t, cfg)
	rt := &FakeRuntime{}

	// --- Act ---
	err := b.Plugins().Commands(&greet.Module{}).Setup().Run(context.Background(), rt)

	// --- Assert ---
	var missing *DiagnosticWindowMissingError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "inspector", missing.Label)
	require.False(t, rt.Looped(), "the event loop must not start")
	require.True(t, rt.Closed())
}

func TestRun_DevtoolsFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	cfg := NewTestConfig(t, buildmode.Diagnostic)
	b, logs := SetupBuilderTest(t, cfg)
	rt := &FakeRuntime{DevtoolsErr: errors.New("inspector unavailable")}

	err := b.Plugins().Commands(&greet.Module{}).Setup().Run(context.Background(), rt)

	require.NoError(t, err)
	require.True(t, rt.Looped())
	require.Contains(t, logs.String(), "Failed to open devtools.")
}

func TestPlugins_InitFailureAbortsBeforeRuntime(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	cfg := NewTestConfig(t, buildmode.Diagnostic)
	b, _ := SetupBuilderTest(t, cfg)
	rt := &FakeRuntime{}
	cause := errors.New("no display")

	// --- Act ---
	err := b.Plugins(&stubPlugin{name: "ok"}, &stubPlugin{name: "broken", initErr: cause}).
		Commands(&greet.Module{}).
		Setup().
		Run(context.Background(), rt)

	// --- Assert ---
	var initErr *PluginInitError
	require.ErrorAs(t, err, &initErr)
	require.Equal(t, "broken", initErr.Plugin)
	require.ErrorIs(t, err, cause)
	require.False(t, rt.Started())
	require.Empty(t, rt.Created(), "no window may be created after a failed bootstrap")
	require.Equal(t, []Stage{StageInit, StageAttachPlugins}, b.Stages())
}

func TestPlugins_DuplicateNameFails(t *testing.T) {
	t.Parallel()
	b, _ := SetupBuilderTest(t, NewTestConfig(t, buildmode.Production))

	b.Plugins(&stubPlugin{name: "x"}, &stubPlugin{name: "x"})

	var initErr *PluginInitError
	require.ErrorAs(t, b.Err(), &initErr)
}

func TestCommands_DuplicateRegistrationIsFatal(t *testing.T) {
	t.Parallel()
	b, _ := SetupBuilderTest(t, NewTestConfig(t, buildmode.Production))
	rt := &FakeRuntime{}

	err := b.Plugins().Commands(&greet.Module{}, &greet.Module{}).Setup().Run(context.Background(), rt)

	var dup *registry.DuplicateCommandError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "greet", dup.Name)
	require.False(t, rt.Started())
}

func TestBuilder_StageMisuse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		steps func(b *Builder) error
		want  StageError
	}{
		{
			name:  "setup before commands",
			steps: func(b *Builder) error { return b.Plugins().Setup().Err() },
			want:  StageError{Attempted: StageConditionalSetup, Last: StageAttachPlugins},
		},
		{
			name:  "plugins twice",
			steps: func(b *Builder) error { return b.Plugins().Plugins().Err() },
			want:  StageError{Attempted: StageAttachPlugins, Last: StageAttachPlugins},
		},
		{
			name: "run without setup",
			steps: func(b *Builder) error {
				return b.Plugins().Commands().Run(context.Background(), &FakeRuntime{})
			},
			want: StageError{Attempted: StageRun, Last: StageAttachCommandRegistry},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, _ := SetupBuilderTest(t, NewTestConfig(t, buildmode.Production))

			err := tc.steps(b)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			require.Equal(t, tc.want, *stageErr)
		})
	}
}

func TestNewBuilder_NilConfigSticks(t *testing.T) {
	t.Parallel()
	rt := &FakeRuntime{}

	err := NewBuilder(&SafeBuffer{}, nil).Plugins().Commands().Setup().Run(context.Background(), rt)

	require.Error(t, err)
	require.False(t, rt.Started())
}

func TestRun_RuntimeStartErrorIsWrapped(t *testing.T) {
	t.Parallel()
	cause := errors.New("no browser")
	b, _ := SetupBuilderTest(t, NewTestConfig(t, buildmode.Production))

	err := b.Plugins().Commands().Setup().Run(context.Background(), &FakeRuntime{StartErr: cause})

	var startErr *RuntimeStartError
	require.ErrorAs(t, err, &startErr)
	require.Equal(t, "runtime", startErr.Part)
	require.ErrorIs(t, err, cause)
}

func TestRun_WindowCreateErrorIsWrapped(t *testing.T) {
	t.Parallel()
	b, _ := SetupBuilderTest(t, NewTestConfig(t, buildmode.Production))
	rt := &FakeRuntime{CreateErr: map[string]error{"main": errors.New("target crashed")}}

	err := b.Plugins().Commands().Setup().Run(context.Background(), rt)

	var startErr *RuntimeStartError
	require.ErrorAs(t, err, &startErr)
	require.Equal(t, "window 'main'", startErr.Part)
	require.False(t, rt.Looped())
}

func TestRun_BridgeServesWhileLoopRuns(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	b, _ := SetupBuilderTest(t, NewTestConfig(t, buildmode.Production))
	rt := &FakeRuntime{Block: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- b.Plugins().Commands(&greet.Module{}).Setup().Run(ctx, rt)
	}()
	require.Eventually(t, rt.Looped, 5*time.Second, 10*time.Millisecond)

	// --- Act ---
	resp, err := http.Get(strings.TrimSuffix(rt.Created()[0].URL, "/") + "/health")

	// --- Assert ---
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_DiagnosticReloadsOnFrontendChange(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	dist := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("v1"), 0o644))
	cfg := NewTestConfig(t, buildmode.Diagnostic)
	cfg.Model.Build.FrontendDist = dist
	b, _ := SetupBuilderTest(t, cfg)
	rt := &FakeRuntime{Block: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- b.Plugins().Commands(&greet.Module{}).Setup().Run(ctx, rt)
	}()
	require.Eventually(t, rt.Looped, 5*time.Second, 10*time.Millisecond)

	// --- Act ---
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("v2"), 0o644))

	// --- Assert ---
	require.Eventually(t, func() bool { return len(rt.Reloads()) > 0 }, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, "main", rt.Reloads()[0])
	cancel()
	require.NoError(t, <-done)
}

func TestApp_WindowClosedForgetsWindow(t *testing.T) {
	t.Parallel()
	b, _ := SetupBuilderTest(t, NewTestConfig(t, buildmode.Production))
	a := b.App()
	rt := &FakeRuntime{}
	for _, label := range []string{"main", "about"} {
		w, err := rt.CreateWindow(context.Background(), WindowSpec{Label: label})
		require.NoError(t, err)
		a.addWindow(w)
	}

	a.WindowClosed("main")
	a.WindowClosed("never-opened")

	_, ok := a.Window("main")
	require.False(t, ok)
	windows := a.Windows()
	require.Len(t, windows, 1)
	require.Equal(t, "about", windows[0].Label())
}

func TestResolveURL(t *testing.T) {
	t.Parallel()
	base := "http://127.0.0.1:1420"
	require.Equal(t, "http://127.0.0.1:1420/", resolveURL(base, "/"))
	require.Equal(t, "http://127.0.0.1:1420/about.html", resolveURL(base, "about.html"))
	require.Equal(t, "https://example.com/x", resolveURL(base, "https://example.com/x"))
}

func TestNewConfig_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{})
	require.Error(t, err)

	_, err = NewConfig(Config{LogLevel: "verbose", Model: config.Default()})
	require.ErrorContains(t, err, "unknown log level")

	_, err = NewConfig(Config{LogFormat: "yaml", Model: config.Default()})
	require.ErrorContains(t, err, "unknown log format")

	bad := config.Default()
	bad.App.Version = "1.0"
	_, err = NewConfig(Config{Model: bad})
	require.ErrorContains(t, err, "semantic version")
}

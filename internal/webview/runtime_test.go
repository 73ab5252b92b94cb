package webview

import (
	"context"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/require"
	"github.com/vk/deskshell/internal/app"
)

func TestInspectorURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		controlURL string
		target     proto.TargetTargetID
		want       string
		wantErr    bool
	}{
		{
			name:       "ws control url",
			controlURL: "ws://127.0.0.1:9222/devtools/browser/abc",
			target:     "T1",
			want:       "http://127.0.0.1:9222/devtools/inspector.html?ws=127.0.0.1%3A9222%2Fdevtools%2Fpage%2FT1",
		},
		{
			name:       "wss control url",
			controlURL: "wss://example.test:443/devtools/browser/abc",
			target:     "T2",
			want:       "https://example.test:443/devtools/inspector.html?ws=example.test%3A443%2Fdevtools%2Fpage%2FT2",
		},
		{name: "no host", controlURL: "/devtools/browser/abc", target: "T3", wantErr: true},
		{name: "no target", controlURL: "ws://127.0.0.1:9222/devtools/browser/abc", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := inspectorURL(tc.controlURL, tc.target)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestUnstartedRuntime(t *testing.T) {
	t.Parallel()
	r := New(Options{})

	_, err := r.CreateWindow(context.Background(), app.WindowSpec{Label: "main", URL: "about:blank"})
	require.ErrorIs(t, err, ErrNotStarted)
	require.ErrorIs(t, r.Loop(context.Background()), ErrNotStarted)
	require.NoError(t, r.Close(), "closing an unstarted runtime is a no-op")
}

func TestForget_TracksPrimary(t *testing.T) {
	t.Parallel()
	r := New(Options{})
	r.windows["A"] = &Window{label: "main"}
	r.windows["B"] = &Window{label: "about"}
	r.primary = "A"

	label, primary := r.forget("B")
	require.Equal(t, "about", label)
	require.False(t, primary)

	label, primary = r.forget("unknown")
	require.Empty(t, label)
	require.False(t, primary)

	label, primary = r.forget("A")
	require.Equal(t, "main", label)
	require.True(t, primary)
}

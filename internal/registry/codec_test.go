package registry

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type windowBounds struct {
	Width  int `cty:"width"`
	Height int `cty:"height"`
}

type richInput struct {
	Path    string            `cty:"path"`
	With    *string           `cty:"with"`
	Tags    []string          `cty:"tags"`
	Bounds  windowBounds      `cty:"bounds"`
	Headers map[string]string `cty:"headers"`
}

func TestDecodeArgs_FullShape(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	payload := []byte(`{
		"path": "/tmp/notes.md",
		"with": "firefox",
		"tags": ["a", "b"],
		"bounds": {"width": 800, "height": 600, "depth": 3},
		"headers": {"x-trace": "1"},
		"unused": true
	}`)
	var got richInput

	// --- Act ---
	err := decodeArgs(payload, reflect.TypeOf(richInput{}), &got)

	// --- Assert ---
	require.NoError(t, err)
	with := "firefox"
	want := richInput{
		Path:    "/tmp/notes.md",
		With:    &with,
		Tags:    []string{"a", "b"},
		Bounds:  windowBounds{Width: 800, Height: 600},
		Headers: map[string]string{"x-trace": "1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded input mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeArgs_OptionalPointerMayBeAbsent(t *testing.T) {
	t.Parallel()
	var got richInput

	err := decodeArgs([]byte(`{"path":"p","tags":[],"bounds":{"width":1,"height":2},"headers":{}}`), reflect.TypeOf(richInput{}), &got)

	require.NoError(t, err)
	require.Nil(t, got.With)
	require.Equal(t, "p", got.Path)
}

func TestDecodeArgs_MissingRequiredNamesTheArgument(t *testing.T) {
	t.Parallel()
	var got windowBounds

	err := decodeArgs([]byte(`{"width": 10}`), reflect.TypeOf(windowBounds{}), &got)

	require.Error(t, err)
	require.Contains(t, err.Error(), "height")
}

func TestDecodeArgs_PrimitivesAreNotCoerced(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"number for string":        `{"path":7,"tags":[],"bounds":{"width":1,"height":2},"headers":{}}`,
		"string for number":        `{"path":"p","tags":[],"bounds":{"width":"1","height":2},"headers":{}}`,
		"bool in string list":      `{"path":"p","tags":["a",true],"bounds":{"width":1,"height":2},"headers":{}}`,
		"number in string map":     `{"path":"p","tags":[],"bounds":{"width":1,"height":2},"headers":{"x":1}}`,
		"bool for optional string": `{"path":"p","with":false,"tags":[],"bounds":{"width":1,"height":2},"headers":{}}`,
	}
	wantWhere := map[string]string{
		"number for string":        "argument path",
		"string for number":        "argument bounds.width",
		"bool in string list":      "argument tags[1]",
		"number in string map":     `argument headers["x"]`,
		"bool for optional string": "argument with",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var got richInput

			err := decodeArgs([]byte(payload), reflect.TypeOf(richInput{}), &got)

			require.Error(t, err)
			require.Contains(t, err.Error(), wantWhere[name])
		})
	}
}

func TestDecodeArgs_EmptyPayloadIsEmptyObject(t *testing.T) {
	t.Parallel()
	type none struct{}
	for _, payload := range []string{"", "  ", "null", "{}"} {
		var got none
		require.NoError(t, decodeArgs([]byte(payload), reflect.TypeOf(none{}), &got), "payload %q", payload)
	}
}

func TestEncodeResult(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "Hello", want: `"Hello"`},
		{name: "number", in: 42, want: `42`},
		{name: "struct", in: windowBounds{Width: 3, Height: 4}, want: `{"height":4,"width":3}`},
		{name: "nil pointer", in: (*windowBounds)(nil), want: `null`},
		{name: "cty value", in: cty.ListVal([]cty.Value{cty.StringVal("a")}), want: `["a"]`},
		{name: "nil", in: nil, want: `null`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := encodeResult(tc.in)
			require.NoError(t, err)
			require.JSONEq(t, tc.want, string(out))
		})
	}
}

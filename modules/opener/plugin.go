// Package opener is the plugin that hands URLs and files to the operating
// system's default handler.
package opener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/browser"
	"github.com/vk/deskshell/internal/ctxlog"
	"github.com/vk/deskshell/internal/registry"
)

// Name is the plugin's name and command scope.
const Name = "opener"

// DefaultSchemes are the URL schemes open_url accepts unless configured otherwise.
var DefaultSchemes = []string{"http", "https", "mailto", "tel"}

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// ErrSchemeNotAllowed is returned when open_url is asked for a scheme outside the allow list.
var ErrSchemeNotAllowed = errors.New("url scheme not allowed")

// Plugin implements plugin.Plugin.
type Plugin struct {
	schemes  []string
	openURL  func(string) error
	openFile func(string) error
}

// Option configures the plugin.
type Option func(*Plugin)

// WithSchemes replaces the allowed URL schemes.
func WithSchemes(schemes ...string) Option {
	return func(p *Plugin) { p.schemes = schemes }
}

// WithLauncher replaces the functions used to hand URLs and files to the OS.
func WithLauncher(openURL, openFile func(string) error) Option {
	return func(p *Plugin) {
		p.openURL = openURL
		p.openFile = openFile
	}
}

// New returns the opener plugin backed by github.com/pkg/browser.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		schemes:  DefaultSchemes,
		openURL:  browser.OpenURL,
		openFile: browser.OpenFile,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin name.
func (p *Plugin) Name() string { return Name }

// Init validates the configured scheme allow list.
func (p *Plugin) Init(ctx context.Context) error {
	if len(p.schemes) == 0 {
		return errors.New("no url schemes allowed")
	}
	normalized := make([]string, 0, len(p.schemes))
	for _, s := range p.schemes {
		s = strings.ToLower(strings.TrimSpace(s))
		if !schemePattern.MatchString(s) {
			return fmt.Errorf("invalid url scheme %q", s)
		}
		normalized = append(normalized, s)
	}
	if p.openURL == nil || p.openFile == nil {
		return errors.New("no launcher configured")
	}
	p.schemes = normalized
	ctxlog.FromContext(ctx).Debug("Opener plugin initialised.", "schemes", p.schemes)
	return nil
}

// URLInput defines the arguments for open_url.
type URLInput struct {
	URL string `cty:"url"`
}

// PathInput defines the arguments for open_path.
type PathInput struct {
	Path string `cty:"path"`
}

// OpenURL opens an allowed URL with the default handler.
func (p *Plugin) OpenURL(ctx context.Context, input *URLInput) error {
	u, err := url.Parse(input.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if !slices.Contains(p.schemes, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("%w: %q", ErrSchemeNotAllowed, u.Scheme)
	}
	ctxlog.FromContext(ctx).Info("Opening URL.", "url", u.Redacted())
	return p.openURL(u.String())
}

// OpenPath opens an existing file or directory with the default handler.
func (p *Plugin) OpenPath(ctx context.Context, input *PathInput) error {
	if input.Path == "" {
		return errors.New("path is empty")
	}
	path, err := filepath.Abs(input.Path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Opening path.", "path", path)
	return p.openFile(path)
}

// Register registers the plugin commands.
func (p *Plugin) Register(r registry.Registrar) error {
	if err := r.Register("open_url", &registry.RegisteredCommand{
		NewInput: func() any { return new(URLInput) },
		Fn:       p.OpenURL,
	}); err != nil {
		return err
	}
	return r.Register("open_path", &registry.RegisteredCommand{
		NewInput: func() any { return new(PathInput) },
		Fn:       p.OpenPath,
	})
}

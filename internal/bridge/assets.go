package bridge

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
)

// ShimPath is where the UI loads the invocation shim from.
const ShimPath = "/__deskshell/bridge.js"

// assets holds the invocation shim and the page served when no frontend is
// configured.
//
//go:embed assets/*.js assets/*.html
var assets embed.FS

func shimHandler() http.Handler {
	sub, _ := fs.Sub(assets, "assets")
	return http.StripPrefix("/__deskshell/", http.FileServer(http.FS(sub)))
}

// frontendHandler picks what serves "/": a reverse proxy to the dev server,
// the built frontend directory, or the embedded fallback page.
func frontendHandler(cfg Config) (http.Handler, string, error) {
	if cfg.DevURL != "" {
		target, err := url.Parse(cfg.DevURL)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, "", fmt.Errorf("invalid dev url '%s'", cfg.DevURL)
		}
		return httputil.NewSingleHostReverseProxy(target), "dev_url", nil
	}
	if cfg.FrontendDist != "" {
		info, err := os.Stat(cfg.FrontendDist)
		if err != nil {
			return nil, "", fmt.Errorf("frontend dist: %w", err)
		}
		if !info.IsDir() {
			return nil, "", fmt.Errorf("frontend dist '%s' is not a directory", cfg.FrontendDist)
		}
		return http.FileServer(http.Dir(cfg.FrontendDist)), "frontend_dist", nil
	}
	sub, _ := fs.Sub(assets, "assets")
	return http.FileServer(http.FS(sub)), "embedded", nil
}

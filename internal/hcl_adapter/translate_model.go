// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"path/filepath"

	"github.com/vk/deskshell/internal/config"
	"github.com/vk/deskshell/internal/ctxlog"
)

// translateState carries what translate needs to remember across the files
// of one load.
type translateState struct {
	// windowsDeclared is set once any file declared a window block.
	windowsDeclared bool
}

// translate overlays every attribute present in root onto model. Relative
// filesystem paths are resolved against baseDir, the directory of the file.
func (l *Loader) translate(ctx context.Context, root *fileRoot, model *config.Model, baseDir string, st *translateState) {
	logger := ctxlog.FromContext(ctx)

	if a := root.App; a != nil {
		setString(&model.App.ProductName, a.ProductName)
		setString(&model.App.Version, a.Version)
		setString(&model.App.Identifier, a.Identifier)
	}

	if b := root.Build; b != nil {
		if dist := b.FrontendDist; dist != nil {
			model.Build.FrontendDist = *dist
			if *dist != "" && !filepath.IsAbs(*dist) {
				model.Build.FrontendDist = filepath.Join(baseDir, *dist)
				logger.Debug("Resolved relative frontend_dist.", "path", model.Build.FrontendDist)
			}
		}
		setString(&model.Build.DevURL, b.DevURL)
		setString(&model.Build.DevtoolsWindow, b.DevtoolsWindow)
	}

	// Declared windows replace the default window; later files add to them.
	if len(root.Windows) > 0 {
		if !st.windowsDeclared {
			model.Windows = make([]*config.Window, 0, len(root.Windows))
			st.windowsDeclared = true
		}
		for _, wb := range root.Windows {
			w := &config.Window{Label: wb.Label, Width: 800, Height: 600}
			setString(&w.Title, wb.Title)
			setString(&w.URL, wb.URL)
			setInt(&w.Width, wb.Width)
			setInt(&w.Height, wb.Height)
			model.Windows = append(model.Windows, w)
			logger.Debug("Translated window block.", "label", w.Label)
		}
	}

	if b := root.Bridge; b != nil {
		setString(&model.Bridge.Address, b.Address)
		setInt(&model.Bridge.Workers, b.Workers)
		setInt(&model.Bridge.QueueSize, b.QueueSize)
	}

	if r := root.Runtime; r != nil {
		setString(&model.Runtime.Kind, r.Kind)
		setString(&model.Runtime.BrowserBin, r.BrowserBin)
		if r.Open != nil {
			model.Runtime.Open = *r.Open
		}
		if r.Headless != nil {
			model.Runtime.Headless = *r.Headless
		}
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

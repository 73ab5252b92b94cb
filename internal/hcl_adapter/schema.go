package hcl_adapter

// fileRoot decodes every top-level block an application file may contain.
// Unknown blocks and attributes are rejected by gohcl.
type fileRoot struct {
	App     *AppBlock      `hcl:"app,block"`
	Build   *BuildBlock    `hcl:"build,block"`
	Windows []*WindowBlock `hcl:"window,block"`
	Bridge  *BridgeBlock   `hcl:"bridge,block"`
	Runtime *RuntimeBlock  `hcl:"runtime,block"`
}

// AppBlock is the HCL schema for the `app` block.
type AppBlock struct {
	ProductName *string `hcl:"product_name,optional"`
	Version     *string `hcl:"version,optional"`
	Identifier  *string `hcl:"identifier,optional"`
}

// BuildBlock is the HCL schema for the `build` block.
type BuildBlock struct {
	FrontendDist   *string `hcl:"frontend_dist,optional"`
	DevURL         *string `hcl:"dev_url,optional"`
	DevtoolsWindow *string `hcl:"devtools_window,optional"`
}

// WindowBlock is the HCL schema for a `window "<label>"` block.
type WindowBlock struct {
	Label  string  `hcl:"label,label"`
	Title  *string `hcl:"title,optional"`
	URL    *string `hcl:"url,optional"`
	Width  *int    `hcl:"width,optional"`
	Height *int    `hcl:"height,optional"`
}

// BridgeBlock is the HCL schema for the `bridge` block.
type BridgeBlock struct {
	Address   *string `hcl:"address,optional"`
	Workers   *int    `hcl:"workers,optional"`
	QueueSize *int    `hcl:"queue_size,optional"`
}

// RuntimeBlock is the HCL schema for the `runtime` block.
type RuntimeBlock struct {
	Kind       *string `hcl:"kind,optional"`
	BrowserBin *string `hcl:"browser_bin,optional"`
	Open       *bool   `hcl:"open,optional"`
	Headless   *bool   `hcl:"headless,optional"`
}

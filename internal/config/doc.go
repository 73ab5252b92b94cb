// Package config defines the format-agnostic configuration model for the
// application shell (product metadata, frontend build paths, windows, the
// IPC bridge and the UI runtime), along with the Loader interface that
// format-specific implementations satisfy.
//
// The HCL implementation lives in the hcl_adapter package. Environment
// overrides are applied on top of whatever the loader produced.
package config

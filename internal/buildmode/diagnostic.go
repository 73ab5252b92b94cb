//go:build !release

package buildmode

const diagnostic = true

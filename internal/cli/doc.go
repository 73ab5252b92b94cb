// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// merges the configuration file, environment overrides and flags into the
// application's configuration and picks the UI runtime.
package cli

// Package app contains the application bootstrapper. It owns the
// process-wide application context and the ordered startup sequence
// (Init, AttachPlugins, AttachCommandRegistry, ConditionalSetup, Run),
// decoupled from any specific entrypoint or UI runtime.
package app

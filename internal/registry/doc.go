// Package registry provides the command table the UI layer invokes into.
//
// The Registry stores the mapping between the command names the frontend
// uses (e.g., "greet") and the compiled Go functions that implement them,
// along with the Go input type each handler expects. Arguments arrive as a
// JSON object, are decoded through go-cty into the handler's input struct,
// and the handler's result is encoded back to JSON.
//
// The registry is populated once during application startup and then
// frozen. After that point it is read-only and safe to invoke from any
// number of goroutines.
package registry

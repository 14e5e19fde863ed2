// Package cmd is a small transport-agnostic command core: a command has a
// name, a description and Run(ctx, invocation). Registration and dispatch
// are left to adapters (Discord slash commands, the CLI).
package cmd

import "context"

// Invocation is what an adapter passes to Run. Data holds the adapter's own
// context value.
type Invocation struct {
	Name string
	Data any
}

// DataAs returns inv.Data as T.
func DataAs[T any](inv *Invocation) (T, bool) {
	var zero T
	if inv == nil {
		return zero, false
	}
	v, ok := inv.Data.(T)
	return v, ok
}

// Command is identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

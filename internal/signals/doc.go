// Package signals is the engine's event bus. Events are published in the
// order their causing operations committed and delivered by a single
// dispatcher goroutine, so subscriber callbacks never overlap.
package signals

// Package device picks a compute device for a model by walking an ordered
// list of tiers, strongest acceleration first.
package device

import (
	"context"
)

// Tier is one device configuration the loader may attempt.
type Tier struct {
	Name      string
	GPULayers int
}

// DefaultTiers returns the preference order: Metal, then CUDA, then CPU.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "metal", GPULayers: 50},
		{Name: "cuda", GPULayers: 50},
		{Name: "cpu", GPULayers: 0},
	}
}

// Options is the load configuration for a single instantiation attempt.
// It is part of the cache key, so identical logical requests must produce
// identical Options.
type Options struct {
	ContextLength int     `json:"context_length"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
}

// DefaultOptions mirrors the server defaults.
func DefaultOptions() Options {
	return Options{
		ContextLength: 2048,
		Temperature:   0.7,
		TopP:          0.95,
	}
}

// Handle is a loaded model bound to a device tier. It owns device-resident
// memory and must be released with Close, never left to finalization.
type Handle interface {
	// Alive reports whether the underlying instance is still usable.
	Alive() bool

	// SizeBytes is the in-memory footprint used for cache accounting.
	SizeBytes() int64

	// Tier is the device tier the handle ended up on.
	Tier() Tier

	Close() error
}

// Backend instantiates a model file on a specific tier. On error the backend
// must have released everything the attempt allocated.
type Backend interface {
	Load(ctx context.Context, path string, tier Tier, opts Options) (Handle, error)
}

package server

import (
	"context"

	"github.com/modelyard/modelyard/pkg/device"
	"github.com/modelyard/modelyard/pkg/llm"
	"github.com/modelyard/modelyard/pkg/manager"
)

// ManagerGenerator generates through a cache-aware manager load on every
// request. After the first request the load is a cache hit until the entry
// expires or is evicted.
type ManagerGenerator struct {
	Manager *manager.Manager
	Model   string
	Options device.Options
}

func (g *ManagerGenerator) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	handle, err := g.Manager.Load(ctx, g.Model, g.Options)
	if err != nil {
		return "", err
	}
	return g.Manager.Generate(ctx, handle, prompt, opts)
}

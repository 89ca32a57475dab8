// Package manager owns the model registry, download pipeline, bounded cache
// and device loader behind one object constructed at start-up.
package manager

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbauerster/mpb/v8"
	"golang.org/x/sync/singleflight"

	"github.com/modelyard/modelyard/pkg/cache"
	"github.com/modelyard/modelyard/pkg/device"
	"github.com/modelyard/modelyard/pkg/global"
	"github.com/modelyard/modelyard/pkg/llm"
	"github.com/modelyard/modelyard/pkg/registry"
	"github.com/modelyard/modelyard/pkg/util/console"
	"github.com/modelyard/modelyard/pkg/util/files"
)

type Options struct {
	ModelsDir     string
	CacheDir      string
	MaxCacheBytes int64
	CacheTTL      time.Duration

	// HTTPClient overrides the download client, mainly for tests.
	HTTPClient *http.Client

	// Backend overrides the instantiation backend. Defaults to the
	// llama-server runner.
	Backend device.Backend

	// Tiers overrides the device preference order.
	Tiers []device.Tier
}

// Manager is the single owner of registry, cache and loader state. Apart
// from downloads, which are serialized per model name, callers must not
// issue concurrent operations for the same model.
type Manager struct {
	modelsDir string
	registry  *registry.Registry
	cache     *cache.Cache
	loader    *device.Loader
	client    *http.Client

	downloads singleflight.Group
}

func New(opts Options) (*Manager, error) {
	modelsDir := opts.ModelsDir
	if modelsDir == "" {
		modelsDir = global.DefaultModelsDir
	}
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = global.DefaultCacheDir
	}
	maxBytes := opts.MaxCacheBytes
	if maxBytes == 0 {
		maxBytes = int64(global.DefaultMaxCacheGB * 1024 * 1024 * 1024)
	}

	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}

	reg, err := registry.Load(filepath.Join(modelsDir, global.ManifestFilename))
	if err != nil {
		return nil, err
	}
	modelCache, err := cache.New(cacheDir, maxBytes, opts.CacheTTL)
	if err != nil {
		return nil, err
	}

	backend := opts.Backend
	if backend == nil {
		backend = llm.NewRunner()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Manager{
		modelsDir: modelsDir,
		registry:  reg,
		cache:     modelCache,
		loader:    device.NewLoader(backend, opts.Tiers),
		client:    client,
	}, nil
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.modelsDir, name)
}

// ModelPath returns the on-disk path for a model, downloading it first if it
// is missing or fails verification.
func (m *Manager) ModelPath(ctx context.Context, name string) (string, error) {
	ok, err := m.Verify(name)
	if err != nil {
		return "", err
	}
	if !ok {
		if err := m.Download(ctx, name, false, nil); err != nil {
			return "", err
		}
	}
	return m.path(name), nil
}

// Load returns a usable handle for the model, from the cache when a live
// entry matches the name and configuration, otherwise via the device loader.
func (m *Manager) Load(ctx context.Context, name string, opts device.Options) (device.Handle, error) {
	key, err := cache.Key(name, opts)
	if err != nil {
		return nil, err
	}

	if handle, ok := m.cache.Get(key); ok {
		console.Debugf("Loaded %s from cache", name)
		return handle, nil
	}

	path, err := m.ModelPath(ctx, name)
	if err != nil {
		return nil, err
	}

	handle, err := m.loader.Load(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Put(key, handle, handle.SizeBytes()); err != nil {
		console.Warnf("Caching %s failed: %s", name, err)
	}
	return handle, nil
}

// Generate produces text from a loaded handle.
func (m *Manager) Generate(ctx context.Context, handle device.Handle, prompt string, opts llm.GenerateOptions) (string, error) {
	gen, ok := handle.(llm.Generator)
	if !ok {
		return "", fmt.Errorf("handle on tier %s does not support generation", handle.Tier().Name)
	}
	return gen.Generate(ctx, prompt, opts)
}

// EnsureRequired verifies every required model, downloading any that are
// missing or invalid. It fails only after attempting all of them.
func (m *Manager) EnsureRequired(ctx context.Context, p *mpb.Progress) error {
	var failed []string
	for _, name := range m.registry.Names() {
		model, err := m.registry.Get(name)
		if err != nil {
			return err
		}
		if !model.Required {
			continue
		}

		ok, err := m.Verify(name)
		if err != nil {
			console.Errorf("Verifying %s: %s", name, err)
			failed = append(failed, name)
			continue
		}
		if ok {
			continue
		}
		if err := m.Download(ctx, name, false, p); err != nil {
			console.Errorf("Downloading %s: %s", name, err)
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to ensure required models: %s", strings.Join(failed, ", "))
	}
	return nil
}

// Info describes a model's manifest entry plus its on-disk state.
type Info struct {
	Name        string
	Version     string
	URL         string
	Size        int64
	Required    bool
	ModelType   string
	Description string
	SHA256      *string
	Downloaded  bool
	ActualSize  int64
}

func (m *Manager) Info(name string) (*Info, error) {
	model, err := m.registry.Get(name)
	if err != nil {
		return nil, err
	}

	downloaded, err := m.Verify(name)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Name:        name,
		Version:     model.Version,
		URL:         model.URL,
		Size:        model.Size,
		Required:    model.Required,
		ModelType:   model.ModelType,
		Description: model.Description,
		SHA256:      model.SHA256,
		Downloaded:  downloaded,
	}
	if exists, err := files.Exists(m.path(name)); err == nil && exists {
		if stat, err := os.Stat(m.path(name)); err == nil {
			info.ActualSize = stat.Size()
		}
	}
	return info, nil
}

func (m *Manager) List() ([]*Info, error) {
	infos := make([]*Info, 0, len(m.registry.Names()))
	for _, name := range m.registry.Names() {
		info, err := m.Info(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Names returns all registered model names.
func (m *Manager) Names() []string {
	return m.registry.Names()
}

// LastUpdated returns when the manifest was last written, if known.
func (m *Manager) LastUpdated() (time.Time, bool) {
	return m.registry.LastUpdated()
}

// Close releases every cached handle.
func (m *Manager) Close() error {
	return m.cache.Close()
}

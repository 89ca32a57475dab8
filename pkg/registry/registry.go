// Package registry persists the manifest of known model artifacts.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/modelyard/modelyard/pkg/errors"
	"github.com/modelyard/modelyard/pkg/util/files"
)

// PlaceholderHash is a sentinel some hand-written manifests carry instead of a
// real checksum. It is normalized to null (unknown) on load.
const PlaceholderHash = "expected_hash_here"

// CacheVersion is the manifest format version this build writes and the newest
// version it accepts.
const CacheVersion = "1.0"

// Model describes one artifact in the manifest.
type Model struct {
	Version     string  `json:"version"`
	URL         string  `json:"url"`
	SHA256      *string `json:"sha256"`
	Size        int64   `json:"size"`
	Required    bool    `json:"required"`
	ModelType   string  `json:"model_type"`
	Description string  `json:"description"`
}

type Manifest struct {
	Models       map[string]*Model `json:"models"`
	CacheVersion string            `json:"cache_version"`
	LastUpdated  string            `json:"last_updated"`
}

// Registry is a manifest bound to its on-disk location.
type Registry struct {
	path     string
	manifest *Manifest
}

// Load reads the manifest at path. If the file does not exist, a built-in
// default manifest is created and written back. Placeholder hashes are
// normalized to null and the correction persisted.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}

	exists, err := files.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		r.manifest = defaultManifest()
		if err := r.Save(); err != nil {
			return nil, err
		}
		return r, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	manifest := &Manifest{}
	if err := json.Unmarshal(contents, manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if manifest.CacheVersion != "" {
		v, err := goversion.NewVersion(manifest.CacheVersion)
		if err != nil {
			return nil, fmt.Errorf("parsing manifest cache_version %q: %w", manifest.CacheVersion, err)
		}
		if v.GreaterThan(goversion.Must(goversion.NewVersion(CacheVersion))) {
			return nil, fmt.Errorf("manifest cache_version %s is newer than supported %s", manifest.CacheVersion, CacheVersion)
		}
	}

	r.manifest = manifest

	changed := false
	for _, model := range manifest.Models {
		if model.SHA256 != nil && *model.SHA256 == PlaceholderHash {
			model.SHA256 = nil
			changed = true
		}
	}
	if changed {
		if err := r.Save(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func defaultManifest() *Manifest {
	return &Manifest{
		Models: map[string]*Model{
			"tinyllama": {
				Version:     "1.0.0",
				URL:         "https://huggingface.co/TheBloke/TinyLlama-1.1B-Chat-v1.0-GGUF/resolve/main/tinyllama-1.1b-chat-v1.0.Q4_K_M.gguf",
				SHA256:      nil,
				Size:        638_930_832,
				Required:    true,
				ModelType:   "gguf",
				Description: "TinyLlama 1.1B Chat Quantized",
			},
		},
		CacheVersion: CacheVersion,
	}
}

// Save persists the manifest atomically.
func (r *Registry) Save() error {
	r.manifest.LastUpdated = time.Now().Format(time.RFC3339)

	contents, err := json.MarshalIndent(r.manifest, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, contents, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// Get returns the named model, or an UnknownArtifact error.
func (r *Registry) Get(name string) (*Model, error) {
	model, ok := r.manifest.Models[name]
	if !ok {
		return nil, errors.UnknownArtifact(name)
	}
	return model, nil
}

// SetHash records the content hash of a model and persists the manifest.
func (r *Registry) SetHash(name string, hash string) error {
	model, err := r.Get(name)
	if err != nil {
		return err
	}
	model.SHA256 = &hash
	return r.Save()
}

// Names returns all model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.manifest.Models))
	for name := range r.manifest.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LastUpdated returns when the manifest was last written, if known.
func (r *Registry) LastUpdated() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, r.manifest.LastUpdated)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r *Registry) Path() string {
	return r.path
}

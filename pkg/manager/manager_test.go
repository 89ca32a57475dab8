package manager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelyard/modelyard/pkg/device"
	"github.com/modelyard/modelyard/pkg/errors"
	"github.com/modelyard/modelyard/pkg/llm"
	"github.com/modelyard/modelyard/pkg/registry"
)

var modelContent = []byte("fake gguf weights for testing")

type testHandle struct {
	size     int64
	closed   bool
	tier     device.Tier
	response string
}

func (h *testHandle) Alive() bool       { return !h.closed }
func (h *testHandle) SizeBytes() int64  { return h.size }
func (h *testHandle) Tier() device.Tier { return h.tier }
func (h *testHandle) Close() error {
	h.closed = true
	return nil
}

func (h *testHandle) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	return h.response, nil
}

type testBackend struct {
	loads int
}

func (b *testBackend) Load(ctx context.Context, path string, tier device.Tier, opts device.Options) (device.Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	b.loads++
	return &testHandle{size: 10, tier: tier, response: "generated"}, nil
}

// newArtifactServer serves modelContent and counts requests.
func newArtifactServer(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, err := w.Write(modelContent)
		require.NoError(t, err)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func writeManifest(t *testing.T, modelsDir string, url string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(modelsDir, 0o755))
	manifest := fmt.Sprintf(`{
		"models": {
			"testmodel": {
				"version": "1.0.0",
				"url": "%s/testmodel.gguf",
				"sha256": null,
				"size": %d,
				"required": true,
				"model_type": "gguf",
				"description": "test model"
			}
		},
		"cache_version": "1.0"
	}`, url, len(modelContent))
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "models.json"), []byte(manifest), 0o644))
}

func newTestManager(t *testing.T, url string) (*Manager, *testBackend, string) {
	t.Helper()
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	writeManifest(t, modelsDir, url)

	backend := &testBackend{}
	m, err := New(Options{
		ModelsDir: modelsDir,
		CacheDir:  filepath.Join(dir, "cache"),
		Backend:   backend,
		Tiers:     []device.Tier{{Name: "cpu"}},
	})
	require.NoError(t, err)
	return m, backend, modelsDir
}

func contentHash() string {
	sum := sha256.Sum256(modelContent)
	return hex.EncodeToString(sum[:])
}

func TestEnsureRequiredDownloadsAndAdoptsHash(t *testing.T) {
	server, requests := newArtifactServer(t, http.StatusOK)
	m, _, modelsDir := newTestManager(t, server.URL)

	require.NoError(t, m.EnsureRequired(context.Background(), nil))
	require.Equal(t, 1, *requests)

	// artifact is on disk and verifies
	ok, err := m.Verify("testmodel")
	require.NoError(t, err)
	require.True(t, ok)

	// the observed hash was persisted into the manifest
	contents, err := os.ReadFile(filepath.Join(modelsDir, "models.json"))
	require.NoError(t, err)
	manifest := &registry.Manifest{}
	require.NoError(t, json.Unmarshal(contents, manifest))
	require.NotNil(t, manifest.Models["testmodel"].SHA256)
	require.Equal(t, contentHash(), *manifest.Models["testmodel"].SHA256)

	// nothing left at the temporary path
	_, err = os.Stat(filepath.Join(modelsDir, "testmodel.tmp"))
	require.True(t, os.IsNotExist(err))
}

func TestEnsureRequiredIsIdempotentAcrossRestart(t *testing.T) {
	server, requests := newArtifactServer(t, http.StatusOK)
	m, _, modelsDir := newTestManager(t, server.URL)

	require.NoError(t, m.EnsureRequired(context.Background(), nil))
	require.Equal(t, 1, *requests)

	// a fresh manager over the same manifest must not re-download
	restarted, err := New(Options{
		ModelsDir: modelsDir,
		CacheDir:  t.TempDir(),
		Backend:   &testBackend{},
		Tiers:     []device.Tier{{Name: "cpu"}},
	})
	require.NoError(t, err)
	require.NoError(t, restarted.EnsureRequired(context.Background(), nil))
	require.Equal(t, 1, *requests)
}

func TestDownloadIsIdempotent(t *testing.T) {
	server, requests := newArtifactServer(t, http.StatusOK)
	m, _, _ := newTestManager(t, server.URL)

	require.NoError(t, m.Download(context.Background(), "testmodel", false, nil))
	require.NoError(t, m.Download(context.Background(), "testmodel", false, nil))
	require.Equal(t, 1, *requests)
}

func TestDownloadForce(t *testing.T) {
	server, requests := newArtifactServer(t, http.StatusOK)
	m, _, _ := newTestManager(t, server.URL)

	require.NoError(t, m.Download(context.Background(), "testmodel", false, nil))
	require.NoError(t, m.Download(context.Background(), "testmodel", true, nil))
	require.Equal(t, 2, *requests)
}

// newRotatingArtifactServer serves whatever the returned slice currently
// holds, so tests can change the upstream content mid-flight.
func newRotatingArtifactServer(t *testing.T) (*httptest.Server, *[]byte) {
	t.Helper()
	content := append([]byte(nil), modelContent...)
	ptr := &content
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write(*ptr)
		require.NoError(t, err)
	}))
	t.Cleanup(server.Close)
	return server, ptr
}

func TestForceRedownloadAdoptsRotatedHash(t *testing.T) {
	server, content := newRotatingArtifactServer(t)
	m, _, modelsDir := newTestManager(t, server.URL)

	require.NoError(t, m.Download(context.Background(), "testmodel", false, nil))

	// upstream publishes new weights; force must recover and re-adopt
	rotated := []byte("rotated upstream weights")
	*content = rotated
	require.NoError(t, m.Download(context.Background(), "testmodel", true, nil))

	onDisk, err := os.ReadFile(filepath.Join(modelsDir, "testmodel"))
	require.NoError(t, err)
	require.Equal(t, rotated, onDisk)

	ok, err := m.Verify("testmodel")
	require.NoError(t, err)
	require.True(t, ok)

	// the recorded hash follows the new content
	sum := sha256.Sum256(rotated)
	contents, err := os.ReadFile(filepath.Join(modelsDir, "models.json"))
	require.NoError(t, err)
	manifest := &registry.Manifest{}
	require.NoError(t, json.Unmarshal(contents, manifest))
	require.Equal(t, hex.EncodeToString(sum[:]), *manifest.Models["testmodel"].SHA256)
}

func TestRedownloadWithoutForceRejectsRotatedContent(t *testing.T) {
	server, content := newRotatingArtifactServer(t)
	m, _, modelsDir := newTestManager(t, server.URL)

	require.NoError(t, m.Download(context.Background(), "testmodel", false, nil))

	// corrupt the local file so the next download actually transfers, then
	// rotate upstream: without force the recorded hash stays authoritative
	path := filepath.Join(modelsDir, "testmodel")
	require.NoError(t, os.WriteFile(path, []byte("corrupted"), 0o644))
	*content = []byte("rotated upstream weights")

	err := m.Download(context.Background(), "testmodel", false, nil)
	require.Error(t, err)
	require.True(t, errors.IsIntegrityMismatch(err))

	_, statErr := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(statErr))

	// the recorded hash is still the original content's
	contents, err := os.ReadFile(filepath.Join(modelsDir, "models.json"))
	require.NoError(t, err)
	manifest := &registry.Manifest{}
	require.NoError(t, json.Unmarshal(contents, manifest))
	require.Equal(t, contentHash(), *manifest.Models["testmodel"].SHA256)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	server, requests := newArtifactServer(t, http.StatusOK)
	m, _, modelsDir := newTestManager(t, server.URL)

	require.NoError(t, m.Download(context.Background(), "testmodel", false, nil))

	// flip bytes behind the manager's back
	path := filepath.Join(modelsDir, "testmodel")
	require.NoError(t, os.WriteFile(path, []byte("corrupted"), 0o644))

	ok, err := m.Verify("testmodel")
	require.NoError(t, err)
	require.False(t, ok)

	// ensure repairs it with a re-download
	require.NoError(t, m.EnsureRequired(context.Background(), nil))
	require.Equal(t, 2, *requests)
	ok, err = m.Verify("testmodel")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyMissingFile(t *testing.T) {
	server, _ := newArtifactServer(t, http.StatusOK)
	m, _, _ := newTestManager(t, server.URL)

	ok, err := m.Verify("testmodel")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTransportFailureLeavesNoPartialArtifact(t *testing.T) {
	server, _ := newArtifactServer(t, http.StatusInternalServerError)
	m, _, modelsDir := newTestManager(t, server.URL)

	err := m.Download(context.Background(), "testmodel", false, nil)
	require.Error(t, err)
	require.True(t, errors.IsTransportFailure(err))

	_, statErr := os.Stat(filepath.Join(modelsDir, "testmodel"))
	require.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(modelsDir, "testmodel.tmp"))
	require.True(t, os.IsNotExist(statErr))
}

func TestUnknownModel(t *testing.T) {
	server, _ := newArtifactServer(t, http.StatusOK)
	m, _, _ := newTestManager(t, server.URL)

	err := m.Download(context.Background(), "no-such-model", false, nil)
	require.True(t, errors.IsUnknownArtifact(err))

	_, err = m.ModelPath(context.Background(), "no-such-model")
	require.True(t, errors.IsUnknownArtifact(err))

	_, err = m.Info("no-such-model")
	require.True(t, errors.IsUnknownArtifact(err))
}

func TestModelPathDownloadsOnDemand(t *testing.T) {
	server, requests := newArtifactServer(t, http.StatusOK)
	m, _, modelsDir := newTestManager(t, server.URL)

	path, err := m.ModelPath(context.Background(), "testmodel")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(modelsDir, "testmodel"), path)
	require.Equal(t, 1, *requests)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, modelContent, contents)
}

func TestLoadUsesCache(t *testing.T) {
	server, _ := newArtifactServer(t, http.StatusOK)
	m, backend, _ := newTestManager(t, server.URL)

	opts := device.DefaultOptions()
	h1, err := m.Load(context.Background(), "testmodel", opts)
	require.NoError(t, err)
	require.Equal(t, 1, backend.loads)

	h2, err := m.Load(context.Background(), "testmodel", opts)
	require.NoError(t, err)
	require.Equal(t, 1, backend.loads)
	require.Same(t, h1, h2)

	// a different configuration is a different cache entry
	opts.ContextLength = 4096
	_, err = m.Load(context.Background(), "testmodel", opts)
	require.NoError(t, err)
	require.Equal(t, 2, backend.loads)
}

func TestGenerate(t *testing.T) {
	server, _ := newArtifactServer(t, http.StatusOK)
	m, _, _ := newTestManager(t, server.URL)

	handle, err := m.Load(context.Background(), "testmodel", device.DefaultOptions())
	require.NoError(t, err)

	text, err := m.Generate(context.Background(), handle, "hello", llm.GenerateOptions{})
	require.NoError(t, err)
	require.Equal(t, "generated", text)
}

func TestInfoAndList(t *testing.T) {
	server, _ := newArtifactServer(t, http.StatusOK)
	m, _, _ := newTestManager(t, server.URL)

	info, err := m.Info("testmodel")
	require.NoError(t, err)
	require.Equal(t, "testmodel", info.Name)
	require.True(t, info.Required)
	require.False(t, info.Downloaded)

	require.NoError(t, m.Download(context.Background(), "testmodel", false, nil))

	info, err = m.Info("testmodel")
	require.NoError(t, err)
	require.True(t, info.Downloaded)
	require.Equal(t, int64(len(modelContent)), info.ActualSize)

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
}

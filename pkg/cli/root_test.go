package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd, err := NewRootCommand()
	require.NoError(t, err)
	require.Equal(t, "modelyard", cmd.Use)

	for _, name := range []string{"ensure", "download", "verify", "list", "info", "serve"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"models-dir", "cache-dir", "max-cache-size", "verbose"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestGetModelDefaults(t *testing.T) {
	modelFlag = ""
	require.Equal(t, "tinyllama", getModel())

	modelFlag = "other"
	defer func() { modelFlag = "" }()
	require.Equal(t, "other", getModel())
}

func TestVerifyReportsMissingModels(t *testing.T) {
	dir := t.TempDir()
	modelsDirFlag = filepath.Join(dir, "models")
	cacheDirFlag = filepath.Join(dir, "cache")
	maxCacheSizeFlag = 1.0
	modelFlag = ""

	// a fresh models dir gets the default manifest; nothing is downloaded yet
	err := verifyModels(newVerifyCommand(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tinyllama")
}

func TestFormatSize(t *testing.T) {
	require.Equal(t, "100 B", formatSize(100))
	require.Equal(t, "1.0 KB", formatSize(1024))
	require.Equal(t, "1.5 MB", formatSize(1536*1024))
	require.Equal(t, "4.0 GB", formatSize(4*1024*1024*1024))
}

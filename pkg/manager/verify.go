package manager

import (
	"github.com/modelyard/modelyard/pkg/errors"
	"github.com/modelyard/modelyard/pkg/util"
	"github.com/modelyard/modelyard/pkg/util/console"
	"github.com/modelyard/modelyard/pkg/util/files"
)

// Verify checks the on-disk file for a model against the recorded content
// hash. When no hash has been recorded yet, the computed hash is adopted as
// the expected value and persisted (trust on first use: this cannot detect a
// compromised first download). Returns false when the file is missing or the
// hash mismatches a previously recorded one.
func (m *Manager) Verify(name string) (bool, error) {
	model, err := m.registry.Get(name)
	if err != nil {
		return false, err
	}

	path := m.path(name)
	exists, err := files.Exists(path)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	computed, err := util.SHA256HashFile(path)
	if err != nil {
		return false, err
	}

	if model.SHA256 == nil {
		if err := m.registry.SetHash(name, computed); err != nil {
			return false, err
		}
		console.Infof("Saved new hash for existing %s: %s", name, computed)
		return true, nil
	}

	if *model.SHA256 != computed {
		console.Warnf("%s", errors.IntegrityMismatch(name, *model.SHA256, computed))
		return false, nil
	}
	return true, nil
}

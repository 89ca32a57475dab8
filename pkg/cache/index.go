package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/modelyard/modelyard/pkg/util/files"
)

type entryMeta struct {
	Timestamp string `json:"timestamp"`
	Size      int64  `json:"size"`
}

// index is the authoritative record for eviction decisions. It is rewritten
// completely and atomically on every mutation so a reader never observes an
// inconsistent total.
type index struct {
	Entries     map[string]entryMeta `json:"entries"`
	TotalSize   int64                `json:"total_size"`
	LastCleanup string               `json:"last_cleanup"`
}

func loadIndex(path string) (*index, error) {
	exists, err := files.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		ix := &index{
			Entries:     map[string]entryMeta{},
			LastCleanup: time.Now().Format(time.RFC3339Nano),
		}
		if err := ix.save(path); err != nil {
			return nil, err
		}
		return ix, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ix := &index{}
	if err := json.Unmarshal(contents, ix); err != nil {
		return nil, err
	}
	if ix.Entries == nil {
		ix.Entries = map[string]entryMeta{}
	}
	return ix, nil
}

func (ix *index) save(path string) error {
	contents, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, contents, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key derives the cache key for a model name and load configuration. The
// configuration is re-marshalled through a map so key order in the input
// never changes the result: identical logical requests always collide.
func Key(name string, config any) (string, error) {
	canonical, err := canonicalJSON(config)
	if err != nil {
		return "", fmt.Errorf("canonicalizing config for %s: %w", name, err)
	}
	sum := sha256.Sum256([]byte(name + ":" + canonical))
	return hex.EncodeToString(sum[:]), nil
}

func canonicalJSON(config any) (string, error) {
	if config == nil {
		config = map[string]any{}
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return "", err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		// not a JSON object; the marshalled form is already canonical
		return string(raw), nil
	}
	out, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

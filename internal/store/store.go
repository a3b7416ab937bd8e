// Package store persists pipeline state as flat JSON files.
//
// Every ledger and cache in the pipeline is read in full at run start and
// written in full afterwards. A missing or corrupt file is treated as empty
// state, never as a fatal error, so a fresh checkout starts from zero.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the JSON file at path into v. When the file does not exist or
// cannot be parsed, v is left untouched and Load returns nil.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return nil
	}

	return nil
}

// Save writes v to path as indented JSON. The file is written to a temporary
// sibling first and renamed into place so a crash mid-write leaves the
// previous contents intact.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

package linker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the subset of package.json the linkers read.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Types           string            `json:"types"`
	Typings         string            `json:"typings"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// ReadManifest loads package.json from dir. A missing manifest is not an
// error; it returns (nil, nil) and the run proceeds without an ExportLinker.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "package.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if m.Name == "" {
		// A nameless manifest cannot qualify monikers.
		return nil, nil
	}
	return &m, nil
}
